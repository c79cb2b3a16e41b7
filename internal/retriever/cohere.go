package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"Mimic_1.0/pkg/circuitbreaker"
)

const cohereRerankURL = "https://api.cohere.ai/v1/rerank"

// CohereOracle implements RelevanceOracle using the Cohere Rerank API. Calls
// go through a circuit breaker so a flapping upstream fails fast instead of
// burning the latency budget on every turn.
type CohereOracle struct {
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

// cohereRerankRequest defines the request body for the Cohere Rerank API.
type cohereRerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

// NewCohereOracle creates a new CohereOracle.
func NewCohereOracle(apiKey, model string) *CohereOracle {
	return &CohereOracle{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    circuitbreaker.New(5, 2, 30*time.Second),
	}
}

// ScoreBatch returns one relevance score per passage, index-aligned with the
// input order regardless of how the API orders its results.
func (o *CohereOracle) ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	var scores []float64
	err := o.breaker.Execute(func() error {
		var callErr error
		scores, callErr = o.scoreOnce(ctx, query, passages)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

func (o *CohereOracle) scoreOnce(ctx context.Context, query string, passages []string) ([]float64, error) {
	reqBody := cohereRerankRequest{
		Model:           o.model,
		Query:           query,
		Documents:       passages,
		TopN:            len(passages),
		ReturnDocuments: false,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cohere request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", cohereRerankURL, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create cohere request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call cohere api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cohere api returned non-200 status: %s", resp.Status)
	}

	var cohereResp cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&cohereResp); err != nil {
		return nil, fmt.Errorf("failed to decode cohere response: %w", err)
	}

	scores := make([]float64, len(passages))
	for _, result := range cohereResp.Results {
		if result.Index >= 0 && result.Index < len(scores) {
			scores[result.Index] = result.RelevanceScore
		}
	}
	return scores, nil
}

var _ RelevanceOracle = (*CohereOracle)(nil)
