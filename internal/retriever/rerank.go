package retriever

import (
	"context"
	"fmt"
	"sort"

	"Mimic_1.0/internal/models"
)

// RelevanceOracle scores passages for relevance against a query. Scores are
// index-aligned with the input passages.
type RelevanceOracle interface {
	ScoreBatch(ctx context.Context, query string, passages []string) ([]float64, error)
}

// Reranker narrows the fused candidate list to the final context window using
// a relevance oracle.
type Reranker struct {
	oracle RelevanceOracle
	topK   int
}

// NewReranker creates a reranker that keeps the topK best candidates.
func NewReranker(oracle RelevanceOracle, topK int) *Reranker {
	return &Reranker{oracle: oracle, topK: topK}
}

// TopK returns the configured final candidate count.
func (r *Reranker) TopK() int {
	return r.topK
}

// Rerank scores every candidate with the oracle and returns the topK best,
// best first, ties broken by fact ID ascending. An empty input returns empty
// without consulting the oracle. Fused scores on the candidates are left
// untouched; the oracle score is recorded separately.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*models.RetrievalCandidate) ([]*models.RetrievalCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	passages := make([]string, len(candidates))
	for i, cand := range candidates {
		passages[i] = cand.Fact.Text
	}

	scores, err := r.oracle.ScoreBatch(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("relevance oracle failed: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("relevance oracle returned %d scores for %d passages", len(scores), len(candidates))
	}

	reranked := make([]*models.RetrievalCandidate, len(candidates))
	for i, cand := range candidates {
		score := scores[i]
		cand.RerankScore = &score
		reranked[i] = cand
	}
	sort.Slice(reranked, func(i, j int) bool {
		if *reranked[i].RerankScore != *reranked[j].RerankScore {
			return *reranked[i].RerankScore > *reranked[j].RerankScore
		}
		return reranked[i].Fact.ID < reranked[j].Fact.ID
	})
	if len(reranked) > r.topK {
		reranked = reranked[:r.topK]
	}
	return reranked, nil
}
