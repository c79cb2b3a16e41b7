package agents

import (
	"context"
	"fmt"
	"strings"

	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/models"
)

const producerHistoryTurns = 3

// Producer generates the neutral factual draft for a turn. The draft is kept
// free of persona style and citation markers so the Refiner has a stable base
// to transform.
type Producer struct {
	llm llm.LLM
}

// NewProducer creates a Producer on the given generation oracle.
func NewProducer(client llm.LLM) *Producer {
	return &Producer{llm: client}
}

// Produce returns a neutral answer grounded in the reranked facts. When no
// facts were retrieved it falls back to a context-only reply built from the
// recent history, without ever mentioning the missing data.
func (p *Producer) Produce(
	ctx context.Context,
	query string,
	rerankedFacts []*models.RetrievalCandidate,
	userMessage string,
	history []models.HistoryTurn,
) (string, error) {
	if len(rerankedFacts) == 0 {
		return p.produceFromHistory(ctx, userMessage, history)
	}

	var notes []string
	for _, cand := range rerankedFacts {
		note := fmt.Sprintf("[%s] %s", cand.Fact.ID, cand.Fact.Text)
		if cand.Fact.Confidence < 0.5 {
			note += " (lower confidence)"
		}
		notes = append(notes, note)
	}

	prompt := fmt.Sprintf(`You are extracting factual information from notes. Using ONLY the following notes, write a concise, factual answer.

Notes:
%s

User question: %s

Instructions:
1. Use ONLY information from the notes above.
2. Write in 2-4 sentences with a neutral, third-person tone.
3. If information is missing or uncertain, communicate that plainly.
4. Do NOT include citation brackets, note IDs, or metadata in the response.
5. Keep stylistic choices minimal so another component can adapt the voice later.

Neutral factual answer:`, strings.Join(notes, "\n"), query)

	response, err := p.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("producer generation failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// produceFromHistory handles the empty-retrieval path.
func (p *Producer) produceFromHistory(ctx context.Context, userMessage string, history []models.HistoryTurn) (string, error) {
	var snippets []string
	start := len(history) - producerHistoryTurns
	if start < 0 {
		start = 0
	}
	for _, turn := range history[start:] {
		user := strings.TrimSpace(turn.User)
		assistant := strings.TrimSpace(turn.Assistant)
		if user != "" || assistant != "" {
			snippets = append(snippets, fmt.Sprintf("User: %s\nAssistant: %s", user, assistant))
		}
	}
	historyBlock := "No prior conversation available."
	if len(snippets) > 0 {
		historyBlock = strings.Join(snippets, "\n\n")
	}

	prompt := fmt.Sprintf(`You are drafting a neutral base reply for a persona-driven assistant.

Conversation history:
%s

Latest user message: %s

Guidelines:
1. Acknowledge the user's situation using only details provided.
2. Offer a supportive, informative, or curiosity-driven follow-up that keeps the dialogue going.
3. Avoid first-person language or persona-specific style; stay neutral so another component can adapt the voice.
4. Do not mention missing data, citations, or internal processes.
5. Keep the response to 2-3 sentences.

Neutral response:`, historyBlock, userMessage)

	response, err := p.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.4,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("producer fallback generation failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}
