package memory

import (
	"context"
	"fmt"
	"strings"

	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/models"
)

// summaryWindowTurns is how many recent turns feed each summary refresh; the
// updater also triggers a refresh every summaryWindowTurns turns.
const summaryWindowTurns = 5

// Summarizer maintains the rolling conversation summary via the generation
// oracle.
type Summarizer struct {
	llm llm.LLM
}

// NewSummarizer creates a Summarizer on the given generation oracle.
func NewSummarizer(client llm.LLM) *Summarizer {
	return &Summarizer{llm: client}
}

// Summarize merges the most recent turns with the previous summary (if any)
// into an updated rolling summary capped at roughly 300 words.
func (s *Summarizer) Summarize(ctx context.Context, history []models.HistoryTurn, previousSummary string) (string, error) {
	if len(history) == 0 {
		return "", nil
	}

	recent := history
	if len(recent) > summaryWindowTurns {
		recent = recent[len(recent)-summaryWindowTurns:]
	}
	var turns []string
	for _, turn := range recent {
		turns = append(turns, fmt.Sprintf("User: %s\nAssistant: %s", turn.User, turn.Assistant))
	}
	turnsBlock := strings.Join(turns, "\n")

	var prompt string
	if previousSummary != "" {
		prompt = fmt.Sprintf(`Update the conversation summary with new information from recent turns.

Previous summary:
%s

Recent conversation turns:
%s

Create an updated rolling summary that:
1. Preserves key information from the previous summary
2. Adds important new information from recent turns
3. Removes redundant or less important details to keep it concise (max 300 words)
4. Focuses on: user preferences, key topics discussed, decisions made, important facts mentioned

Updated summary:`, previousSummary, turnsBlock)
	} else {
		prompt = fmt.Sprintf(`Create a rolling conversation summary from these turns.

Conversation:
%s

Create a concise summary (max 300 words) covering:
1. Main topics discussed
2. User preferences or concerns mentioned
3. Key facts or decisions
4. Important context for future responses

Summary:`, turnsBlock)
	}

	summary, err := s.llm.Generate(ctx, []llm.Message{{Role: models.SpeakerUser, Content: prompt}}, llm.Options{
		Temperature: 0.3,
		MaxTokens:   400,
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
