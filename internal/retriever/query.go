package retriever

import (
	"strings"
	"unicode"

	"Mimic_1.0/internal/models"
)

const (
	queryHistoryTurns = 3
	maxQueryEntities  = 5
)

// BuildConversationQuery expands the raw user message with recent history and
// salient entities so retrieval sees conversational context, not just the last
// utterance. The current message always comes first.
func BuildConversationQuery(message string, history []models.HistoryTurn) string {
	parts := []string{message}

	start := len(history) - queryHistoryTurns
	if start < 0 {
		start = 0
	}
	for _, turn := range history[start:] {
		if turn.User != "" {
			parts = append(parts, turn.User)
		}
		if turn.Assistant != "" {
			parts = append(parts, turn.Assistant)
		}
	}

	parts = append(parts, ExtractEntities(message)...)
	return strings.Join(parts, " ")
}

// ExtractEntities pulls capitalized words out of the text as a cheap proxy for
// named entities. Duplicates are dropped, first-seen order is kept, and at
// most maxQueryEntities are returned.
func ExtractEntities(text string) []string {
	seen := make(map[string]struct{})
	var entities []string
	for _, word := range strings.Fields(text) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(word) <= 2 {
			continue
		}
		runes := []rune(word)
		if !unicode.IsUpper(runes[0]) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		entities = append(entities, word)
		if len(entities) >= maxQueryEntities {
			break
		}
	}
	return entities
}
