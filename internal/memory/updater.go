package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Mimic_1.0/internal/models"
	"Mimic_1.0/pkg/logger"
)

// preferenceKeywords flag a user message as worth an episodic note.
var preferenceKeywords = []string{"prefer", "like", "dislike", "always", "never"}

const notePreviewLen = 100

// Updater runs the post-turn memory work: appending the turn, refreshing the
// rolling summary every summaryWindowTurns turns, and capturing
// preference-indicating messages as episodic notes.
type Updater struct {
	log        *logger.Logger
	store      Store
	summarizer *Summarizer
}

// NewUpdater creates an Updater over the given store and summarizer.
func NewUpdater(store Store, summarizer *Summarizer, log *logger.Logger) *Updater {
	return &Updater{log: log, store: store, summarizer: summarizer}
}

// Store exposes the underlying store for history reads.
func (u *Updater) Store() Store {
	return u.store
}

// Update records a completed turn. Summary and note failures are logged, not
// propagated: the turn itself is already durable and the user already has
// their response.
func (u *Updater) Update(ctx context.Context, userID, sessionID, userMessage, assistantResponse string) error {
	turn := &models.Turn{
		SessionID:         sessionID,
		UserID:            userID,
		UserMessage:       userMessage,
		AssistantResponse: assistantResponse,
		CreatedAt:         time.Now().UTC(),
	}
	index, err := u.store.AppendTurn(ctx, turn)
	if err != nil {
		return fmt.Errorf("failed to persist turn: %w", err)
	}

	// Refresh the rolling summary every summaryWindowTurns turns (1-indexed
	// by total history length).
	totalTurns := index + 1
	if totalTurns%summaryWindowTurns == 0 {
		if err := u.refreshSummary(ctx, userID, sessionID, totalTurns); err != nil {
			u.log.Warn(fmt.Sprintf("Failed to refresh summary for session %s: %v", sessionID, err))
		}
	}

	if containsPreference(userMessage) {
		note := &models.EpisodicNote{
			UserID: userID,
			Bullet: "User mentioned: " + truncate(userMessage, notePreviewLen),
			Metadata: map[string]string{
				"response": truncate(assistantResponse, notePreviewLen),
			},
		}
		if err := u.store.AddNote(ctx, note); err != nil {
			u.log.Warn(fmt.Sprintf("Failed to add episodic note for user %s: %v", userID, err))
		}
	}
	return nil
}

func (u *Updater) refreshSummary(ctx context.Context, userID, sessionID string, totalTurns int) error {
	history, err := u.store.History(ctx, sessionID, summaryWindowTurns)
	if err != nil {
		return err
	}

	var previous string
	if existing, err := u.store.Summary(ctx, sessionID); err != nil {
		return err
	} else if existing != nil {
		previous = existing.RollingSummary
	}

	summary, err := u.summarizer.Summarize(ctx, history, previous)
	if err != nil {
		return err
	}
	return u.store.UpsertSummary(ctx, &models.ConversationSummary{
		SessionID:      sessionID,
		UserID:         userID,
		RollingSummary: summary,
		TurnCount:      totalTurns,
	})
}

func containsPreference(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range preferenceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
