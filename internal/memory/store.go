package memory

import (
	"context"

	"Mimic_1.0/internal/models"
)

// Store is the durable conversation memory: append-only turn history, one
// rolling summary per session, and long-lived episodic notes per user. Turn
// index assignment must be atomic so concurrent requests for the same session
// can never produce duplicate indices.
type Store interface {
	// AppendTurn persists the turn and returns its assigned index (0-based,
	// strictly increasing per session).
	AppendTurn(ctx context.Context, turn *models.Turn) (int, error)

	// History returns up to limit most recent turns, oldest first. limit <= 0
	// returns the full history.
	History(ctx context.Context, sessionID string, limit int) ([]models.HistoryTurn, error)

	// TurnCount returns the number of turns stored for the session.
	TurnCount(ctx context.Context, sessionID string) (int, error)

	// Summary returns the session's rolling summary, or nil when none exists.
	Summary(ctx context.Context, sessionID string) (*models.ConversationSummary, error)

	// UpsertSummary overwrites the session's rolling summary.
	UpsertSummary(ctx context.Context, summary *models.ConversationSummary) error

	// AddNote appends an episodic note. Notes are additive and never deduplicated.
	AddNote(ctx context.Context, note *models.EpisodicNote) error

	// Notes returns up to limit most recent notes for the user, newest first.
	Notes(ctx context.Context, userID string, limit int) ([]models.EpisodicNote, error)
}
