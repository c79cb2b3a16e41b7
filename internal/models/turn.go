package models

import "time"

// HistoryTurn is one completed user/assistant exchange, as read back from the
// durable store when assembling context for the next turn.
type HistoryTurn struct {
	User      string `json:"user" bson:"user_message"`
	Assistant string `json:"assistant" bson:"assistant_response"`
}

// Turn is the append-only record of one completed exchange. Owned by the
// memory updater; never mutated after creation. TurnIndex is strictly
// increasing and unique per session.
type Turn struct {
	SessionID         string    `json:"session_id" bson:"session_id"`
	UserID            string    `json:"user_id" bson:"user_id"`
	TurnIndex         int       `json:"turn_index" bson:"turn_index"`
	UserMessage       string    `json:"user_message" bson:"user_message"`
	AssistantResponse string    `json:"assistant_response" bson:"assistant_response"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}

// ConversationSummary is the rolling summary for a session. One per session,
// overwritten on each refresh.
type ConversationSummary struct {
	SessionID      string    `json:"session_id" bson:"_id"`
	UserID         string    `json:"user_id" bson:"user_id"`
	RollingSummary string    `json:"rolling_summary" bson:"rolling_summary"`
	TurnCount      int       `json:"turn_count" bson:"turn_count"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
}

// EpisodicNote is a long-lived, cross-session note keyed by user id. Notes are
// additive and never deduplicated.
type EpisodicNote struct {
	UserID    string            `json:"user_id" bson:"user_id"`
	Bullet    string            `json:"bullet" bson:"bullet"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
}

// TurnResult is what a completed turn hands to the presentation layer.
type TurnResult struct {
	Response  string       `json:"response"`
	SessionID string       `json:"session_id"`
	Citations []string     `json:"citations"`
	Scores    *JudgeScores `json:"scores,omitempty"`
	Revised   bool         `json:"revised"`
	TraceID   string       `json:"trace_id"`
	Trace     *TraceRecord `json:"trace,omitempty"`
}
