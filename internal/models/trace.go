package models

import "time"

// TraceCandidate is a compact view of one reranked candidate for tracing.
type TraceCandidate struct {
	FactID     string  `json:"fact_id"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// TraceJudgePass records the outcome of a single judge invocation.
type TraceJudgePass struct {
	Scores JudgeScores `json:"scores"`
	Accept bool        `json:"accept"`
	Edits  []string    `json:"edits,omitempty"`
}

// TraceRecord captures every stage's output for one turn, for debugging via
// the trace endpoint. Stored separately from the durable turn history.
type TraceRecord struct {
	TraceID               string           `json:"trace_id"`
	SessionID             string           `json:"session_id"`
	Timestamp             time.Time        `json:"timestamp"`
	UserMessage           string           `json:"user_message"`
	Query                 string           `json:"query"`
	InitialRetrievalCount int              `json:"initial_retrieval_count"`
	RetrievalResults      []TraceCandidate `json:"retrieval_results"`
	RetrievedConfidence   float64          `json:"retrieved_confidence"`
	ProducerOutput        string           `json:"producer_output"`
	ContextorOutput       *StylePolicy     `json:"contextor_output,omitempty"`
	RefinerOutput         string           `json:"refiner_output"`
	JudgePasses           []TraceJudgePass `json:"judge_passes"`
	Iterations            int              `json:"iterations"`
	FinalResponse         string           `json:"final_response"`
	NotesUsed             []string         `json:"notes_used"`
}
