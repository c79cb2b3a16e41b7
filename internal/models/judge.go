package models

// JudgeScores holds the four axis scores plus the overall score, each in [1,5].
type JudgeScores struct {
	Factuality  float64 `json:"factuality"`
	Persona     float64 `json:"persona"`
	Helpfulness float64 `json:"helpfulness"`
	Safety      float64 `json:"safety"`
	Overall     float64 `json:"overall"`
}

// JudgeDecision is the outcome of one judging pass. When Accept is false,
// TargetedEdits carries up to 3 actionable instructions for the revise loop.
type JudgeDecision struct {
	Accept        bool        `json:"accept"`
	Scores        JudgeScores `json:"scores"`
	TargetedEdits []string    `json:"targeted_edits"`
	Reasoning     string      `json:"reasoning,omitempty"`
}
