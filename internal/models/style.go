package models

// StylePolicy is the per-turn Style+Policy configuration produced by the
// Contextor. It is built fresh for every turn and never persisted.
type StylePolicy struct {
	Tone             string    `json:"tone"`
	HedgingLevel     int       `json:"hedging_level"`
	Formality        int       `json:"formality"`
	EmojiPolicy      string    `json:"emoji_policy"`
	TargetLenTokens  int       `json:"target_len_tokens"`
	CadenceNotes     string    `json:"cadence_notes,omitempty"`
	FollowUpRequired bool      `json:"follow_up_question_required"`
	SignatureMoves   []string  `json:"signature_moves"`
	Taboos           []string  `json:"taboos"`
	FewShots         []Example `json:"few_shots"`
	NegativeExample  *Example  `json:"negative_example,omitempty"`
}
