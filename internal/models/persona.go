package models

// SpeakingStyle captures the measurable voice parameters of a persona.
type SpeakingStyle struct {
	// AvgSentenceLen is the [min, max] sentence length in words.
	AvgSentenceLen   []int    `json:"avg_sentence_len"`
	HedgingLevel     int      `json:"hedging_level"`
	Formality        int      `json:"formality"`
	EmojiPolicy      string   `json:"emoji_policy"` // "none", "light" or "rich"
	SignaturePhrases []string `json:"signature_phrases"`
}

// PersonaProfile is the profile artifact generated at ingestion time. It is a
// read-only input to the Contextor, Refiner and Judge.
type PersonaProfile struct {
	Name              string        `json:"name"`
	Backstory         string        `json:"backstory"`
	Values            []string      `json:"values"`
	TopicsOfExpertise []string      `json:"topics_of_expertise"`
	SpeakingStyle     SpeakingStyle `json:"speaking_style"`
	TaboosRefs        []string      `json:"taboos_refs,omitempty"`
}

// Example is a labeled user/assistant transcript pair used as a few-shot
// style anchor.
type Example struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
	Intent    string `json:"intent,omitempty"`
}
