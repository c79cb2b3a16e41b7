package models

// Fact is an atomic, citable statement about a persona. The corpus is loaded
// once per session lifetime and is immutable afterwards; citation markers in
// responses refer to Fact IDs (e.g. [D3]).
type Fact struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Source     string   `json:"source"`
	Date       string   `json:"date,omitempty"`
	Stance     string   `json:"stance,omitempty"`
	Confidence float64  `json:"confidence"`
	Entities   []string `json:"entities,omitempty"`
}

// RetrievalCandidate carries a fact through the retrieval pipeline. FusedScore
// is the hybrid (lexical+dense) score; RerankScore is set only after reranking
// and fully supersedes the fusion order once present. Both fields are kept so
// the two rankings are never conflated.
type RetrievalCandidate struct {
	Fact        *Fact
	FusedScore  float64
	RerankScore *float64
	Confidence  float64
}
