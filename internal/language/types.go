// Package language wraps the two Azure Language collaborators: conversation
// analysis (intent classification) and question answering. The adapters shape
// raw collaborator responses into typed results and own no state beyond the
// HTTP client and the answer cache.
package language

// Entity is a labeled span extracted from the question text. Category is
// always present; Text may be absent and is treated as empty for matching.
type Entity struct {
	Category   string  `json:"category"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// IntentResult is the classification outcome for one question. Entities
// preserve the order returned by the collaborator, first-match routing
// depends on it.
type IntentResult struct {
	TopIntent string   `json:"top_intent"`
	Entities  []Entity `json:"entities"`
}

// AnswerResult is the outcome of a knowledge base lookup. Zero candidate
// answers is a normal result, not an error: Found is false and Answer empty.
type AnswerResult struct {
	Found      bool    `json:"found"`
	Answer     string  `json:"answer,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}
