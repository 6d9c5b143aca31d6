// Package api exposes the conversational core over HTTP.
package api

import (
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/language"
	"github.com/carlosalonso99-tajamar/qna-conversational/internal/session"
)

// ProblemDetail is an RFC 7807 Problem Detail error response.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// AskRequest is the payload for POST /api/v1/sessions/:id/ask. Either a free
// question or a reference to one of a project's configured example questions.
type AskRequest struct {
	Question string `json:"question,omitempty"`

	// Asking an example pins the session to that project first.
	ExampleProject string `json:"example_project,omitempty"`
	ExampleIndex   *int   `json:"example_index,omitempty"`
}

// AskResponse reports the outcome of one turn.
type AskResponse struct {
	SessionID  string                `json:"session_id"`
	Skipped    bool                  `json:"skipped,omitempty"`
	Project    string                `json:"project"`
	Intent     language.IntentResult `json:"intent"`
	Answer     string                `json:"answer,omitempty"`
	Found      bool                  `json:"found"`
	HistoryLen int                   `json:"history_len"`
}

// SessionResponse is the full session view.
type SessionResponse struct {
	Session session.Session `json:"session"`
}

// ProjectExamples lists one project's example questions.
type ProjectExamples struct {
	Project   string   `json:"project"`
	Questions []string `json:"questions"`
}

// ExamplesResponse groups example questions by project, in catalog order.
type ExamplesResponse struct {
	Default  string            `json:"default_project"`
	Projects []ProjectExamples `json:"projects"`
}
