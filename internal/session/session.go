// Package session holds per-conversation state: the selected project, the
// accumulated turn history, and the most recent classification and answer.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carlosalonso99-tajamar/qna-conversational/internal/language"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is an immutable record of one message in the conversation. Two turns
// (user, then assistant) are appended per processed question.
type Turn struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is the mutable state of one conversation. It is mutated only by
// the turn orchestrator, which holds the lock for the duration of a turn so
// no two turns overlap on the same session.
type Session struct {
	mu sync.RWMutex `json:"-"`

	ID              string                `json:"id"`
	SelectedProject string                `json:"selected_project"`
	History         []Turn                `json:"history"`
	LastIntent      language.IntentResult `json:"last_intent"`
	LastAnswer      string                `json:"last_answer"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// New creates a session with the given default project and empty history.
func New(defaultProject string) *Session {
	now := time.Now()
	return &Session{
		ID:              uuid.New().String(),
		SelectedProject: defaultProject,
		History:         []Turn{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Lock locks the session for a turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session after a turn.
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendExchange records one completed question/answer exchange, in order.
// Caller must hold the lock.
func (s *Session) AppendExchange(question, answer string) {
	now := time.Now()
	s.History = append(s.History,
		Turn{Role: RoleUser, Content: question, At: now},
		Turn{Role: RoleAssistant, Content: answer, At: now},
	)
	s.UpdatedAt = now
}

// Snapshot returns a copy of the session that is safe to read and marshal
// without holding the lock.
func (s *Session) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]Turn, len(s.History))
	copy(history, s.History)

	return Session{
		ID:              s.ID,
		SelectedProject: s.SelectedProject,
		History:         history,
		LastIntent:      s.LastIntent,
		LastAnswer:      s.LastAnswer,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
