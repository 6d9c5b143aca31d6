package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrLimitExceeded = errors.New("session limit reached")
)

// Store is an in-memory session registry with idle expiry. Sessions live
// for the process lifetime at most; there is no durable persistence.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	limit    int
	logger   zerolog.Logger
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

// NewStore creates a session store. A ttl of zero disables idle expiry;
// a limit of zero disables the session cap.
func NewStore(ttl time.Duration, limit int, logger zerolog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		limit:    limit,
		logger:   logger.With().Str("component", "session_store").Logger(),
	}
}

// Create starts a new session on the given default project.
func (st *Store) Create(defaultProject string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.limit > 0 && len(st.sessions) >= st.limit {
		return nil, ErrLimitExceeded
	}

	s := New(defaultProject)
	st.sessions[s.ID] = &entry{session: s, lastUsed: time.Now()}
	st.logger.Debug().Str("session_id", s.ID).Str("project", defaultProject).Msg("session created")
	return s, nil
}

// Get returns the session with the given ID and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if st.expired(e, time.Now()) {
		delete(st.sessions, id)
		return nil, ErrNotFound
	}
	e.lastUsed = time.Now()
	return e.session, nil
}

// Delete ends a session.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Cleanup removes idle-expired sessions and reports how many were dropped.
func (st *Store) Cleanup() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	dropped := 0
	for id, e := range st.sessions {
		if st.expired(e, now) {
			delete(st.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		st.logger.Debug().Int("dropped", dropped).Msg("expired sessions cleaned up")
	}
	return dropped
}

// RunCleanup runs Cleanup on the given interval until ctx is cancelled.
func (st *Store) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Cleanup()
		}
	}
}

func (st *Store) expired(e *entry, now time.Time) bool {
	return st.ttl > 0 && now.Sub(e.lastUsed) > st.ttl
}
