package interview

import (
	"context"
	"sync"
	"time"

	"resumeforge/internal/errors"

	"github.com/google/uuid"
)

type storeEntry struct {
	session    *Session
	lastAccess time.Time
}

// Store is an in-process registry of sessions keyed by a random id.
// Sessions idle for longer than the TTL are evicted by the janitor.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*storeEntry
	ttl         time.Duration
	maxSessions int
	now         func() time.Time
	onRemove    func(ids []string)
	logger      *errors.Logger
}

// NewStore creates an empty store. maxSessions <= 0 means unlimited.
func NewStore(ttl time.Duration, maxSessions int, logger *errors.Logger) *Store {
	return &Store{
		sessions:    make(map[string]*storeEntry),
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		logger:      logger,
	}
}

// OnRemove registers fn to run with the ids of sessions after they are
// deleted or evicted. It is called with the store lock released.
func (s *Store) OnRemove(fn func(ids []string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = fn
}

func (s *Store) removed(ids []string, hook func([]string)) {
	if len(ids) > 0 && hook != nil {
		hook(ids)
	}
}

// Create registers a new session for owner.
func (s *Store) Create(owner, locale string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return nil, errors.NewConflictError("SESSION_LIMIT_REACHED", "too many active interview sessions", nil).
			WithContext("max_sessions", s.maxSessions)
	}

	session := NewSession(uuid.NewString(), owner, locale)
	s.sessions[session.ID()] = &storeEntry{session: session, lastAccess: s.now()}
	return session, nil
}

// Get returns the session with id and refreshes its idle timer.
// An expired session is removed and reported as not found.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return nil, sessionNotFound(id)
	}
	now := s.now()
	if s.expired(entry, now) && !entry.session.IsGenerating() {
		delete(s.sessions, id)
		hook := s.onRemove
		s.mu.Unlock()
		s.removed([]string{id}, hook)
		return nil, sessionNotFound(id)
	}
	entry.lastAccess = now
	s.mu.Unlock()
	return entry.session, nil
}

// Delete removes the session with id. It reports whether a session was removed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	hook := s.onRemove
	s.mu.Unlock()

	if ok {
		s.removed([]string{id}, hook)
	}
	return ok
}

// Len returns the number of sessions, including expired ones not yet evicted.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// EvictExpired removes idle sessions and returns how many were removed.
// Sessions with a generation in flight are kept until it ends.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	now := s.now()
	var evicted []string
	for id, entry := range s.sessions {
		if s.expired(entry, now) && !entry.session.IsGenerating() {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	hook := s.onRemove
	s.mu.Unlock()

	s.removed(evicted, hook)
	return len(evicted)
}

func (s *Store) expired(entry *storeEntry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.lastAccess) > s.ttl
}

// RunJanitor evicts expired sessions every interval until ctx is cancelled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if evicted := s.EvictExpired(); evicted > 0 && s.logger != nil {
				s.logger.Info("Evicted idle interview sessions", "count", evicted, "remaining", s.Len())
			}
		}
	}
}

func sessionNotFound(id string) error {
	return errors.NewNotFoundError(errors.ErrCodeSessionNotFound, "interview session not found", nil).
		WithContext("session_id", id)
}
