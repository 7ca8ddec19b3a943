package session

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 24 * time.Hour

type memorySession struct {
	values   map[string][]byte
	lastSeen time.Time
}

// MemoryStore keeps sessions in memory. Intended for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store with the given idle TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Load returns a copy of the stored value.
func (s *MemoryStore) Load(_ context.Context, sessionID, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	// Check if session has expired
	if s.now().Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	sess.lastSeen = s.now()

	v, ok := sess.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

// Save stores a copy of value.
func (s *MemoryStore) Save(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{values: make(map[string][]byte)}
		s.sessions[sessionID] = sess
	}
	sess.values[key] = append([]byte(nil), value...)
	sess.lastSeen = s.now()
	return nil
}

// Remove deletes one key.
func (s *MemoryStore) Remove(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sessionID]; ok {
		delete(sess.values, key)
	}
	return nil
}

// Destroy deletes the whole session.
func (s *MemoryStore) Destroy(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Cleanup drops idle sessions and reports how many were removed.
func (s *MemoryStore) Cleanup(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, sess := range s.sessions {
		if s.now().Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
