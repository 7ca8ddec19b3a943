// Package session provides per-browser key/value storage behind a cookie.
package session

import (
	"context"
)

// Store is string-keyed byte storage scoped by session ID.
// Load returns (nil, nil) when the key is absent.
type Store interface {
	Load(ctx context.Context, sessionID, key string) ([]byte, error)
	Save(ctx context.Context, sessionID, key string, value []byte) error
	Remove(ctx context.Context, sessionID, key string) error
	Destroy(ctx context.Context, sessionID string) error
	Cleanup(ctx context.Context) (int64, error)
}

// Session is a handle on one browser session. It is passed explicitly to
// anything that needs per-user state.
type Session struct {
	id    string
	store Store
}

// New returns a handle for the session with the given ID.
func New(id string, store Store) *Session {
	return &Session{id: id, store: store}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key, or nil if there is none.
func (s *Session) Get(ctx context.Context, key string) ([]byte, error) {
	return s.store.Load(ctx, s.id, key)
}

// GetString is Get for string values.
func (s *Session) GetString(ctx context.Context, key string) (string, error) {
	b, err := s.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Set stores value under key, replacing any previous value.
func (s *Session) Set(ctx context.Context, key string, value []byte) error {
	return s.store.Save(ctx, s.id, key, value)
}

// SetString is Set for string values.
func (s *Session) SetString(ctx context.Context, key, value string) error {
	return s.Set(ctx, key, []byte(value))
}

// Remove deletes key from the session.
func (s *Session) Remove(ctx context.Context, key string) error {
	return s.store.Remove(ctx, s.id, key)
}

type contextKey struct{}

// WithSession attaches a session handle to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session attached by the middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
