package session

import (
	"context"
	"errors"
	"time"

	"github.com/justestif/go-setlist-to-playlist/internal/db"
)

// PostgresStore keeps sessions in PostgreSQL so they survive restarts.
type PostgresStore struct {
	database *db.DB
	ttl      time.Duration
}

// NewPostgresStore creates a database-backed store with the given idle TTL.
func NewPostgresStore(database *db.DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{database: database, ttl: ttl}
}

// Load retrieves a value and slides the session expiry forward.
func (s *PostgresStore) Load(ctx context.Context, sessionID, key string) ([]byte, error) {
	v, err := s.database.Sessions().Get(ctx, sessionID, key)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.database.Sessions().Touch(ctx, sessionID, time.Now().Add(s.ttl)); err != nil {
		return nil, err
	}
	return v.Value, nil
}

// Save upserts a value.
func (s *PostgresStore) Save(ctx context.Context, sessionID, key string, value []byte) error {
	return s.database.Sessions().Put(ctx, &db.SessionValue{
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		ExpiresAt: time.Now().Add(s.ttl),
	})
}

// Remove deletes one key.
func (s *PostgresStore) Remove(ctx context.Context, sessionID, key string) error {
	return s.database.Sessions().Delete(ctx, sessionID, key)
}

// Destroy deletes the whole session.
func (s *PostgresStore) Destroy(ctx context.Context, sessionID string) error {
	return s.database.Sessions().DeleteSession(ctx, sessionID)
}

// Cleanup removes expired rows.
func (s *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	return s.database.Sessions().DeleteExpired(ctx)
}

// Ensure both stores implement Store.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
