package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles session key/value database operations.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Put inserts or replaces a session value.
func (r *SessionRepository) Put(ctx context.Context, v *SessionValue) error {
	query := `
		INSERT INTO session_values (session_id, key, value, updated_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (session_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW(),
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query, v.SessionID, v.Key, v.Value, v.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upserting session value: %w", err)
	}
	return nil
}

// Get retrieves an unexpired session value.
func (r *SessionRepository) Get(ctx context.Context, sessionID, key string) (*SessionValue, error) {
	query := `
		SELECT session_id, key, value, updated_at, expires_at
		FROM session_values
		WHERE session_id = $1 AND key = $2 AND expires_at > NOW()
	`
	var v SessionValue
	err := r.pool.QueryRow(ctx, query, sessionID, key).Scan(
		&v.SessionID,
		&v.Key,
		&v.Value,
		&v.UpdatedAt,
		&v.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session value: %w", err)
	}
	return &v, nil
}

// Touch extends the expiry of every value in a session.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	query := `UPDATE session_values SET expires_at = $2 WHERE session_id = $1`
	if _, err := r.pool.Exec(ctx, query, sessionID, expiresAt); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// Delete removes a single session value.
func (r *SessionRepository) Delete(ctx context.Context, sessionID, key string) error {
	query := `DELETE FROM session_values WHERE session_id = $1 AND key = $2`
	_, err := r.pool.Exec(ctx, query, sessionID, key)
	if err != nil {
		return fmt.Errorf("deleting session value: %w", err)
	}
	return nil
}

// DeleteSession removes every value of a session.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	query := `DELETE FROM session_values WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpired removes all expired session values.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM session_values WHERE expires_at <= NOW()`
	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
