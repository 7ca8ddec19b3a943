package db

import "time"

// SessionValue is one key of a browser session.
type SessionValue struct {
	SessionID string
	Key       string
	Value     []byte
	UpdatedAt time.Time
	ExpiresAt time.Time
}
