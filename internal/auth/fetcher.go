package auth

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-setlist-to-playlist/internal/session"
)

// TokenFetcher returns a usable credential for a session, refreshing it
// when the stored access token has expired.
type TokenFetcher struct {
	auth   *Authenticator
	store  CredentialStore
	logger *log.Logger
}

// NewTokenFetcher creates a TokenFetcher that refreshes through a.
func NewTokenFetcher(a *Authenticator, logger *log.Logger) *TokenFetcher {
	return &TokenFetcher{auth: a, logger: logger}
}

// Fetch loads the session credential and refreshes it if expired.
// The refreshed credential overwrites the session entry.
func (f *TokenFetcher) Fetch(ctx context.Context, sess *session.Session) (*Credential, error) {
	cred, err := f.store.Load(ctx, sess)
	if err != nil {
		return nil, err
	}

	if !cred.Expired(f.auth.now()) {
		return cred, nil
	}

	f.logger.Debug("access token expired, refreshing", "session", sess.ID(), "expiry", cred.Expiry)

	fresh, err := f.auth.Refresh(ctx, cred)
	if err != nil {
		return nil, err
	}
	if err := f.store.Save(ctx, sess, fresh); err != nil {
		return nil, fmt.Errorf("storing refreshed credential: %w", err)
	}
	return fresh, nil
}
