package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/session"
)

const (
	// CredentialKey is the session key holding the JSON-encoded credential.
	CredentialKey = "spotify_auth_token"

	// StateKey is the session key holding the pending OAuth state.
	StateKey = "spotify_auth_state"
)

// CredentialStore reads and writes credentials in a session.
type CredentialStore struct{}

// Load reads the credential from sess.
// Returns apperrors.ErrUnauthenticated if there is none and
// apperrors.ErrMalformedCredential if it cannot be decoded.
func (CredentialStore) Load(ctx context.Context, sess *session.Session) (*Credential, error) {
	if sess == nil {
		return nil, apperrors.ErrUnauthenticated
	}

	data, err := sess.Get(ctx, CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if len(data) == 0 {
		return nil, apperrors.ErrUnauthenticated
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrMalformedCredential, err)
	}
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", apperrors.ErrMalformedCredential)
	}
	return &cred, nil
}

// Save writes cred to sess, replacing any previous credential.
func (CredentialStore) Save(ctx context.Context, sess *session.Session, cred *Credential) error {
	if cred == nil {
		return fmt.Errorf("cannot save nil credential")
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	if err := sess.Set(ctx, CredentialKey, data); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Delete removes the credential from sess.
func (CredentialStore) Delete(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	return sess.Remove(ctx, CredentialKey)
}

// Present reports whether sess holds a credential, without validating it.
func (CredentialStore) Present(ctx context.Context, sess *session.Session) (bool, error) {
	if sess == nil {
		return false, nil
	}
	data, err := sess.Get(ctx, CredentialKey)
	if err != nil {
		return false, err
	}
	return len(data) > 0, nil
}
