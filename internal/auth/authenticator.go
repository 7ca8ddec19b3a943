package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/config"
)

// Scopes requested during login.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopeUserLibraryModify,
	spotifyauth.ScopeUserLibraryRead,
}

// Authenticator talks to the Spotify accounts service.
type Authenticator struct {
	config     *oauth2.Config
	httpClient *http.Client
	now        func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithHTTPClient sets the client used for token requests.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = c
	}
}

// WithClock sets the time source used to compute credential expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

// New creates an Authenticator from the Spotify settings.
// Returns config.ErrMissingCredentials if the client ID or secret is empty.
func New(cfg config.SpotifyConfig, opts ...Option) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, config.ErrMissingCredentials
	}

	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	a := &Authenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AuthURL returns the Spotify consent page URL for state.
// The consent dialog is always shown so users can switch accounts.
func (a *Authenticator) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, spotifyauth.ShowDialog)
}

// Exchange trades an authorization code for a credential.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*Credential, error) {
	tok, err := a.config.Exchange(a.context(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchanging code: %w", apperrors.ErrAuthProvider, err)
	}
	return newCredential(tok, a.now())
}

// Refresh obtains a new access token using the credential's refresh token.
// The old refresh token is kept when the provider does not issue a new one.
func (a *Authenticator) Refresh(ctx context.Context, cred *Credential) (*Credential, error) {
	if cred.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", apperrors.ErrAuthProvider)
	}

	src := a.config.TokenSource(a.context(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refreshing token: %w", apperrors.ErrAuthProvider, err)
	}

	fresh, err := newCredential(tok, a.now())
	if err != nil {
		return nil, err
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}
	return fresh, nil
}

func (a *Authenticator) context(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
