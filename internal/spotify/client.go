// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/config"
)

const (
	serviceName    = "spotify"
	defaultBaseURL = "https://api.spotify.com/v1/"
)

// Client wraps the Spotify API client. Each call is authorized with the
// credential it is given; tokens are never refreshed behind the caller's back.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	logger    *log.Logger
}

// NewClient creates a new Spotify client wrapper.
func NewClient(cfg config.SpotifyConfig, logger *log.Logger) *Client {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		baseURL:   baseURL,
		transport: http.DefaultTransport,
		logger:    logger,
	}
}

// call is one authorized API session with the status of the last response.
type call struct {
	api    *spotify.Client
	status *statusRecorder
}

func (c *Client) newCall(tok *oauth2.Token) *call {
	rec := &statusRecorder{base: c.transport}
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(tok),
			Base:   rec,
		},
		Timeout: 15 * time.Second,
	}

	return &call{
		api:    spotify.New(httpClient, spotify.WithBaseURL(c.baseURL)),
		status: rec,
	}
}

// classify converts an error from the Spotify library into the pipeline's
// error taxonomy.
func (k *call) classify(op string, err error) error {
	status := k.status.last()

	var apiErr spotify.Error
	var apiErrPtr *spotify.Error
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status == 0 {
			apiErr.Status = status
		}
		return fmt.Errorf("%s: %w", op, apperrors.Upstream(serviceName, apiErr.Status, apiErr.Message))
	case errors.As(err, &apiErrPtr):
		if apiErrPtr.Status == 0 {
			apiErrPtr.Status = status
		}
		return fmt.Errorf("%s: %w", op, apperrors.Upstream(serviceName, apiErrPtr.Status, apiErrPtr.Message))
	case status != 0 && (status < 200 || status > 299):
		return fmt.Errorf("%s: %w", op, apperrors.Upstream(serviceName, status, ""))
	case status >= 200 && status <= 299:
		// The request succeeded but the body could not be decoded.
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrMalformedResponse, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// statusRecorder remembers the status code of the most recent response.
type statusRecorder struct {
	base http.RoundTripper

	mu     sync.Mutex
	status int
}

func (s *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := s.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.status = resp.StatusCode
	s.mu.Unlock()
	return resp, nil
}

func (s *statusRecorder) last() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// CurrentUserID returns the Spotify ID of the user owning accessToken.
func (c *Client) CurrentUserID(ctx context.Context, accessToken string) (string, error) {
	k := c.newCall(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})

	user, err := k.api.CurrentUser(ctx)
	if err != nil {
		return "", k.classify("getting current user", err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("getting current user: %w: profile has no id", apperrors.ErrMalformedResponse)
	}
	return user.ID, nil
}
