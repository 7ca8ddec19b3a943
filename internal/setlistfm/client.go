// Package setlistfm provides a setlist.fm API client for resolving setlist URLs.
package setlistfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/config"
)

const (
	serviceName = "setlist.fm"
	userAgent   = "go-setlist-to-playlist/1.0"
)

// Client is a setlist.fm API client with client-side request pacing.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewClient creates a new setlist.fm API client from the provided configuration.
// A non-positive RequestsPerSecond disables pacing.
func NewClient(cfg config.SetlistfmConfig, logger *log.Logger) *Client {
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		apiKey: cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: limiter,
		logger:  logger,
	}
}

// ExtractID returns the setlist id embedded in a setlist.fm page URL: the last
// "-"-delimited segment with any ".html" removed. URLs of any other shape yield
// an id the service will reject.
func ExtractID(url string) string {
	parts := strings.Split(url, "-")
	return strings.ReplaceAll(parts[len(parts)-1], ".html", "")
}

// Resolve fetches the setlist referenced by a setlist.fm page URL.
func (c *Client) Resolve(ctx context.Context, url string) (*Setlist, error) {
	id := ExtractID(url)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	body, err := c.doRequest(ctx, c.baseURL+"/setlist/"+id)
	if err != nil {
		return nil, fmt.Errorf("fetching setlist %s: %w", id, err)
	}

	var setlist Setlist
	if err := json.Unmarshal(body, &setlist); err != nil {
		return nil, fmt.Errorf("%w: parsing setlist response: %w", apperrors.ErrMalformedResponse, err)
	}
	if setlist.ID == "" {
		return nil, fmt.Errorf("%w: setlist response has no id", apperrors.ErrMalformedResponse)
	}

	c.logger.Debug("resolved setlist", "id", setlist.ID, "artist", setlist.ArtistName(), "songs", len(setlist.Songs()))
	return &setlist, nil
}

// doRequest performs a single authenticated GET.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("User-Agent", userAgent)

	c.logger.Info("sending request", "method", req.Method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.Upstream(serviceName, resp.StatusCode, errorMessage(body))
	}

	return body, nil
}

// errorMessage pulls the message out of a setlist.fm error body, if any.
func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return ""
	}
	return apiErr.Message
}
