package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/justestif/go-setlist-to-playlist/internal/apperrors"
	"github.com/justestif/go-setlist-to-playlist/internal/auth"
	"github.com/justestif/go-setlist-to-playlist/internal/playlist"
	"github.com/justestif/go-setlist-to-playlist/internal/session"
	"github.com/justestif/go-setlist-to-playlist/internal/setlistfm"
	"github.com/justestif/go-setlist-to-playlist/internal/spotify"
)

const (
	// pendingURLCookie holds a setlist URL submitted before logging in.
	pendingURLCookie = "submitted_setlist_url"

	maxBodyBytes = 1 << 20
)

// Authorizer runs the OAuth authorization-code flow.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Credential, error)
}

// PlaylistService generates and populates playlists.
type PlaylistService interface {
	Generate(ctx context.Context, sess *session.Session, url string) (*playlist.Generated, error)
	Populate(ctx context.Context, sess *session.Session, playlistID string, setlist *setlistfm.Setlist) (*spotify.MatchResult, error)
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth        Authorizer
	credentials auth.CredentialStore
	playlists   PlaylistService
	sessions    *session.Manager
	templates   *Templates
	baseURL     string
	logger      *log.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(authorizer Authorizer, playlists PlaylistService, sessions *session.Manager, templates *Templates, baseURL string, logger *log.Logger) *Handlers {
	if baseURL == "" {
		baseURL = "/"
	}
	return &Handlers{
		auth:      authorizer,
		playlists: playlists,
		sessions:  sessions,
		templates: templates,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	page, ok := h.pageData(w, r, "Setlist to Playlist")
	if !ok {
		return
	}
	data := HomePageData{PageData: page}

	if cookie, err := r.Cookie(pendingURLCookie); err == nil {
		data.PendingURL = cookie.Value
		clearPendingURL(w)
	}

	h.render(w, http.StatusOK, "home", data)
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())

	// Generate state for CSRF protection
	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("generating oauth state", "err", err)
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	if err := sess.SetString(r.Context(), auth.StateKey, state); err != nil {
		h.logger.Error("storing oauth state", "err", err)
		http.Error(w, "Failed to store state", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusFound)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	query := r.URL.Query()

	// Check for error from Spotify
	if errMsg := query.Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	// Verify state
	expected, err := sess.GetString(ctx, auth.StateKey)
	if err != nil {
		h.logger.Error("reading oauth state", "err", err)
		http.Error(w, "Failed to read state", http.StatusInternalServerError)
		return
	}
	if expected == "" || query.Get("state") != expected {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}
	if err := sess.Remove(ctx, auth.StateKey); err != nil {
		h.logger.Warn("clearing oauth state", "err", err)
	}

	cred, err := h.auth.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("exchanging code", "err", err)
		http.Error(w, "Failed to get token", apperrors.HTTPStatus(err))
		return
	}

	if err := h.credentials.Save(ctx, sess, cred); err != nil {
		h.logger.Error("storing credential", "err", err)
		http.Error(w, "Failed to store token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("user logged in", "session", sess.ID())
	http.Redirect(w, r, h.baseURL, http.StatusFound)
}

// Logout ends the session and redirects home (GET/POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), w, session.FromContext(r.Context())); err != nil {
		h.logger.Warn("destroying session", "err", err)
	}
	http.Redirect(w, r, h.baseURL, http.StatusFound)
}

// Status reports whether the session holds a credential (GET /auth/status).
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	ok, err := h.credentials.Present(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.logger.Error("reading credential", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to read session")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// CreatePlaylistAPI resolves a setlist and creates its playlist (POST /api/playlists).
// The body is {"url": "..."} or a bare JSON string.
func (h *Handlers) CreatePlaylistAPI(w http.ResponseWriter, r *http.Request) {
	url, err := decodeURL(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	generated, err := h.playlists.Generate(r.Context(), session.FromContext(r.Context()), url)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generated)
}

// PopulatePlaylistAPI fills a playlist with the setlist in the body
// (POST /api/playlists/{playlistID}/tracks).
func (h *Handlers) PopulatePlaylistAPI(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	var setlist setlistfm.Setlist
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&setlist); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid setlist body")
		return
	}

	result, err := h.playlists.Populate(r.Context(), session.FromContext(r.Context()), playlistID, &setlist)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CreatePlaylistPage handles the home page form (POST /playlists).
// Unauthenticated users are sent to log in with the URL kept for later.
func (h *Handlers) CreatePlaylistPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)
	url := strings.TrimSpace(r.FormValue("url"))

	if url == "" {
		h.renderHome(w, r, http.StatusBadRequest, "", "Please enter a setlist.fm URL.")
		return
	}

	ok, err := h.credentials.Present(ctx, sess)
	if err != nil {
		h.logger.Error("reading credential", "err", err)
		http.Error(w, "Failed to read session", http.StatusInternalServerError)
		return
	}
	if !ok {
		setPendingURL(w, url)
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	generated, err := h.playlists.Generate(ctx, sess, url)
	if err != nil {
		status := h.pipelineStatus(r, err)
		if status == http.StatusUnauthorized {
			setPendingURL(w, url)
			http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
			return
		}
		h.renderHome(w, r, status, url, errorMessage(err))
		return
	}

	setlistJSON, err := json.Marshal(generated.Setlist)
	if err != nil {
		h.logger.Error("encoding setlist", "err", err)
		http.Error(w, "Failed to encode setlist", http.StatusInternalServerError)
		return
	}

	page, ok := h.pageData(w, r, generated.Playlist.Name)
	if !ok {
		return
	}
	h.render(w, http.StatusOK, "playlist", PlaylistPageData{
		PageData:    page,
		Playlist:    generated.Playlist,
		Setlist:     generated.Setlist,
		SetlistJSON: string(setlistJSON),
		Songs:       generated.Setlist.Songs(),
	})
}

// PopulatePlaylistPartial fills the playlist and returns an HTMX fragment
// (POST /playlists/{playlistID}/tracks).
func (h *Handlers) PopulatePlaylistPartial(w http.ResponseWriter, r *http.Request) {
	playlistID := chi.URLParam(r, "playlistID")

	var setlist setlistfm.Setlist
	if err := json.Unmarshal([]byte(r.FormValue("setlist")), &setlist); err != nil {
		h.renderPartial(w, http.StatusBadRequest, "tracks", TracksPartialData{Error: "Invalid setlist."})
		return
	}

	result, err := h.playlists.Populate(r.Context(), session.FromContext(r.Context()), playlistID, &setlist)
	if err != nil {
		status := h.pipelineStatus(r, err)
		h.renderPartial(w, status, "tracks", TracksPartialData{Error: errorMessage(err)})
		return
	}

	h.renderPartial(w, http.StatusOK, "tracks", TracksPartialData{Result: result})
}

// pageData builds the common page fields. On a session read failure it
// writes a 500 and returns false.
func (h *Handlers) pageData(w http.ResponseWriter, r *http.Request, title string) (PageData, bool) {
	authenticated, err := h.credentials.Present(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.logger.Error("reading credential", "err", err)
		http.Error(w, "Failed to read session", http.StatusInternalServerError)
		return PageData{}, false
	}
	return PageData{
		Title:         title,
		Authenticated: authenticated,
		CurrentPath:   r.URL.Path,
	}, true
}

func (h *Handlers) renderHome(w http.ResponseWriter, r *http.Request, status int, url, message string) {
	page, ok := h.pageData(w, r, "Setlist to Playlist")
	if !ok {
		return
	}
	data := HomePageData{
		PageData:   page,
		PendingURL: url,
	}
	data.Flash = &FlashMessage{Type: "error", Message: message}
	h.render(w, status, "home", data)
}

func (h *Handlers) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template", "page", page, "err", err)
	}
}

func (h *Handlers) renderPartial(w http.ResponseWriter, status int, partial string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.RenderPartial(w, partial, data); err != nil {
		h.logger.Error("rendering partial", "partial", partial, "err", err)
	}
}

// pipelineStatus maps err to a response status, dropping a credential that
// can no longer be decoded so the next login starts clean.
func (h *Handlers) pipelineStatus(r *http.Request, err error) int {
	status := apperrors.HTTPStatus(err)
	if errors.Is(err, apperrors.ErrMalformedCredential) {
		if delErr := h.credentials.Delete(r.Context(), session.FromContext(r.Context())); delErr != nil {
			h.logger.Warn("removing malformed credential", "err", delErr)
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("pipeline failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		h.logger.Warn("pipeline rejected request", "path", r.URL.Path, "status", status, "err", err)
	}
	return status
}

func (h *Handlers) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSONError(w, h.pipelineStatus(r, err), errorMessage(err))
}

// errorMessage returns the text shown to users for a pipeline error.
func errorMessage(err error) string {
	var upstream *apperrors.UpstreamError
	switch {
	case errors.Is(err, apperrors.ErrUnauthenticated), errors.Is(err, apperrors.ErrMalformedCredential):
		return "Please log in with Spotify."
	case errors.Is(err, apperrors.ErrMissingRequiredField):
		return "That setlist is missing its artist or date."
	case errors.Is(err, apperrors.ErrAuthProvider):
		return "Spotify rejected the login. Please log in again."
	case errors.As(err, &upstream):
		return fmt.Sprintf("%s returned an error (HTTP %d).", upstream.Service, upstream.Status)
	case errors.Is(err, apperrors.ErrMalformedResponse):
		return "Received an unexpected response from an upstream service."
	default:
		return "Something went wrong."
	}
}

// decodeURL reads {"url": "..."} or a bare JSON string.
func decodeURL(body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	var url string
	if err := json.Unmarshal(raw, &url); err != nil {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", errors.New("body must be a JSON string or {\"url\": ...}")
		}
		url = req.URL
	}

	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("url is required")
	}
	return url, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func setPendingURL(w http.ResponseWriter, url string) {
	http.SetCookie(w, &http.Cookie{
		Name:     pendingURLCookie,
		Value:    url,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600, // 10 minutes
	})
}

func clearPendingURL(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     pendingURLCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
