// Package web provides the HTTP server, JSON API and HTML pages.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/go-setlist-to-playlist/internal/logging"
	"github.com/justestif/go-setlist-to-playlist/internal/session"
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = 15 * time.Minute

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	BaseURL     string
	TemplatesFS fs.FS
	StaticFS    fs.FS
	Auth        Authorizer
	Playlists   PlaylistService
	Sessions    *session.Manager
	Logger      *log.Logger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions *session.Manager
	handlers *Handlers
	logger   *log.Logger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig) (*Server, error) {
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		sessions: cfg.Sessions,
		handlers: NewHandlers(cfg.Auth, cfg.Playlists, cfg.Sessions, templates, cfg.BaseURL,
			logging.Component(logger, "handlers")),
		logger: logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // track matching makes one request per song
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.RequestLogger(logging.Component(s.logger, "http")))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	// Static files
	if staticFS != nil {
		fileServer := http.FileServer(http.FS(staticFS))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		// Pages
		r.Get("/", s.handlers.Home)
		r.Post("/playlists", s.handlers.CreatePlaylistPage)
		r.Post("/playlists/{playlistID}/tracks", s.handlers.PopulatePlaylistPartial)

		// Auth routes
		r.Get("/auth/login", s.handlers.Login)
		r.Get("/callback", s.handlers.Callback)
		r.Get("/auth/logout", s.handlers.Logout)
		r.Post("/auth/logout", s.handlers.Logout)
		r.Get("/auth/status", s.handlers.Status)

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Post("/playlists", s.handlers.CreatePlaylistAPI)
			r.Post("/playlists/{playlistID}/tracks", s.handlers.PopulatePlaylistAPI)
		})
	})
}

// Run starts the server and shuts it down gracefully once ctx is canceled.
// Expired sessions are purged in the background while it runs.
func (s *Server) Run(ctx context.Context) error {
	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	go s.sessions.RunCleanup(cleanupCtx, sessionCleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for cancellation or error
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
