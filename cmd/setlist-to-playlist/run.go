package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-setlist-to-playlist/internal/auth"
	"github.com/justestif/go-setlist-to-playlist/internal/config"
	"github.com/justestif/go-setlist-to-playlist/internal/db"
	"github.com/justestif/go-setlist-to-playlist/internal/logging"
	"github.com/justestif/go-setlist-to-playlist/internal/playlist"
	"github.com/justestif/go-setlist-to-playlist/internal/session"
	"github.com/justestif/go-setlist-to-playlist/internal/setlistfm"
	"github.com/justestif/go-setlist-to-playlist/internal/spotify"
	"github.com/justestif/go-setlist-to-playlist/internal/web"
	webfs "github.com/justestif/go-setlist-to-playlist/web"
)

// loadConfig reads the configuration named by the global flags and builds
// the root logger.
func loadConfig(cmd *cli.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, logging.New(os.Stderr, cfg.Logging.Level), nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	authenticator, err := auth.New(cfg.Spotify)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	service := playlist.New(
		auth.NewTokenFetcher(authenticator, logging.Component(logger, "auth")),
		setlistfm.NewClient(cfg.Setlistfm, logging.Component(logger, "setlistfm")),
		spotify.NewClient(cfg.Spotify, logging.Component(logger, "spotify")),
		logging.Component(logger, "playlist"),
	)

	server, err := web.NewServer(web.ServerConfig{
		Addr:        cfg.Server.Addr,
		BaseURL:     cfg.Server.BaseURL,
		TemplatesFS: webfs.Templates(),
		StaticFS:    webfs.Static(),
		Auth:        authenticator,
		Playlists:   service,
		Sessions: session.NewManager(store, cfg.SessionTTL(), cfg.Server.SecureCookies,
			logging.Component(logger, "session")),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx)
}

// newSessionStore uses PostgreSQL when a database URL is configured and
// memory otherwise.
func newSessionStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (session.Store, func(), error) {
	if cfg.Database.URL == "" {
		logger.Info("using in-memory sessions")
		return session.NewMemoryStore(cfg.SessionTTL()), func() {}, nil
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	logger.Info("using postgres sessions")
	return session.NewPostgresStore(database, cfg.SessionTTL()), database.Close, nil
}

func runSetlist(ctx context.Context, cmd *cli.Command) error {
	url := cmd.Args().First()
	if url == "" {
		return errors.New("usage: setlist-to-playlist setlist <url>")
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Setlistfm.APIKey == "" {
		return config.ErrMissingAPIKey
	}

	client := setlistfm.NewClient(cfg.Setlistfm, logging.Component(logger, "setlistfm"))
	setlist, err := client.Resolve(ctx, url)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(setlist)
	}

	name, err := playlist.PlaylistName(setlist)
	if err != nil {
		return err
	}
	description, err := playlist.PlaylistDescription(setlist)
	if err != nil {
		return err
	}

	fmt.Printf("Playlist:    %s\n", name)
	fmt.Printf("Description: %s\n", description)
	if setlist.Tour != nil && setlist.Tour.Name != "" {
		fmt.Printf("Tour:        %s\n", setlist.Tour.Name)
	}
	fmt.Println()
	for i, song := range setlist.Songs() {
		fmt.Printf("%3d. %s\n", i+1, song)
	}
	return nil
}

func runInitConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := config.CreateFile(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
