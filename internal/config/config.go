// Package config loads application configuration from TOML, .env and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET")

// ErrMissingAPIKey is returned when SETLISTFM_API_KEY is not set.
var ErrMissingAPIKey = errors.New("missing SETLISTFM_API_KEY")

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	Setlistfm SetlistfmConfig `toml:"setlistfm"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	BaseURL         string `toml:"base_url"` // where the browser lands after login/logout
	SessionTTLHours int    `toml:"session_ttl_hours"`
	SecureCookies   bool   `toml:"secure_cookies"`
}

// SpotifyConfig contains Spotify OAuth and API settings.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	APIBaseURL   string `toml:"api_base_url"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
}

// SetlistfmConfig contains setlist.fm API settings.
type SetlistfmConfig struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// DatabaseConfig selects the session backend. An empty URL keeps sessions in memory.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration defined by the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load reads the TOML file at path on top of the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{"SPOTIFY_ID", &c.Spotify.ClientID},
		{"SPOTIFY_SECRET", &c.Spotify.ClientSecret},
		{"SPOTIFY_REDIRECT_URI", &c.Spotify.RedirectURI},
		{"SETLISTFM_API_KEY", &c.Setlistfm.APIKey},
		{"DATABASE_URL", &c.Database.URL},
		{"LOG_LEVEL", &c.Logging.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

// Validate checks that everything needed to serve requests is present.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.Setlistfm.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr cannot be empty")
	}
	if c.Spotify.RedirectURI == "" {
		return fmt.Errorf("spotify redirect_uri cannot be empty")
	}
	if c.Server.SessionTTLHours < 1 {
		return fmt.Errorf("session_ttl_hours must be at least 1")
	}
	if c.Setlistfm.RequestsPerSecond < 0 {
		return fmt.Errorf("setlistfm requests_per_second cannot be negative")
	}
	return nil
}

// SessionTTL returns the idle lifetime of a browser session.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTLHours) * time.Hour
}

// CreateFile writes the example configuration to path, refusing to overwrite.
func CreateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
