package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from config.toml.
const (
	EnvClientID       = "HITQR_SPOTIFY_CLIENT_ID"
	EnvRedirectURI    = "HITQR_SPOTIFY_REDIRECT_URI"
	EnvCatalogBaseURL = "HITQR_CATALOG_BASE_URL"
	EnvCatalogDir     = "HITQR_CATALOG_DIR"
	EnvDatabasePath   = "HITQR_DATABASE_PATH"
	EnvSnippetSeconds = "HITQR_SNIPPET_SECONDS"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Catalog  CatalogConfig  `toml:"catalog"`
	Playback PlaybackConfig `toml:"playback"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// SpotifyConfig contains Spotify API settings. The app is a public PKCE client, so no secret is stored.
type SpotifyConfig struct {
	ClientID    string  `toml:"client_id"`
	RedirectURI string  `toml:"redirect_uri"`
	APIURL      string  `toml:"api_url"`
	RateLimit   float64 `toml:"rate_limit"` // requests per second
}

// CatalogConfig locates deck CSV files. BaseURL takes precedence over Dir when set.
type CatalogConfig struct {
	BaseURL string `toml:"base_url"`
	Dir     string `toml:"dir"`
	Prefix  string `toml:"prefix"`
}

// PlaybackConfig holds snippet playback defaults.
type PlaybackConfig struct {
	SnippetSeconds int    `toml:"snippet_seconds"`
	Mode           string `toml:"mode"`         // beginning, custom, random
	CustomStart    int    `toml:"custom_start"` // seconds, used by custom mode
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the OAuth callback and scan feed.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SnippetDuration returns the configured auto-stop duration.
func (p PlaybackConfig) SnippetDuration() time.Duration {
	if p.SnippetSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(p.SnippetSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults, and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadEnvFile loads a .env file into the process environment if present.
//
// A missing file is not an error.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values from HITQR_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvRedirectURI); v != "" {
		c.Spotify.RedirectURI = v
	}
	if v := os.Getenv(EnvCatalogBaseURL); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv(EnvCatalogDir); v != "" {
		c.Catalog.Dir = v
	}
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvSnippetSeconds); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Playback.SnippetSeconds = n
		}
	}
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" {
		return fmt.Errorf("%w: spotify.client_id is required", ErrInvalidConfig)
	}
	if c.Catalog.BaseURL == "" && c.Catalog.Dir == "" {
		return fmt.Errorf("%w: catalog.base_url or catalog.dir is required", ErrInvalidConfig)
	}
	switch c.Playback.Mode {
	case "", "beginning", "custom", "random":
	default:
		return fmt.Errorf("%w: unknown playback.mode %q", ErrInvalidConfig, c.Playback.Mode)
	}
	return nil
}

// SaveConfig writes the configuration to path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
