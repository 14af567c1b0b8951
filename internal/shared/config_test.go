package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./hitqr.db" {
			t.Errorf("expected database path ./hitqr.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Playback.SnippetSeconds != 10 {
			t.Errorf("expected snippet of 10 seconds, got %d", config.Playback.SnippetSeconds)
		}

		if config.Catalog.Prefix != "hitster" {
			t.Errorf("expected catalog prefix hitster, got %s", config.Catalog.Prefix)
		}

		if config.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Spotify.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[spotify]
client_id = "test_client_id"

[playback]
snippet_seconds = 15
mode = "random"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Spotify.ClientID)
		}

		if config.Playback.SnippetDuration() != 15*time.Second {
			t.Errorf("expected 15s snippet, got %v", config.Playback.SnippetDuration())
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected default port to survive partial file, got %d", config.Server.Port)
		}
	})

	t.Run("Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[database\npath = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv(EnvClientID, "env_client")
		t.Setenv(EnvCatalogBaseURL, "https://decks.example.com")
		t.Setenv(EnvSnippetSeconds, "20")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Spotify.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Spotify.ClientID)
		}
		if config.Catalog.BaseURL != "https://decks.example.com" {
			t.Errorf("expected env base url, got %s", config.Catalog.BaseURL)
		}
		if config.Playback.SnippetSeconds != 20 {
			t.Errorf("expected env snippet seconds, got %d", config.Playback.SnippetSeconds)
		}
	})

	t.Run("LoadEnvFile", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(envPath, []byte(EnvDatabasePath+"=/tmp/from-env.db\n"), 0644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv(EnvDatabasePath, "")
		os.Unsetenv(EnvDatabasePath)

		if err := LoadEnvFile(envPath); err != nil {
			t.Fatalf("failed to load env file: %v", err)
		}

		if got := os.Getenv(EnvDatabasePath); got != "/tmp/from-env.db" {
			t.Errorf("expected env var from file, got %q", got)
		}

		if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Errorf("missing env file should not error, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err != nil {
			t.Errorf("expected default config to validate, got %v", err)
		}

		config.Playback.Mode = "shuffle"
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for unknown mode, got %v", err)
		}

		config = DefaultConfig()
		config.Spotify.ClientID = ""
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig for missing client id, got %v", err)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Playback.Mode = "custom"
		config.Playback.CustomStart = 45

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Playback.Mode != "custom" || loaded.Playback.CustomStart != 45 {
			t.Errorf("expected saved playback settings, got %+v", loaded.Playback)
		}
	})
}
