package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitqr/internal/shared"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = cmd.String("config")
	}

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			r.config = r.loadConfig(configPath)
		}
	}

	config := r.cfg()
	r.logger.Info("initializing database", "path", config.Database.Path)

	if _, err := r.database(); err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	if err := config.Validate(); err != nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Set spotify.client_id and a catalog location in %s\n", configPath)
		r.writePlain("2. Run 'hitqr login'\n")
		r.logger.Debug("config incomplete", "error", err)
		return nil
	}

	r.writePlain("\nYou can now use: hitqr login\n")
	return nil
}

// requireClientID fails when no Spotify app has been configured.
func (r *Runner) requireClientID() error {
	id := r.cfg().Spotify.ClientID
	if id == "" || id == "your_spotify_client_id" {
		return fmt.Errorf("%w: set spotify.client_id in %s or %s", shared.ErrMissingCredentials, r.configPath, shared.EnvClientID)
	}
	return nil
}
