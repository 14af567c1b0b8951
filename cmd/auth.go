package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/server"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
)

// loginTimeout bounds the wait for the browser redirect.
const loginTimeout = 2 * time.Minute

// Login performs the PKCE authorization flow for Spotify.
//
// Starts a local HTTP server, opens browser for user authorization, and exchanges auth code for tokens.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClientID(); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, !cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	r.logger.Debug("token stored", "expiry", token.Expiry)
	r.writePlainln("✓ Logged in to Spotify")
	r.writePlain("You can now use: hitqr devices\n")
	return nil
}

// doOAuth executes the authorization flow with a local HTTP server receiving the redirect.
func (r *Runner) doOAuth(ctx context.Context, openBrowser bool) (*oauth2.Token, error) {
	a, err := r.authenticator()
	if err != nil {
		return nil, err
	}

	authURL, verifier, state, err := a.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start login: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(a, state, verifier)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))
	router.Handler(oauthHandler)

	srv, err := server.Start(r.cfg().Server.Addr(), router, shared.WithLogger(r.logger, "component", "server"))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()
	r.logger.Info("waiting for Spotify redirect", "addr", srv.Addr())

	if openBrowser {
		r.writePlain("→ Opening browser for Spotify login...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	} else {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	select {
	case result := <-oauthHandler.Result():
		if result.Err != nil {
			return nil, fmt.Errorf("authorization failed: %w", result.Err)
		}
		if result.Token == nil {
			return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
		}
		return result.Token, nil
	case err := <-srv.Err():
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Logout ends the session and removes the stored tokens.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	tokens, err := r.tokenClearer()
	if err != nil {
		return err
	}

	sess := r.session
	if sess == nil {
		sess = session.New(nil, session.Options{Tokens: tokens, Logger: r.logger})
	}
	if err := sess.LogOut(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	return r.writePlain("✓ Logged out\n")
}

// statusReport is the JSON shape of the status command.
type statusReport struct {
	LoggedIn   bool           `json:"logged_in"`
	User       string         `json:"user,omitempty"`
	Product    string         `json:"product,omitempty"`
	Device     *models.Device `json:"device,omitempty"`
	IsPlaying  bool           `json:"is_playing"`
	StartMode  string         `json:"start_mode"`
	Snippet    string         `json:"snippet"`
	PlayCount  int            `json:"play_count"`
	ConfigFile string         `json:"config_file,omitempty"`
}

// Status reports whether a user is logged in and what the player is doing.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	report := statusReport{
		StartMode:  r.startPolicy().Policy().String(),
		Snippet:    r.cfg().Playback.SnippetDuration().String(),
		ConfigFile: r.configPath,
	}

	if history, err := r.historyStore(); err == nil {
		if n, err := history.Count(); err == nil {
			report.PlayCount = n
		}
	}

	remote, err := r.playbackService(ctx)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
	case err != nil:
		return err
	default:
		report.LoggedIn = true
		user, err := remote.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
		}
		report.User = user.DisplayName
		if report.User == "" {
			report.User = user.ID
		}
		report.Product = user.Product

		state, err := remote.PlaybackState(ctx)
		if err != nil {
			r.logger.Warn("failed to read playback state", "error", err)
		} else if state != nil {
			report.Device = state.Device
			report.IsPlaying = state.IsPlaying
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlainHeader("hitqr status")
	if !report.LoggedIn {
		r.writePlain("Spotify:  ✗ Not logged in (run 'hitqr login')\n")
	} else {
		r.writePlain("Spotify:  ✓ %s", report.User)
		if report.Product != "" {
			r.writePlain(" (%s)", report.Product)
		}
		r.writePlain("\n")
		if report.Device != nil {
			playing := "idle"
			if report.IsPlaying {
				playing = "playing"
			}
			r.writePlain("Device:   %s (%s, %s)\n", report.Device.Name, report.Device.Type, playing)
		} else {
			r.writePlain("Device:   none active\n")
		}
	}
	r.writePlain("Start:    %s\n", report.StartMode)
	r.writePlain("Snippet:  %s\n", report.Snippet)
	r.writePlain("Plays:    %d\n", report.PlayCount)
	return nil
}
