package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitqr/internal/playback"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
	"github.com/desertthunder/hitqr/internal/ui"
)

// tuiLogPath is where the TUI writes its log so it stays off the screen.
var tuiLogPath = filepath.Join(os.TempDir(), "hitqr-tui.log")

// TUI launches the interactive game screen.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	notes := session.NewChanNotifier(32)
	if err := r.connect(ctx, notes); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Session: r.session,
		Player:  r.controller,
		Scanner: r.bridge,
		Policy:  r.startPolicy(),
		Notes:   notes.C(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	// Leave the speaker quiet after quitting mid-snippet.
	switch r.controller.State() {
	case playback.StateRequesting, playback.StatePlaying:
		r.pauseNow(ctx)
	}

	if runErr != nil {
		return fmt.Errorf("error running TUI: %w", runErr)
	}
	return nil
}
