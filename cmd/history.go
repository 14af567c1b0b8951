package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitqr/internal/formatter"
)

// History prints or exports recent plays.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	store, err := r.historyStore()
	if err != nil {
		return err
	}

	if cmd.Bool("clear") {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		return r.writePlain("✓ History cleared\n")
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	plays, err := store.Recent(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if out := cmd.String("output"); out != "" {
		if err := formatter.WriteHistoryFile(out, plays, format); err != nil {
			return err
		}
		r.logger.Info("history exported", "file", out, "plays", len(plays))
		return r.writePlain("✓ %d plays written to %s\n", len(plays), out)
	}

	return formatter.WriteHistory(r.output, plays, format)
}
