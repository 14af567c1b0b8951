package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/hitqr/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.command().Run(ctx, os.Args); err != nil {
		stop()
		if errors.Is(err, shared.ErrNotAuthenticated) {
			logger.Error("not logged in", "error", err)
			os.Exit(2)
		}
		logger.Fatalf("application error: %v", err)
	}
}
