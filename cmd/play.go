package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitqr/internal/cards"
	"github.com/desertthunder/hitqr/internal/formatter"
	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/playback"
	"github.com/desertthunder/hitqr/internal/scanner"
	"github.com/desertthunder/hitqr/internal/server"
	"github.com/desertthunder/hitqr/internal/shared"
)

const (
	snippetPoll  = 100 * time.Millisecond
	pauseTimeout = 5 * time.Second
)

// Devices lists the Connect devices, optionally transferring playback to one of them first.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	if err := r.establish(ctx, nil); err != nil {
		return err
	}

	if id := cmd.String("select"); id != "" {
		if err := r.session.SetCurrentDevice(ctx, id); err != nil {
			return err
		}
		r.writePlain("✓ Playback moved to %s\n\n", id)
	}

	snap := r.session.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(snap.Devices, true)
	}
	_, err := r.output.Write(formatter.DevicesToText(snap.Devices, snap.CurrentDeviceID))
	return err
}

// Playlists lists the user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	if err := r.establish(ctx, nil); err != nil {
		return err
	}

	snap := r.session.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(snap.Playlists, true)
	}
	_, err := r.output.Write(formatter.PlaylistsToText(snap.Playlists, ""))
	return err
}

// Resolve prints the catalog entry of a card link. No login is needed.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	ref, err := cardArg(cmd)
	if err != nil {
		return err
	}

	resolver, err := r.catalogResolver()
	if err != nil {
		return err
	}

	entry, err := resolver.Resolve(ctx, ref)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Deck string `json:"deck"`
			*models.CatalogEntry
		}{ref.DeckID, entry}, true)
	}
	_, err = r.output.Write(formatter.EntryToText(ref, entry))
	return err
}

// Play plays the snippet of one card and waits for it to stop.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	ref, err := cardArg(cmd)
	if err != nil {
		return err
	}

	if err := r.establish(ctx, nil); err != nil {
		return err
	}

	policy := r.startPolicy().Policy()
	if err := r.bridge.Handle(ctx, cmd.StringArg("url")); err != nil {
		return err
	}
	r.writePlain("▶ Playing card %s from deck %s (start: %s)\n", cards.NormalizeCardID(ref.CardID), ref.DeckID, policy)

	return r.finishSnippet(ctx, cmd)
}

// Random plays a snippet of a random track from a playlist.
func (r *Runner) Random(ctx context.Context, cmd *cli.Command) error {
	if err := r.establish(ctx, nil); err != nil {
		return err
	}

	if err := r.session.SelectPlaylist(cmd.String("playlist")); err != nil {
		return err
	}

	if _, err := r.controller.PlayRandomFromSelectedPlaylist(ctx, r.startPolicy().Policy()); err != nil {
		return err
	}
	r.writePlain("▶ Playing a random track from %s\n", r.session.SelectedPlaylist().Name)

	return r.finishSnippet(ctx, cmd)
}

// Scan plays cards as they are scanned until the input ends or the command is interrupted.
//
// Links are read one per line from stdin, which suits keyboard wedge scanners, or from websocket clients
// when --listen is set.
func (r *Runner) Scan(ctx context.Context, cmd *cli.Command) error {
	if err := r.establish(ctx, nil); err != nil {
		return err
	}

	logger := shared.WithLogger(r.logger, "component", "scanner")

	var src scanner.Source
	if addr := cmd.String("listen"); addr != "" {
		feed := scanner.NewFeedSource(0)
		feedHandler := server.NewScanFeedHandler(feed, logger)

		router := server.NewBasicRouter()
		router.Use(server.Recover(r.logger), server.Logging(r.logger))
		router.Handler(feedHandler)

		srv, err := server.Start(addr, router, shared.WithLogger(r.logger, "component", "server"))
		if err != nil {
			return fmt.Errorf("failed to start scan server: %w", err)
		}
		defer func() {
			feedHandler.Close()
			if err := srv.Shutdown(context.Background()); err != nil {
				r.logger.Warn("error shutting down server", "error", err)
			}
		}()

		r.writePlain("→ Listening for scans on ws://%s/scan (Ctrl+C to stop)\n", srv.Addr())
		src = feed
	} else {
		r.writePlain("→ Scan a card, one link per line (Ctrl+D to stop)\n")
		src = scanner.NewLineSource(r.input, logger)
	}

	r.writePlain("  Start: %s, snippet: %s\n", r.startPolicy().Policy(), r.cfg().Playback.SnippetDuration())

	err := r.bridge.Run(ctx, src)
	r.waitForSnippet(ctx)
	return err
}

// finishSnippet waits for the auto-stop unless --no-wait is set and prints the song when --reveal is.
func (r *Runner) finishSnippet(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("no-wait") {
		return nil
	}

	r.waitForSnippet(ctx)

	if cmd.Bool("reveal") {
		if song, offset := r.session.Song(); song != nil {
			r.writePlain("♪ %s - %s (%s) from %s\n", song.Artist, song.Title, song.Year, shared.FormatOffset(offset))
		}
	}
	return nil
}

// waitForSnippet blocks while a snippet is playing. When ctx ends first the device is paused.
func (r *Runner) waitForSnippet(ctx context.Context) {
	ticker := time.NewTicker(snippetPoll)
	defer ticker.Stop()

	for {
		switch r.controller.State() {
		case playback.StateRequesting, playback.StatePlaying:
		default:
			return
		}

		select {
		case <-ctx.Done():
			r.pauseNow(ctx)
			return
		case <-ticker.C:
		}
	}
}

// pauseNow pauses the device even when ctx has already ended.
func (r *Runner) pauseNow(ctx context.Context) {
	pauseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pauseTimeout)
	defer cancel()
	if err := r.controller.PauseNow(pauseCtx); err != nil {
		r.logger.Warn("failed to pause on exit", "error", err)
	}
}

func cardArg(cmd *cli.Command) (*models.CardReference, error) {
	raw := cmd.StringArg("url")
	if raw == "" {
		return nil, fmt.Errorf("%w: card link", shared.ErrMissingArgument)
	}
	ref, ok := cards.Parse(raw)
	if !ok {
		return nil, fmt.Errorf("%w: not a card link: %s", shared.ErrInvalidArgument, raw)
	}
	return ref, nil
}
