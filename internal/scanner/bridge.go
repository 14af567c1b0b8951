package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hitqr/internal/cards"
	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/playback"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
)

// Resolver finds the catalog entry of a card. [catalog.Resolver] satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, ref *models.CardReference) (*models.CatalogEntry, error)
}

// Player plays a resolved card. [playback.Controller] satisfies it.
//
// BeginScan numbers a decode when it is accepted; PlayScannedCard returns [shared.ErrSuperseded] when a
// later decode was accepted before the card could be played.
type Player interface {
	BeginScan() uint64
	PlayScannedCard(ctx context.Context, scan uint64, ref *models.CardReference, entry *models.CatalogEntry, policy playback.StartPolicy) error
}

// Bridge turns decodes into played cards.
type Bridge struct {
	resolver Resolver
	player   Player
	policy   func() playback.StartPolicy
	notifier session.Notifier
	logger   *log.Logger

	replay atomic.Bool
}

// NewBridge creates a bridge. policy is read for every card so a mode change applies to the next scan.
func NewBridge(resolver Resolver, player Player, policy func() playback.StartPolicy, notifier session.Notifier, logger *log.Logger) *Bridge {
	if policy == nil {
		policy = func() playback.StartPolicy { return playback.StartPolicy{Mode: playback.ModeBeginning} }
	}
	if notifier == nil {
		notifier = session.NotifierFunc(func(session.Notification) {})
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Bridge{resolver: resolver, player: player, policy: policy, notifier: notifier, logger: logger}
}

// ReplayEnabled reports whether a card has been played successfully.
func (b *Bridge) ReplayEnabled() bool {
	return b.replay.Load()
}

// ResetReplay disables replay, for a fresh session.
func (b *Bridge) ResetReplay() {
	b.replay.Store(false)
}

// Run starts src and handles its decodes until the run ends or ctx is done, then waits for cards still being
// played. Each card link is handled in its own goroutine so a slow catalog fetch never holds up the next
// scan; the controller makes sure the latest one wins.
func (b *Bridge) Run(ctx context.Context, src Source) error {
	if err := src.Start(ctx); err != nil {
		return err
	}
	defer src.Cancel()

	// Playback already dispatched outlives the scan.
	handlerCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()

	decodes := src.Decodes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-decodes:
			if !ok {
				return nil
			}
			ref, ok := cards.Parse(raw)
			if !ok {
				b.logger.Debug("ignoring decode", "raw", raw)
				continue
			}

			// Numbered in scan order, before the lookup, so the latest scan wins however long each lookup takes.
			scan := b.player.BeginScan()
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = b.handle(handlerCtx, scan, ref)
			}()
		}
	}
}

// Handle processes a single decode. Anything that is not a card link is ignored and nil is returned.
// Failures are reported to the notifier and returned.
func (b *Bridge) Handle(ctx context.Context, raw string) error {
	ref, ok := cards.Parse(raw)
	if !ok {
		b.logger.Debug("ignoring decode", "raw", raw)
		return nil
	}
	return b.handle(ctx, b.player.BeginScan(), ref)
}

func (b *Bridge) handle(ctx context.Context, scan uint64, ref *models.CardReference) error {
	logger := b.logger.With("deck", ref.DeckID, "card", ref.CardID, "scan", scan)

	entry, err := b.resolver.Resolve(ctx, ref)
	if err != nil {
		logger.Warn("card could not be resolved", "error", err)
		b.report(err)
		return err
	}

	if err := b.player.PlayScannedCard(ctx, scan, ref, entry, b.policy()); err != nil {
		if errors.Is(err, shared.ErrSuperseded) {
			logger.Debug("card dropped for a later scan")
			return nil
		}
		logger.Warn("card could not be played", "error", err)
		b.report(err)
		return err
	}

	b.replay.Store(true)
	b.notifier.Notify(session.Notification{
		Level:   session.LevelInfo,
		Message: fmt.Sprintf("Playing card %s", cards.NormalizeCardID(ref.CardID)),
	})
	return nil
}

func (b *Bridge) report(err error) {
	// The session has already announced the logout.
	if errors.Is(err, shared.ErrUnauthorized) {
		return
	}

	level := session.LevelError
	if playback.IsUserError(err) || errors.Is(err, shared.ErrCardNotFound) {
		level = session.LevelWarn
	}
	b.notifier.Notify(session.Notification{Level: level, Message: Describe(err), Err: err})
}

// Describe turns a card or playback failure into a short message for the player.
func Describe(err error) string {
	switch {
	case errors.Is(err, shared.ErrCatalogFetch):
		return "Could not load the catalog for this deck"
	case errors.Is(err, shared.ErrMalformedRow):
		return "The catalog for this deck is damaged"
	case errors.Is(err, shared.ErrCardNotFound):
		return "This card is not in the catalog"
	case errors.Is(err, shared.ErrNoPlayableLink):
		return "This card has no playable track"
	case errors.Is(err, shared.ErrNoDeviceSelected):
		return "Select a playback device first"
	case errors.Is(err, shared.ErrNoPlaylistSelected):
		return "Select a playlist first"
	case errors.Is(err, shared.ErrEmptyPlaylist):
		return "The playlist has no playable tracks"
	case errors.Is(err, shared.ErrSessionClosed):
		return "Log in to play"
	case errors.Is(err, shared.ErrPlayback):
		return "Playback failed"
	default:
		return "Something went wrong"
	}
}
