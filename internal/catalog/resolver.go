package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/hitqr/internal/cards"
	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

const (
	// TrackLinkPrefix is the only track link shape a catalog row may carry.
	TrackLinkPrefix = "https://open.spotify.com/track/"
	trackURIPrefix  = "spotify:track:"
)

// Resolver maps card references to playable catalog entries.
//
// Decks are loaded on first use and cached; a failed load is not cached so the next scan retries it.
// Concurrent first loads of one deck share a single fetch.
type Resolver struct {
	fetcher Fetcher
	logger  *log.Logger

	mu    sync.RWMutex
	decks map[string][]models.CatalogEntry
	group singleflight.Group
}

// NewResolver creates a [Resolver] reading decks through fetcher.
func NewResolver(fetcher Fetcher, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		decks:   make(map[string][]models.CatalogEntry),
	}
}

// Resolve finds the catalog row for ref and validates its track link.
func (r *Resolver) Resolve(ctx context.Context, ref *models.CardReference) (*models.CatalogEntry, error) {
	if ref == nil {
		return nil, fmt.Errorf("%w: nil card reference", shared.ErrInvalidInput)
	}

	entries, err := r.Deck(ctx, ref.DeckID)
	if err != nil {
		return nil, err
	}

	return Lookup(entries, ref.CardID)
}

// Deck returns the parsed catalog for deckID, fetching it on first use.
func (r *Resolver) Deck(ctx context.Context, deckID string) ([]models.CatalogEntry, error) {
	r.mu.RLock()
	entries, ok := r.decks[deckID]
	r.mu.RUnlock()
	if ok {
		return entries, nil
	}

	// The shared load outlives any single caller; each caller still honors its own ctx.
	ch := r.group.DoChan(deckID, func() (any, error) {
		return r.load(context.WithoutCancel(ctx), deckID)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogFetch, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]models.CatalogEntry), nil
	}
}

func (r *Resolver) load(ctx context.Context, deckID string) ([]models.CatalogEntry, error) {
	r.logger.Debug("loading deck catalog", "deck", deckID)

	body, err := r.fetcher.Fetch(ctx, deckID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	entries, err := Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: deck %s: %w", shared.ErrCatalogFetch, deckID, err)
	}

	r.mu.Lock()
	r.decks[deckID] = entries
	r.mu.Unlock()

	r.logger.Debug("deck catalog loaded", "deck", deckID, "rows", len(entries))
	return entries, nil
}

// Lookup scans entries for the first row whose card id equals the normalized cardID.
//
// The returned entry is a copy with TrackID and TrackURI filled from its link.
func Lookup(entries []models.CatalogEntry, cardID string) (*models.CatalogEntry, error) {
	want := cards.NormalizeCardID(cardID)
	if want == "" {
		return nil, fmt.Errorf("%w: %q", shared.ErrCardNotFound, cardID)
	}

	for _, entry := range entries {
		if entry.CardID != want {
			continue
		}

		trackID, ok := TrackIDFromLink(entry.TrackLink)
		if !ok {
			return nil, fmt.Errorf("%w: card %s", shared.ErrNoPlayableLink, want)
		}

		entry.TrackID = trackID
		entry.TrackURI = TrackURI(trackID)
		return &entry, nil
	}

	return nil, fmt.Errorf("%w: %s", shared.ErrCardNotFound, want)
}

// TrackIDFromLink extracts the track id from an open.spotify.com track link, ignoring any query or fragment.
func TrackIDFromLink(link string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(link), TrackLinkPrefix)
	if !ok {
		return "", false
	}
	if i := strings.IndexAny(rest, "?#/"); i >= 0 {
		rest = rest[:i]
	}
	return rest, rest != ""
}

// TrackLink builds the open.spotify.com link for a track id.
func TrackLink(trackID string) string {
	return TrackLinkPrefix + trackID
}

// TrackURI builds the spotify:track URI for a track id.
func TrackURI(trackID string) string {
	return trackURIPrefix + trackID
}
