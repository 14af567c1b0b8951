package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/hitqr/internal/catalog"
	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

// Searcher runs a catalog search. [spotify.Client] satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
}

// NewSpotifySearcher creates a search client using httpClient, which must attach the bearer token. An empty
// baseURL uses the public Web API.
func NewSpotifySearcher(httpClient *http.Client, baseURL string) *spotify.Client {
	var opts []spotify.ClientOption
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(baseURL, "/")+"/"))
	}
	return spotify.New(httpClient, opts...)
}

// RowStatus is the outcome for one catalog row.
type RowStatus int

const (
	RowKept RowStatus = iota
	RowMatched
	RowMissing
	RowFailed
)

func (s RowStatus) String() string {
	switch s {
	case RowMatched:
		return "matched"
	case RowMissing:
		return "missing"
	case RowFailed:
		return "failed"
	default:
		return "kept"
	}
}

// RowResult is the outcome of one searched row.
type RowResult struct {
	Index  int
	Entry  models.CatalogEntry
	Status RowStatus
	Err    error
}

// EnrichResult summarizes an enrichment run.
type EnrichResult struct {
	Entries []models.CatalogEntry // Every row, in input order, with links filled in
	Results []RowResult           // Searched rows, in input order
	Total   int
	Kept    int
	Matched int
	Missing int
	Failed  int
}

// EnrichOpts configures [Enricher.Enrich].
type EnrichOpts struct {
	Workers   int     // Concurrent searches (default: 3)
	RateLimit float64 // Searches per second (default: 5)
	Overwrite bool    // Search rows that already have a playable link
	FillYear  bool    // Set an empty year from the album release date
	Limit     int     // Search results to consider per row (default: 5)
}

// Enricher fills missing track links of deck catalogs.
type Enricher struct {
	search Searcher
	logger *log.Logger
}

// NewEnricher creates an [Enricher].
func NewEnricher(search Searcher, logger *log.Logger) *Enricher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Enricher{search: search, logger: logger}
}

type enrichJob struct {
	index int
	entry models.CatalogEntry
}

// Enrich searches every row that lacks a playable link and returns the updated catalog.
//
// Cancelling ctx stops the run; rows not yet searched are reported as failed.
func (e *Enricher) Enrich(ctx context.Context, progress chan<- ProgressUpdate, entries []models.CatalogEntry, opts EnrichOpts) (*EnrichResult, error) {
	if e.search == nil {
		return nil, fmt.Errorf("%w: search client not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}

	result := &EnrichResult{
		Entries: make([]models.CatalogEntry, len(entries)),
		Total:   len(entries),
	}
	copy(result.Entries, entries)
	sendProgress(progress, catalogLoadedUpdate(entries))

	var pending []enrichJob
	for i, entry := range entries {
		if _, ok := catalog.TrackIDFromLink(entry.TrackLink); ok && !opts.Overwrite {
			result.Kept++
			continue
		}
		pending = append(pending, enrichJob{index: i, entry: entry})
	}

	total := len(pending)
	sendProgress(progress, startSearchUpdate(total))
	if total == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan enrichJob, total)
	results := make(chan RowResult, total)

	var wg sync.WaitGroup
	for range min(opts.Workers, total) {
		wg.Add(1)
		go e.worker(ctx, &wg, limiter, jobs, results, opts)
	}

	for _, job := range pending {
		jobs <- job
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	byIndex := make(map[int]RowResult, total)
	step := 0
	for res := range results {
		step++
		byIndex[res.Index] = res
		sendProgress(progress, rowUpdate(step, total, res))

		switch res.Status {
		case RowMatched:
			result.Matched++
			result.Entries[res.Index] = res.Entry
		case RowMissing:
			result.Missing++
		case RowFailed:
			result.Failed++
		}
	}

	for _, job := range pending {
		result.Results = append(result.Results, byIndex[job.index])
	}

	e.logger.Info("catalog enrichment finished",
		"total", result.Total, "kept", result.Kept, "matched", result.Matched,
		"missing", result.Missing, "failed", result.Failed)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Enricher) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan enrichJob,
	results chan<- RowResult,
	opts EnrichOpts,
) {
	defer wg.Done()

	for job := range jobs {
		res := RowResult{Index: job.index, Entry: job.entry}

		if err := limiter.Wait(ctx); err != nil {
			res.Status, res.Err = RowFailed, err
			results <- res
			continue
		}

		track, err := e.find(ctx, job.entry, opts.Limit)
		switch {
		case err != nil:
			res.Status, res.Err = RowFailed, err
			e.logger.Warn("search failed", "card", job.entry.CardID, "error", err)
		case track == nil:
			res.Status = RowMissing
		default:
			res.Status = RowMatched
			res.Entry.TrackLink = catalog.TrackLink(string(track.ID))
			if opts.FillYear && res.Entry.Year == "" {
				res.Entry.Year = releaseYear(track.Album.ReleaseDate)
			}
		}
		results <- res
	}
}

// find returns the best search hit for entry, or nil when the search came back empty.
func (e *Enricher) find(ctx context.Context, entry models.CatalogEntry, limit int) (*spotify.FullTrack, error) {
	query := strings.TrimSpace(entry.Title + " " + entry.Artist)
	if query == "" {
		return nil, fmt.Errorf("%w: card %s has no title or artist", shared.ErrInvalidInput, entry.CardID)
	}

	res, err := e.search.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	if res == nil || res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, nil
	}

	tracks := res.Tracks.Tracks
	for i := range tracks {
		if matches(entry, &tracks[i]) {
			return &tracks[i], nil
		}
	}
	return &tracks[0], nil
}

func matches(entry models.CatalogEntry, track *spotify.FullTrack) bool {
	if !strings.EqualFold(strings.TrimSpace(track.Name), strings.TrimSpace(entry.Title)) {
		return false
	}
	for _, artist := range track.Artists {
		if strings.EqualFold(artist.Name, strings.TrimSpace(entry.Artist)) {
			return true
		}
	}
	return false
}

func releaseYear(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

// EnrichFile reads the catalog at in, enriches it and writes the result to out.
func (e *Enricher) EnrichFile(ctx context.Context, progress chan<- ProgressUpdate, in, out string, opts EnrichOpts) (*EnrichResult, error) {
	entries, err := catalog.ReadFile(in)
	if err != nil {
		return nil, err
	}

	result, err := e.Enrich(ctx, progress, entries, opts)
	if err != nil {
		return result, err
	}

	if err := catalog.WriteFile(out, result.Entries); err != nil {
		return result, err
	}
	sendProgress(progress, catalogWrittenUpdate(out, len(result.Entries)))
	return result, nil
}
