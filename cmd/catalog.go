package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/hitqr/internal/catalog"
	"github.com/desertthunder/hitqr/internal/shared"
	"github.com/desertthunder/hitqr/internal/tasks"
)

// CatalogShow lists every card of a deck.
func (r *Runner) CatalogShow(ctx context.Context, cmd *cli.Command) error {
	deck := cmd.StringArg("deck")
	if deck == "" {
		return fmt.Errorf("%w: deck id", shared.ErrMissingArgument)
	}

	resolver, err := r.catalogResolver()
	if err != nil {
		return err
	}

	entries, err := resolver.Deck(ctx, deck)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	r.writePlainHeader(fmt.Sprintf("Deck %s (%d cards)", deck, len(entries)))
	for _, e := range entries {
		link := "✓"
		if _, ok := catalog.TrackIDFromLink(e.TrackLink); !ok {
			link = "✗"
		}
		r.writePlain("%s %5s  %s - %s (%s)\n", link, e.CardID, e.Artist, e.Title, e.Year)
	}
	return nil
}

// CatalogEnrich fills missing track links of a catalog CSV by searching Spotify.
func (r *Runner) CatalogEnrich(ctx context.Context, cmd *cli.Command) error {
	in := cmd.String("in")
	out := cmd.String("out")
	if out == "" {
		out = in
	}

	searcher, err := r.catalogSearcher(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("enriching catalog", "in", in, "out", out)
	r.writePlain("Enriching catalog %s...\n", in)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.LoadCatalog:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SearchTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.WriteCatalog:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	enricher := tasks.NewEnricher(searcher, shared.WithLogger(r.logger, "component", "enrich"))
	result, err := enricher.EnrichFile(ctx, progressCh, in, out, tasks.EnrichOpts{
		Workers:   int(cmd.Int("workers")),
		RateLimit: r.cfg().Spotify.RateLimit,
		Overwrite: cmd.Bool("overwrite"),
		FillYear:  cmd.Bool("fill-year"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Catalog Enriched")
	r.writePlain("Cards: %d\n", result.Total)
	r.writePlain("Already linked: %d\n", result.Kept)
	r.writePlain("Matched: %d\n", result.Matched)
	r.writePlain("No match: %d\n", result.Missing)
	r.writePlain("Failed: %d\n", result.Failed)

	if result.Missing+result.Failed > 0 {
		r.writePlain("\nCards without a link:\n")
		for _, res := range result.Results {
			if res.Status == tasks.RowMissing || res.Status == tasks.RowFailed {
				r.writePlain("  - #%s %s - %s\n", res.Entry.CardID, res.Entry.Artist, res.Entry.Title)
			}
		}
	}
	return nil
}
