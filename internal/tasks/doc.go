// Package tasks runs long catalog jobs with non-blocking progress reporting.
//
// # Catalog Enrichment
//
// [Enricher.Enrich] fills in missing track links of a deck catalog. Every row without a playable link is
// searched on Spotify as "<title> <artist>". The first result whose title and artist match the row, ignoring
// case, wins; otherwise the top result is used. Rows that already carry a link are kept as they are.
//
// Searches run on a small worker pool behind a rate limiter. A failed search is counted against its row and
// never aborts the run.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Updates use select with default so a slow
// or absent reader never blocks the job.
package tasks
