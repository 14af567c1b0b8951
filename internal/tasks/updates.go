package tasks

import (
	"fmt"

	"github.com/desertthunder/hitqr/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Phase of a catalog job.
type Phase int

const (
	LoadCatalog Phase = iota
	SearchTracks
	WriteCatalog
)

func (p Phase) String() string {
	switch p {
	case LoadCatalog:
		return "load_catalog"
	case SearchTracks:
		return "search_tracks"
	case WriteCatalog:
		return "write_catalog"
	default:
		return ""
	}
}

// sendProgress sends an update without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func startSearchUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Searching %d cards without a track link...", total),
	}
}

func rowUpdate(step, total int, res RowResult) ProgressUpdate {
	var msg string
	switch res.Status {
	case RowMatched:
		msg = fmt.Sprintf("[%d/%d] ✓ #%s %s - %s", step, total, res.Entry.CardID, res.Entry.Artist, res.Entry.Title)
	case RowMissing:
		msg = fmt.Sprintf("[%d/%d] ? #%s %s - %s: no match", step, total, res.Entry.CardID, res.Entry.Artist, res.Entry.Title)
	default:
		msg = fmt.Sprintf("[%d/%d] ✗ #%s %s - %s: %v", step, total, res.Entry.CardID, res.Entry.Artist, res.Entry.Title, res.Err)
	}
	return ProgressUpdate{Phase: SearchTracks, Step: step, Total: total, Message: msg, Data: res}
}

func catalogLoadedUpdate(entries []models.CatalogEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded catalog with %d cards", len(entries)),
	}
}

func catalogWrittenUpdate(path string, entries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteCatalog,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote %d cards to %s", entries, path),
	}
}
