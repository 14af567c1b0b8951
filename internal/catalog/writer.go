package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/desertthunder/hitqr/internal/models"
)

// Header is the header row written to deck catalogs.
var Header = []string{"Card#", "Title", "Artist", "Year", "SpotifyURL"}

// Write encodes entries as a deck catalog readable by [Parse].
func Write(w io.Writer, entries []models.CatalogEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range entries {
		if err := writer.Write([]string{e.CardID, e.Title, e.Artist, e.Year, e.TrackLink}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// ReadFile parses the deck catalog at path.
func ReadFile(path string) ([]models.CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// WriteFile writes entries to path, replacing any existing file.
func WriteFile(path string, entries []models.CatalogEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create catalog: %w", err)
	}
	if err := Write(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
