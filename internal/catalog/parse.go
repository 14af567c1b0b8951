package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

// minFields is the number of columns every catalog row must carry.
const minFields = 5

// RowError reports a catalog row that could not be parsed.
type RowError struct {
	Line   int
	Fields int
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil && !errors.Is(e.Err, shared.ErrMalformedRow) {
		return fmt.Sprintf("%v on line %d: %v", shared.ErrMalformedRow, e.Line, e.Err)
	}
	return fmt.Sprintf("%v on line %d: expected at least %d fields, got %d", shared.ErrMalformedRow, e.Line, minFields, e.Fields)
}

// Unwrap exposes [shared.ErrMalformedRow] and, for CSV syntax errors, the underlying cause.
func (e *RowError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrMalformedRow}
	}
	return []error{shared.ErrMalformedRow, e.Err}
}

// Parse reads a deck catalog. The first row is a header and is skipped, as are blank lines.
//
// Fields may be wrapped in double quotes to carry commas. Columns past the fifth are ignored.
// A row with fewer than five fields fails the whole parse with a [*RowError].
func Parse(r io.Reader) ([]models.CatalogEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var entries []models.CatalogEntry
	header := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, &RowError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}

		if header {
			header = false
			continue
		}

		if len(record) < minFields {
			line, _ := reader.FieldPos(0)
			return nil, &RowError{Line: line, Fields: len(record)}
		}

		entries = append(entries, models.CatalogEntry{
			CardID:    record[0],
			Title:     record[1],
			Artist:    record[2],
			Year:      strings.TrimSpace(record[3]),
			TrackLink: strings.TrimSpace(record[4]),
		})
	}

	return entries, nil
}
