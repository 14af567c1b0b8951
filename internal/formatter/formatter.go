// package formatter renders play history, devices and playlists for the command line (CSV, Markdown, plain
// text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

// Format is an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat parses a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// HistoryEntry is the exported shape of a [models.Play].
type HistoryEntry struct {
	ID       string    `json:"id"`
	PlayedAt time.Time `json:"played_at"`
	Source   string    `json:"source"`
	DeckID   string    `json:"deck_id,omitempty"`
	CardID   string    `json:"card_id,omitempty"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Year     string    `json:"year,omitempty"`
	TrackURI string    `json:"track_uri"`
	OffsetMs int       `json:"offset_ms"`
	DeviceID string    `json:"device_id"`
}

func historyEntries(plays []*models.Play) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(plays))
	for _, p := range plays {
		out = append(out, HistoryEntry{
			ID:       p.ID(),
			PlayedAt: p.PlayedAt,
			Source:   string(p.Source),
			DeckID:   p.DeckID,
			CardID:   p.CardID,
			Title:    p.Title,
			Artist:   p.Artist,
			Year:     p.Year,
			TrackURI: p.TrackURI,
			OffsetMs: p.OffsetMs,
			DeviceID: p.DeviceID,
		})
	}
	return out
}

func card(p *models.Play) string {
	if p.CardID == "" {
		return ""
	}
	if p.DeckID == "" {
		return "#" + p.CardID
	}
	return p.DeckID + " #" + p.CardID
}

// HistoryToCSV renders plays with columns: Played, Source, Card, Title, Artist, Year, Offset, TrackURI.
func HistoryToCSV(plays []*models.Play) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Played", "Source", "Card", "Title", "Artist", "Year", "Offset", "TrackURI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range plays {
		record := []string{
			p.PlayedAt.UTC().Format(time.RFC3339),
			string(p.Source),
			card(p),
			p.Title,
			p.Artist,
			p.Year,
			strconv.Itoa(p.OffsetMs),
			p.TrackURI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// HistoryToMarkdown renders plays as a Markdown table under title.
func HistoryToMarkdown(plays []*models.Play, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Play history"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Plays**: %d\n\n", len(plays))

	if len(plays) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| Played | Card | Song | Year | Start |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, p := range plays {
		fmt.Fprintf(&buf, "| %s | %s | %s - %s | %s | %s |\n",
			p.PlayedAt.Local().Format("2006-01-02 15:04"),
			escapeCell(card(p)),
			escapeCell(p.Artist), escapeCell(p.Title),
			p.Year,
			shared.FormatOffset(p.OffsetMs),
		)
	}
	return buf.Bytes(), nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// HistoryToText renders plays one per line, newest first as given.
func HistoryToText(plays []*models.Play) ([]byte, error) {
	var buf bytes.Buffer

	if len(plays) == 0 {
		buf.WriteString("No plays recorded yet\n")
		return buf.Bytes(), nil
	}

	for i, p := range plays {
		label := card(p)
		if label == "" {
			label = string(p.Source)
		}
		fmt.Fprintf(&buf, "%d. [%s] %s - %s (%s) from %s, %s\n",
			i+1, label, p.Artist, p.Title, yearOrUnknown(p.Year),
			shared.FormatOffset(p.OffsetMs), p.PlayedAt.Local().Format("Jan 2 15:04"))
	}
	return buf.Bytes(), nil
}

func yearOrUnknown(year string) string {
	if year == "" {
		return "unknown year"
	}
	return year
}

// HistoryToJSON renders plays as an indented JSON array.
func HistoryToJSON(plays []*models.Play) ([]byte, error) {
	return shared.MarshalJSON(historyEntries(plays), true)
}

// FormatHistory renders plays in format.
func FormatHistory(plays []*models.Play, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return HistoryToCSV(plays)
	case FormatMarkdown:
		return HistoryToMarkdown(plays, "")
	case FormatJSON:
		return HistoryToJSON(plays)
	default:
		return HistoryToText(plays)
	}
}

// WriteHistory renders plays to w.
func WriteHistory(w io.Writer, plays []*models.Play, format Format) error {
	data, err := FormatHistory(plays, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// WriteHistoryFile renders plays to path, replacing any existing file.
func WriteHistoryFile(path string, plays []*models.Play, format Format) error {
	data, err := FormatHistory(plays, format)
	if err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// DevicesToText lists devices, marking the current one with an arrow and active ones with a star.
func DevicesToText(devices []models.Device, currentID string) []byte {
	var buf bytes.Buffer

	if len(devices) == 0 {
		buf.WriteString("No devices found. Open Spotify on a phone, speaker or computer.\n")
		return buf.Bytes()
	}

	for _, d := range devices {
		marker := "  "
		if d.ID != "" && d.ID == currentID {
			marker = "→ "
		}
		active := ""
		if d.IsActive {
			active = " ★"
		}
		id := d.ID
		if id == "" {
			id = "(restricted)"
		}
		fmt.Fprintf(&buf, "%s%s [%s] %s%s\n", marker, d.Name, d.Type, id, active)
	}
	return buf.Bytes()
}

// PlaylistsToText lists playlists, marking the selected one.
func PlaylistsToText(playlists []models.Playlist, selectedID string) []byte {
	var buf bytes.Buffer

	if len(playlists) == 0 {
		buf.WriteString("No playlists found\n")
		return buf.Bytes()
	}

	for i, p := range playlists {
		marker := "  "
		if p.ID == selectedID && selectedID != "" {
			marker = "→ "
		}
		fmt.Fprintf(&buf, "%s%d. %s (%d tracks) %s\n", marker, i+1, p.Name, p.TrackCount, p.ID)
	}
	return buf.Bytes()
}

// EntryToText describes a resolved catalog entry.
func EntryToText(ref *models.CardReference, e *models.CatalogEntry) []byte {
	var buf bytes.Buffer
	if ref != nil {
		fmt.Fprintf(&buf, "Deck:   %s\n", ref.DeckID)
	}
	fmt.Fprintf(&buf, "Card:   %s\n", e.CardID)
	fmt.Fprintf(&buf, "Title:  %s\n", e.Title)
	fmt.Fprintf(&buf, "Artist: %s\n", e.Artist)
	fmt.Fprintf(&buf, "Year:   %s\n", yearOrUnknown(e.Year))
	fmt.Fprintf(&buf, "Track:  %s\n", e.TrackURI)
	return buf.Bytes()
}
