package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
	tu "github.com/desertthunder/hitqr/internal/testing"
)

func samplePlays() []*models.Play {
	card := models.NewPlay("s1", models.SourceCard, &models.SongData{
		ID: "7", URI: "spotify:track:abc123", Title: "Hello, Goodbye", Artist: "The Beatles", Year: "1967",
	}, 30_000, "speaker")
	card.DeckID = "de"
	card.CardID = "7"
	card.PlayedAt = time.Date(2024, 5, 1, 20, 15, 0, 0, time.UTC)

	pick := models.NewPlay("s1", models.SourcePlaylist, &models.SongData{
		ID: "t1", URI: "spotify:track:t1", Title: "Pipe | Dream", Artist: "Band",
	}, 0, "speaker")
	pick.PlayedAt = time.Date(2024, 5, 1, 20, 16, 0, 0, time.UTC)

	return []*models.Play{card, pick}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatText,
		"txt":      FormatText,
		"CSV":      FormatCSV,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
		"json":     FormatJSON,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidFlag) {
		t.Errorf("expected ErrInvalidFlag, got %v", err)
	}
}

func TestHistoryFormats(t *testing.T) {
	plays := samplePlays()

	t.Run("CSV", func(t *testing.T) {
		data, err := HistoryToCSV(plays)
		if err != nil {
			t.Fatalf("HistoryToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Played,Source,Card,Title,Artist,Year,Offset,TrackURI\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, `2024-05-01T20:15:00Z,card,de #7,"Hello, Goodbye",The Beatles,1967,30000,spotify:track:abc123`) {
			t.Errorf("CSV missing card row, got: %s", output)
		}
		if !strings.Contains(output, "playlist,,") {
			t.Errorf("playlist row should have no card, got: %s", output)
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		data, err := HistoryToMarkdown(plays, "Friday night")
		if err != nil {
			t.Fatalf("HistoryToMarkdown failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "# Friday night") {
			t.Error("Markdown missing title")
		}
		if !strings.Contains(output, "**Plays**: 2") {
			t.Error("Markdown missing count")
		}
		if !strings.Contains(output, "The Beatles - Hello, Goodbye | 1967 | 0:30 |") {
			t.Errorf("Markdown missing card row, got: %s", output)
		}
		if !strings.Contains(output, `Pipe \| Dream`) {
			t.Error("pipes in cells should be escaped")
		}
	})

	t.Run("Markdown Empty", func(t *testing.T) {
		data, _ := HistoryToMarkdown(nil, "")
		if strings.Contains(string(data), "|") {
			t.Error("empty history should have no table")
		}
	})

	t.Run("Text", func(t *testing.T) {
		data, err := HistoryToText(plays)
		if err != nil {
			t.Fatalf("HistoryToText failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}
		if !strings.HasPrefix(lines[0], "1. [de #7] The Beatles - Hello, Goodbye (1967) from 0:30") {
			t.Errorf("unexpected first line %q", lines[0])
		}
		if !strings.Contains(lines[1], "[playlist]") || !strings.Contains(lines[1], "unknown year") {
			t.Errorf("unexpected second line %q", lines[1])
		}
	})

	t.Run("Text Empty", func(t *testing.T) {
		data, _ := HistoryToText(nil)
		if string(data) != "No plays recorded yet\n" {
			t.Errorf("unexpected output %q", data)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := HistoryToJSON(plays)
		if err != nil {
			t.Fatalf("HistoryToJSON failed: %v", err)
		}

		var entries []HistoryEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(entries) != 2 || entries[0].ID == "" || entries[0].CardID != "7" || entries[0].OffsetMs != 30_000 {
			t.Errorf("unexpected entries %+v", entries)
		}
	})
}

func TestWriteHistory(t *testing.T) {
	t.Run("Writer Failure", func(t *testing.T) {
		if err := WriteHistory(&tu.FWriter{}, samplePlays(), FormatText); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.csv")
		if err := WriteHistoryFile(path, samplePlays(), FormatCSV); err != nil {
			t.Fatalf("WriteHistoryFile failed: %v", err)
		}
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "spotify:track:t1") {
			t.Errorf("file missing rows: %s", content)
		}
	})

	t.Run("Bad Path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "history.txt")
		if err := WriteHistoryFile(path, nil, FormatText); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestDevicesToText(t *testing.T) {
	devices := []models.Device{
		{ID: "a", Name: "Kitchen", Type: "Speaker", IsActive: true},
		{ID: "b", Name: "Laptop", Type: "Computer"},
		{Name: "Car", Type: "Automobile"},
	}

	output := string(DevicesToText(devices, "b"))
	if !strings.Contains(output, "  Kitchen [Speaker] a ★") {
		t.Errorf("active device not starred: %s", output)
	}
	if !strings.Contains(output, "→ Laptop [Computer] b") {
		t.Errorf("current device not marked: %s", output)
	}
	if !strings.Contains(output, "(restricted)") {
		t.Errorf("device without id not flagged: %s", output)
	}

	if !strings.HasPrefix(string(DevicesToText(nil, "")), "No devices found") {
		t.Error("expected empty message")
	}
}

func TestPlaylistsToText(t *testing.T) {
	playlists := []models.Playlist{{ID: "p1", Name: "Party", TrackCount: 50}, {ID: "p2", Name: "Oldies", TrackCount: 12}}

	output := string(PlaylistsToText(playlists, "p2"))
	if !strings.Contains(output, "  1. Party (50 tracks) p1") || !strings.Contains(output, "→ 2. Oldies (12 tracks) p2") {
		t.Errorf("unexpected output: %s", output)
	}
	if string(PlaylistsToText(nil, "")) != "No playlists found\n" {
		t.Error("expected empty message")
	}
}

func TestEntryToText(t *testing.T) {
	entry := &models.CatalogEntry{CardID: "7", Title: "Song", Artist: "Artist", TrackURI: "spotify:track:abc"}
	output := string(EntryToText(&models.CardReference{DeckID: "de", CardID: "007"}, entry))

	for _, want := range []string{"Deck:   de", "Card:   7", "Year:   unknown year", "Track:  spotify:track:abc"} {
		if !strings.Contains(output, want) {
			t.Errorf("missing %q in %s", want, output)
		}
	}
}
