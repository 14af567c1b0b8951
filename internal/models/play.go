package models

import (
	"fmt"
	"time"
)

// PlaySource names what triggered a snippet.
type PlaySource string

const (
	SourceCard     PlaySource = "card"
	SourcePlaylist PlaySource = "playlist"
)

// Play records one snippet started on a device.
type Play struct {
	record
	SessionID string
	Source    PlaySource
	DeckID    string
	CardID    string
	TrackURI  string
	Title     string
	Artist    string
	Year      string
	OffsetMs  int
	DeviceID  string
	PlayedAt  time.Time
}

// NewPlay creates a [Play] for song stamped with the current time.
func NewPlay(sessionID string, source PlaySource, song *SongData, offsetMs int, deviceID string) *Play {
	p := &Play{
		record:    newRecord(),
		SessionID: sessionID,
		Source:    source,
		OffsetMs:  offsetMs,
		DeviceID:  deviceID,
	}
	p.PlayedAt = p.createdAt
	if song != nil {
		p.TrackURI = song.URI
		p.Title = song.Title
		p.Artist = song.Artist
		p.Year = song.Year
	}
	return p
}

func (p *Play) Validate() error {
	if p.TrackURI == "" {
		return fmt.Errorf("track uri is required")
	}
	switch p.Source {
	case SourceCard, SourcePlaylist:
	default:
		return fmt.Errorf("invalid play source: %q", p.Source)
	}
	if p.OffsetMs < 0 {
		return fmt.Errorf("offset must not be negative")
	}
	return nil
}
