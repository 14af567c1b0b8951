package models

// CardReference identifies one card: the deck catalog it belongs to and its id within that deck.
type CardReference struct {
	DeckID string
	CardID string
}

// CatalogEntry is one row of a deck catalog.
//
// TrackID and TrackURI are filled by the resolver once the link has been validated.
type CatalogEntry struct {
	CardID    string `json:"card_id"`
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Year      string `json:"year"`
	TrackLink string `json:"track_link"`
	TrackID   string `json:"track_id,omitempty"`
	TrackURI  string `json:"track_uri,omitempty"`
}

// SongData is the track currently loaded in a session, kept across pause and replay.
//
// ID is the card id for scanned cards and the track id for playlist picks.
type SongData struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Artist string `json:"artist"`
	Title  string `json:"title"`
	Year   string `json:"year"`
}

// SongFromEntry builds the now-playing record for a resolved catalog entry.
func SongFromEntry(e *CatalogEntry) *SongData {
	return &SongData{ID: e.CardID, URI: e.TrackURI, Artist: e.Artist, Title: e.Title, Year: e.Year}
}

// Device is a Spotify Connect playback target.
//
// ID may be empty for restricted devices, which can't be targeted.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// Playlist is a summary of one of the user's playlists.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	TrackCount int    `json:"track_count"`
}

// PlaylistTrack is one item of a playlist.
//
// Removed items come back from the API without a track and are represented with an empty URI.
type PlaylistTrack struct {
	ID      string   `json:"id"`
	URI     string   `json:"uri"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Type    string   `json:"type"`
	IsLocal bool     `json:"is_local"`
	Year    string   `json:"year"`
}

// Playable reports whether the item is a real track that can be started remotely.
func (t PlaylistTrack) Playable() bool {
	return t.Type == "track" && t.URI != "" && !t.IsLocal
}

// Artist joins the artist names for display.
func (t PlaylistTrack) Artist() string {
	switch len(t.Artists) {
	case 0:
		return ""
	case 1:
		return t.Artists[0]
	}
	out := t.Artists[0]
	for _, a := range t.Artists[1:] {
		out += ", " + a
	}
	return out
}

// PlaybackState is the remote player's current state.
type PlaybackState struct {
	Device     *Device        `json:"device,omitempty"`
	IsPlaying  bool           `json:"is_playing"`
	ProgressMs int            `json:"progress_ms"`
	Item       *PlaylistTrack `json:"item,omitempty"`
}
