package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/hitqr/internal/models"
)

var (
	_ list.Item = deviceItem{}
	_ list.Item = playlistItem{}
)

// deviceItem wraps [models.Device] to implement [list.Item].
type deviceItem struct {
	device  models.Device
	current bool
}

func (i deviceItem) FilterValue() string { return i.device.Name }
func (i deviceItem) Title() string {
	if i.current {
		return "→ " + i.device.Name
	}
	return i.device.Name
}
func (i deviceItem) Description() string {
	desc := i.device.Type
	if i.device.IsActive {
		desc = fmt.Sprintf("%s • active", desc)
	}
	if i.device.ID == "" {
		desc = fmt.Sprintf("%s • restricted", desc)
	}
	return desc
}

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	selected bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.selected {
		return "→ " + i.playlist.Name
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if i.playlist.Owner != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Owner)
	}
	return desc
}

func deviceItems(devices []models.Device, currentID string) []list.Item {
	items := make([]list.Item, len(devices))
	for i, d := range devices {
		items[i] = deviceItem{device: d, current: d.ID != "" && d.ID == currentID}
	}
	return items
}

func playlistItems(playlists []models.Playlist, selected *models.Playlist) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p, selected: selected != nil && selected.ID == p.ID}
	}
	return items
}
