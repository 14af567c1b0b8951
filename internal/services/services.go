// package services defines the remote playback operations used by hitqr
package services

import (
	"context"

	"github.com/desertthunder/hitqr/internal/models"
)

// PlaybackService is the subset of the Spotify Web API used by the session and controller.
type PlaybackService interface {
	// Devices lists the user's available Connect devices.
	Devices(ctx context.Context) ([]models.Device, error)

	// TransferPlayback moves playback to deviceID without starting it.
	TransferPlayback(ctx context.Context, deviceID string) error

	// PlayTrack starts a single track on deviceID at offsetMs.
	PlayTrack(ctx context.Context, deviceID, uri string, offsetMs int) error

	// Pause pauses playback on deviceID.
	Pause(ctx context.Context, deviceID string) error

	// Playlists lists every playlist of the current user.
	Playlists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks lists every item of a playlist, including removed and local ones.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistTrack, error)

	// PlaybackState returns the current player state, or nil when nothing is playing anywhere.
	PlaybackState(ctx context.Context) (*models.PlaybackState, error)

	// CurrentUser returns the authenticated user's profile.
	CurrentUser(ctx context.Context) (*SpotifyUser, error)
}
