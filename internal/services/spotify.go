// Spotify Web API implementation of [PlaybackService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

const (
	SpotifyAuthURL  = "https://accounts.spotify.com/authorize"
	SpotifyTokenURL = "https://accounts.spotify.com/api/token"
	SpotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"`
}

type spotifyDevice struct {
	ID           *string `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	IsActive     bool    `json:"is_active"`
	IsRestricted bool    `json:"is_restricted"`
}

func (d spotifyDevice) model() models.Device {
	device := models.Device{Name: d.Name, Type: d.Type, IsActive: d.IsActive}
	if d.ID != nil {
		device.ID = *d.ID
	}
	return device
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ReleaseDate string `json:"release_date"`
}

// spotifyItem is a track or episode as returned in playlist items and playback state.
type spotifyItem struct {
	ID      string          `json:"id"`
	URI     string          `json:"uri"`
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	IsLocal bool            `json:"is_local"`
	Artists []spotifyArtist `json:"artists"`
	Album   spotifyAlbum    `json:"album"`
}

func (i *spotifyItem) model() models.PlaylistTrack {
	track := models.PlaylistTrack{
		ID:      i.ID,
		URI:     i.URI,
		Name:    i.Name,
		Type:    i.Type,
		IsLocal: i.IsLocal,
	}
	for _, a := range i.Artists {
		track.Artists = append(track.Artists, a.Name)
	}
	if len(i.Album.ReleaseDate) >= 4 {
		track.Year = i.Album.ReleaseDate[:4]
	}
	return track
}

type spotifyPlaylistItem struct {
	IsLocal bool         `json:"is_local"`
	Track   *spotifyItem `json:"track"`
}

type spotifyPlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Owner  struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type page[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
	Total int     `json:"total"`
}

type spotifyPlaybackState struct {
	Device     *spotifyDevice `json:"device"`
	IsPlaying  bool           `json:"is_playing"`
	ProgressMs int            `json:"progress_ms"`
	Item       *spotifyItem   `json:"item"`
}

// SpotifyService implements [PlaybackService] against the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotifyService creates a service sending requests through client, which must attach the bearer token.
//
// An empty baseURL selects [SpotifyBaseURL].
func NewSpotifyService(client *http.Client, baseURL string, logger *log.Logger) *SpotifyService {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = SpotifyBaseURL
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

// doRequest performs an authenticated request against the API.
//
// endpoint is either a path relative to the base URL or an absolute URL taken from a paging "next" link.
// A 204 response leaves result untouched.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) (int, error) {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.logger.Debug("spotify request", "method", method, "endpoint", endpoint)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) || errors.Is(err, shared.ErrNotAuthenticated) {
			return 0, fmt.Errorf("%w: %w", shared.ErrUnauthorized, err)
		}
		return 0, fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return resp.StatusCode, newAPIError(resp.StatusCode, data)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// deviceRequest is doRequest for device scoped endpoints, where a 404 means the device is gone.
func (s *SpotifyService) deviceRequest(ctx context.Context, method, endpoint string, body any) error {
	_, err := s.doRequest(ctx, method, endpoint, body, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Device = true
	}
	return err
}

func withDevice(endpoint, deviceID string) string {
	if deviceID == "" {
		return endpoint
	}
	return endpoint + "?device_id=" + url.QueryEscape(deviceID)
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Devices lists the user's Connect devices.
func (s *SpotifyService) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []spotifyDevice `json:"devices"`
	}
	if _, err := s.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, d.model())
	}
	return devices, nil
}

// TransferPlayback moves playback to deviceID and leaves it paused.
func (s *SpotifyService) TransferPlayback(ctx context.Context, deviceID string) error {
	body := map[string]any{"device_ids": []string{deviceID}, "play": false}
	return s.deviceRequest(ctx, http.MethodPut, "/me/player", body)
}

// PlayTrack starts a single track at offsetMs on deviceID.
func (s *SpotifyService) PlayTrack(ctx context.Context, deviceID, uri string, offsetMs int) error {
	body := struct {
		URIs       []string `json:"uris"`
		PositionMs int      `json:"position_ms"`
	}{URIs: []string{uri}, PositionMs: offsetMs}
	return s.deviceRequest(ctx, http.MethodPut, withDevice("/me/player/play", deviceID), body)
}

// Pause pauses playback on deviceID.
func (s *SpotifyService) Pause(ctx context.Context, deviceID string) error {
	return s.deviceRequest(ctx, http.MethodPut, withDevice("/me/player/pause", deviceID), nil)
}

// Playlists retrieves every playlist of the current user, following pagination.
func (s *SpotifyService) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	endpoint := "/me/playlists?limit=50"

	for endpoint != "" {
		var response page[spotifyPlaylist]
		if _, err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, p := range response.Items {
			playlists = append(playlists, models.Playlist{
				ID:         p.ID,
				Name:       p.Name,
				Owner:      p.Owner.DisplayName,
				TrackCount: p.Tracks.Total,
			})
		}

		endpoint = ""
		if response.Next != nil {
			endpoint = *response.Next
		}
	}

	return playlists, nil
}

// PlaylistTracks retrieves every item of a playlist, following pagination.
//
// Items whose track was removed are returned with an empty URI so callers can filter them.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistTrack, error) {
	var tracks []models.PlaylistTrack
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100", url.PathEscape(playlistID))

	for endpoint != "" {
		var response page[spotifyPlaylistItem]
		if _, err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
				return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
			}
			return nil, err
		}

		for _, item := range response.Items {
			if item.Track == nil {
				tracks = append(tracks, models.PlaylistTrack{IsLocal: item.IsLocal})
				continue
			}
			track := item.Track.model()
			track.IsLocal = track.IsLocal || item.IsLocal
			tracks = append(tracks, track)
		}

		endpoint = ""
		if response.Next != nil {
			endpoint = *response.Next
		}
	}

	return tracks, nil
}

// PlaybackState returns the current player state, nil when no device is active.
func (s *SpotifyService) PlaybackState(ctx context.Context) (*models.PlaybackState, error) {
	var response spotifyPlaybackState
	status, err := s.doRequest(ctx, http.MethodGet, "/me/player", nil, &response)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}

	state := &models.PlaybackState{IsPlaying: response.IsPlaying, ProgressMs: response.ProgressMs}
	if response.Device != nil {
		device := response.Device.model()
		state.Device = &device
	}
	if response.Item != nil {
		item := response.Item.model()
		state.Item = &item
	}
	return state, nil
}
