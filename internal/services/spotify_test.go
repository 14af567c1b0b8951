package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/hitqr/internal/shared"
)

// newTestService starts a server running handler and returns a service pointed at it.
func newTestService(t *testing.T, handler http.HandlerFunc) (*SpotifyService, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSpotifyService(server.Client(), server.URL, nil), server
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Devices", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.Path != "/me/player/devices" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			io.WriteString(w, `{"devices":[
				{"id":"dev1","name":"Kitchen","type":"Speaker","is_active":false},
				{"id":"dev2","name":"Phone","type":"Smartphone","is_active":true},
				{"id":null,"name":"Restricted","type":"TV","is_active":false,"is_restricted":true}
			]}`)
		})

		devices, err := srv.Devices(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(devices) != 3 {
			t.Fatalf("expected 3 devices, got %d", len(devices))
		}
		if !devices[1].IsActive || devices[1].ID != "dev2" {
			t.Errorf("unexpected device: %+v", devices[1])
		}
		if devices[2].ID != "" {
			t.Errorf("expected empty id for null device id, got %q", devices[2].ID)
		}
	})

	t.Run("TransferPlayback", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut || r.URL.Path != "/me/player" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body struct {
				DeviceIDs []string `json:"device_ids"`
				Play      bool     `json:"play"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			if len(body.DeviceIDs) != 1 || body.DeviceIDs[0] != "dev1" || body.Play {
				t.Errorf("unexpected body: %+v", body)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := srv.TransferPlayback(ctx, "dev1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("PlayTrack", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPut || r.URL.Path != "/me/player/play" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			if got := r.URL.Query().Get("device_id"); got != "dev1" {
				t.Errorf("expected device_id dev1, got %q", got)
			}
			var body struct {
				URIs       []string `json:"uris"`
				PositionMs int      `json:"position_ms"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode body: %v", err)
			}
			if len(body.URIs) != 1 || body.URIs[0] != "spotify:track:abc123" || body.PositionMs != 45000 {
				t.Errorf("unexpected body: %+v", body)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		if err := srv.PlayTrack(ctx, "dev1", "spotify:track:abc123", 45000); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Pause", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/me/player/pause" || r.URL.Query().Get("device_id") != "dev1" {
					t.Errorf("unexpected request %s", r.URL)
				}
				w.WriteHeader(http.StatusNoContent)
			})
			if err := srv.Pause(ctx, "dev1"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})

		t.Run("Unauthorized", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				io.WriteString(w, `{"error":{"status":401,"message":"The access token expired"}}`)
			})

			err := srv.Pause(ctx, "dev1")
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.Status != http.StatusUnauthorized || apiErr.Message != "The access token expired" {
				t.Errorf("unexpected api error: %+v", apiErr)
			}
		})

		t.Run("Device Not Found", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `{"error":{"status":404,"message":"Device not found"}}`)
			})

			err := srv.Pause(ctx, "gone")
			if !errors.Is(err, shared.ErrDeviceNotFound) {
				t.Errorf("expected ErrDeviceNotFound, got %v", err)
			}
			if errors.Is(err, shared.ErrUnauthorized) {
				t.Error("404 should not be reported as unauthorized")
			}
		})
	})

	t.Run("Playlists Pagination", func(t *testing.T) {
		var serverURL string
		srv, server := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("offset") == "" {
				fmt.Fprintf(w, `{"items":[{"id":"p1","name":"Party","owner":{"display_name":"me"},"tracks":{"total":12}}],"next":"%s/me/playlists?limit=50&offset=50","total":2}`, serverURL)
				return
			}
			io.WriteString(w, `{"items":[{"id":"p2","name":"Oldies","tracks":{"total":3}}],"next":null,"total":2}`)
		})
		serverURL = server.URL

		playlists, err := srv.Playlists(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].TrackCount != 12 || playlists[0].Owner != "me" {
			t.Errorf("unexpected playlist: %+v", playlists[0])
		}
		if playlists[1].ID != "p2" {
			t.Errorf("unexpected playlist: %+v", playlists[1])
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/playlists/p1/tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			io.WriteString(w, `{"items":[
				{"is_local":false,"track":{"id":"t1","uri":"spotify:track:t1","name":"One","type":"track","artists":[{"name":"A"},{"name":"B"}],"album":{"release_date":"1991-09-24"}}},
				{"is_local":false,"track":null},
				{"is_local":false,"track":{"id":"e1","uri":"spotify:episode:e1","name":"Pod","type":"episode"}},
				{"is_local":true,"track":{"id":null,"uri":"spotify:local:x:y:z:1","name":"Local","type":"track"}}
			],"next":null}`)
		})

		tracks, err := srv.PlaylistTracks(ctx, "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tracks) != 4 {
			t.Fatalf("expected 4 items, got %d", len(tracks))
		}
		if !tracks[0].Playable() || tracks[0].Year != "1991" || tracks[0].Artist() != "A, B" {
			t.Errorf("unexpected first track: %+v", tracks[0])
		}
		for i, track := range tracks[1:] {
			if track.Playable() {
				t.Errorf("item %d should not be playable: %+v", i+1, track)
			}
		}
	})

	t.Run("PlaylistTracks Not Found", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := srv.PlaylistTracks(ctx, "missing")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("PlaybackState", func(t *testing.T) {
		t.Run("Nothing Playing", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			state, err := srv.PlaybackState(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state != nil {
				t.Errorf("expected nil state, got %+v", state)
			}
		})

		t.Run("Playing", func(t *testing.T) {
			srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"device":{"id":"dev1","name":"Phone","is_active":true},"is_playing":true,"progress_ms":1234,"item":{"id":"t1","uri":"spotify:track:t1","name":"One","type":"track"}}`)
			})

			state, err := srv.PlaybackState(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !state.IsPlaying || state.ProgressMs != 1234 || state.Device.ID != "dev1" || state.Item.URI != "spotify:track:t1" {
				t.Errorf("unexpected state: %+v", state)
			}
		})
	})

	t.Run("CurrentUser", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			io.WriteString(w, `{"id":"user1","display_name":"Test User","product":"premium"}`)
		})

		user, err := srv.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID != "user1" || user.DisplayName != "Test User" || user.Product != "premium" {
			t.Errorf("unexpected user: %+v", user)
		}
	})

	t.Run("Token Refresh Failure", func(t *testing.T) {
		client := &http.Client{Transport: &oauth2.Transport{
			Source: failingTokenSource{err: &oauth2.RetrieveError{ErrorCode: "invalid_grant"}},
		}}
		srv := NewSpotifyService(client, "http://127.0.0.1:1", nil)

		_, err := srv.Devices(ctx)
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		srv := NewSpotifyService(http.DefaultClient, "http://127.0.0.1:1", nil)

		_, err := srv.Devices(ctx)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if errors.Is(err, shared.ErrUnauthorized) {
			t.Error("transport failure should not be unauthorized")
		}
	})
}

func TestNewRateLimitedClient(t *testing.T) {
	t.Run("Passes Requests Through", func(t *testing.T) {
		var hits int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			io.WriteString(w, `{"devices":[]}`)
		}))
		defer server.Close()

		client := NewRateLimitedClient(server.Client(), 100)
		srv := NewSpotifyService(client, server.URL, nil)

		for range 3 {
			if _, err := srv.Devices(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if hits != 3 {
			t.Errorf("expected 3 requests, got %d", hits)
		}
	})

	t.Run("Honors Cancelled Context", func(t *testing.T) {
		client := NewRateLimitedClient(nil, 0.001)
		srv := NewSpotifyService(client, "http://127.0.0.1:1", nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := srv.Devices(ctx); err == nil {
			t.Error("expected error for cancelled context")
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		base := &http.Client{}
		if got := NewRateLimitedClient(base, 0); got != base {
			t.Error("expected client to be returned unchanged")
		}
	})
}

func TestAPIError(t *testing.T) {
	t.Run("Non JSON Body", func(t *testing.T) {
		err := newAPIError(http.StatusBadGateway, []byte("<html>"))
		if err.Message != "Bad Gateway" {
			t.Errorf("expected status text fallback, got %q", err.Message)
		}
	})

	t.Run("Service Unavailable", func(t *testing.T) {
		err := newAPIError(http.StatusServiceUnavailable, nil)
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

// failingTokenSource implements [oauth2.TokenSource] returning a fixed error
type failingTokenSource struct {
	err error
}

func (f failingTokenSource) Token() (*oauth2.Token, error) {
	return nil, f.err
}
