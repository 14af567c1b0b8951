// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/services"
	"github.com/desertthunder/hitqr/internal/session"
)

// Call is one recorded remote call.
type Call struct {
	Method   string
	DeviceID string
	URI      string
	OffsetMs int
}

// FakePlayer is a test double for [services.PlaybackService].
//
// Responses are configured with the Set* methods. PlayHook, when set, runs inside PlayTrack before the
// configured error is returned, which lets tests hold a request in flight.
type FakePlayer struct {
	mu sync.Mutex

	devices      []models.Device
	devicesErr   error
	playlists    []models.Playlist
	playlistsErr error
	tracks       map[string][]models.PlaylistTrack
	tracksErr    error
	state        *models.PlaybackState
	transferErr  error
	playErr      error
	pauseErr     error

	PlayHook func(ctx context.Context, deviceID, uri string, offsetMs int) error

	calls []Call
}

var _ services.PlaybackService = (*FakePlayer)(nil)

// NewFakePlayer creates a [FakePlayer] listing devices.
func NewFakePlayer(devices ...models.Device) *FakePlayer {
	return &FakePlayer{devices: devices, tracks: make(map[string][]models.PlaylistTrack)}
}

func (f *FakePlayer) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *FakePlayer) SetDevices(devices []models.Device, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices, f.devicesErr = devices, err
}

func (f *FakePlayer) SetPlaylists(playlists []models.Playlist, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists, f.playlistsErr = playlists, err
}

func (f *FakePlayer) SetTracks(playlistID string, tracks []models.PlaylistTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks[playlistID] = tracks
}

func (f *FakePlayer) SetTracksErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracksErr = err
}

func (f *FakePlayer) SetPlaybackState(state *models.PlaybackState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

func (f *FakePlayer) SetTransferErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferErr = err
}

func (f *FakePlayer) SetPlayErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playErr = err
}

func (f *FakePlayer) SetPauseErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseErr = err
}

func (f *FakePlayer) Devices(ctx context.Context) ([]models.Device, error) {
	f.record(Call{Method: "Devices"})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.devicesErr != nil {
		return nil, f.devicesErr
	}
	return slices.Clone(f.devices), nil
}

func (f *FakePlayer) TransferPlayback(ctx context.Context, deviceID string) error {
	f.record(Call{Method: "TransferPlayback", DeviceID: deviceID})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return f.transferErr
	}
	for i := range f.devices {
		f.devices[i].IsActive = f.devices[i].ID == deviceID
	}
	return nil
}

func (f *FakePlayer) PlayTrack(ctx context.Context, deviceID, uri string, offsetMs int) error {
	f.record(Call{Method: "PlayTrack", DeviceID: deviceID, URI: uri, OffsetMs: offsetMs})
	if hook := f.PlayHook; hook != nil {
		if err := hook(ctx, deviceID, uri, offsetMs); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playErr
}

func (f *FakePlayer) Pause(ctx context.Context, deviceID string) error {
	f.record(Call{Method: "Pause", DeviceID: deviceID})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauseErr
}

func (f *FakePlayer) Playlists(ctx context.Context) ([]models.Playlist, error) {
	f.record(Call{Method: "Playlists"})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playlistsErr != nil {
		return nil, f.playlistsErr
	}
	return slices.Clone(f.playlists), nil
}

func (f *FakePlayer) PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistTrack, error) {
	f.record(Call{Method: "PlaylistTracks", URI: playlistID})
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tracksErr != nil {
		return nil, f.tracksErr
	}
	return slices.Clone(f.tracks[playlistID]), nil
}

func (f *FakePlayer) PlaybackState(ctx context.Context) (*models.PlaybackState, error) {
	f.record(Call{Method: "PlaybackState"})
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, nil
}

func (f *FakePlayer) CurrentUser(ctx context.Context) (*services.SpotifyUser, error) {
	f.record(Call{Method: "CurrentUser"})
	return &services.SpotifyUser{ID: "fake-user", DisplayName: "Fake User"}, nil
}

// Calls returns the recorded calls to method, or every call when method is empty.
func (f *FakePlayer) Calls(method string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// FakeClock schedules timers that only fire when the test says so.
type FakeClock struct {
	mu     sync.Mutex
	timers []*FakeTimer
}

// FakeTimer is a timer created by [FakeClock].
type FakeTimer struct {
	clock    *FakeClock
	Duration time.Duration
	fn       func()
	active   bool
}

// AfterFunc matches [session.AfterFunc].
func (c *FakeClock) AfterFunc(d time.Duration, fn func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &FakeTimer{clock: c, Duration: d, fn: fn, active: true}
	c.timers = append(c.timers, t)
	return t
}

func (t *FakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := t.active
	t.active = false
	return was
}

// Pending returns the timers that have neither fired nor been stopped.
func (c *FakeClock) Pending() []*FakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []*FakeTimer
	for _, t := range c.timers {
		if t.active {
			out = append(out, t)
		}
	}
	return out
}

// Created returns how many timers were ever scheduled.
func (c *FakeClock) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// FireAll runs every pending timer synchronously and returns how many fired.
func (c *FakeClock) FireAll() int {
	pending := c.Pending()
	fired := 0
	for _, t := range pending {
		c.mu.Lock()
		active := t.active
		t.active = false
		c.mu.Unlock()
		if active {
			t.fn()
			fired++
		}
	}
	return fired
}

// RecordingNotifier collects notifications for assertions.
type RecordingNotifier struct {
	mu    sync.Mutex
	notes []session.Notification
}

func (r *RecordingNotifier) Notify(n session.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

// Notifications returns the notifications at level, or all of them when level is negative.
func (r *RecordingNotifier) Notifications(level session.Level) []session.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []session.Notification
	for _, n := range r.notes {
		if level < 0 || n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

// FakeTokens records logout teardown calls.
type FakeTokens struct {
	mu      sync.Mutex
	cleared int
	Err     error
}

func (f *FakeTokens) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return f.Err
}

// Cleared returns how many times Clear was called.
func (f *FakeTokens) Cleared() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}
