package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/shared"
)

// Remote is the part of the playback API the session itself calls.
type Remote interface {
	Devices(ctx context.Context) ([]models.Device, error)
	TransferPlayback(ctx context.Context, deviceID string) error
	Playlists(ctx context.Context) ([]models.Playlist, error)
}

// TokenClearer removes persisted credentials on logout.
type TokenClearer interface {
	Clear(ctx context.Context) error
}

// Timer is a pending auto-stop. [time.Timer] satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d and returns a handle to cancel it.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Options configures a [Session]. Every field is optional.
type Options struct {
	Tokens    TokenClearer
	Notifier  Notifier
	Logger    *log.Logger
	AfterFunc AfterFunc
}

// Session is the state of one authenticated session. It is safe for concurrent use.
type Session struct {
	id        string
	remote    Remote
	tokens    TokenClearer
	notifier  Notifier
	logger    *log.Logger
	afterFunc AfterFunc

	mu         sync.Mutex
	alive      bool
	generation uint64

	song       *models.SongData
	lastOffset int
	isPlaying  bool

	devices            []models.Device
	currentDeviceID    string
	userSelectedDevice string

	playlists        []models.Playlist
	selectedPlaylist *models.Playlist

	request   uint64
	stopTimer Timer
	stopArm   uint64
	// scan numbers accepted decodes. It survives logout so a scan from before can never match again.
	scan uint64
}

// New creates a live session backed by remote.
func New(remote Remote, opts Options) *Session {
	s := &Session{
		id:        shared.GenerateID(),
		remote:    remote,
		tokens:    opts.Tokens,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		afterFunc: opts.AfterFunc,
		alive:     true,
	}
	if s.notifier == nil {
		s.notifier = discardNotifier{}
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	if s.afterFunc == nil {
		s.afterFunc = realAfterFunc
	}
	return s
}

// ID identifies the session in the play history.
func (s *Session) ID() string {
	return s.id
}

// Notifier returns the notifier the session reports to.
func (s *Session) Notifier() Notifier {
	return s.notifier
}

// Alive reports whether the session has not been logged out.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Generation returns the current generation and whether the session is alive.
func (s *Session) Generation() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation, s.alive
}

// State is a copy of every session field.
type State struct {
	Alive              bool
	Song               *models.SongData
	LastOffsetMs       int
	IsPlaying          bool
	Devices            []models.Device
	CurrentDeviceID    string
	UserSelectedDevice string
	Playlists          []models.Playlist
	SelectedPlaylist   *models.Playlist
	Request            uint64
	PendingStop        bool
}

// CurrentDevice returns the current device from the snapshot, if any.
func (st State) CurrentDevice() (models.Device, bool) {
	for _, d := range st.Devices {
		if d.ID != "" && d.ID == st.CurrentDeviceID {
			return d, true
		}
	}
	return models.Device{}, false
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{
		Alive:              s.alive,
		LastOffsetMs:       s.lastOffset,
		IsPlaying:          s.isPlaying,
		Devices:            slices.Clone(s.devices),
		CurrentDeviceID:    s.currentDeviceID,
		UserSelectedDevice: s.userSelectedDevice,
		Playlists:          slices.Clone(s.playlists),
		Request:            s.request,
		PendingStop:        s.stopTimer != nil,
	}
	if s.song != nil {
		song := *s.song
		st.Song = &song
	}
	if s.selectedPlaylist != nil {
		p := *s.selectedPlaylist
		st.SelectedPlaylist = &p
	}
	return st
}

// CurrentDeviceID returns the device playback is sent to, empty when none is known.
func (s *Session) CurrentDeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDeviceID
}

// Song returns the loaded song and the offset it was last started at.
func (s *Session) Song() (*models.SongData, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.song == nil {
		return nil, 0
	}
	song := *s.song
	return &song, s.lastOffset
}

// IsPlaying reports whether a snippet is playing.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPlaying
}

// SelectedPlaylist returns the playlist used by playlist mode, nil when none is selected.
func (s *Session) SelectedPlaylist() *models.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedPlaylist == nil {
		return nil
	}
	p := *s.selectedPlaylist
	return &p
}

// SelectPlaylist selects one of the loaded playlists by id.
func (s *Session) SelectPlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return shared.ErrSessionClosed
	}
	for _, p := range s.playlists {
		if p.ID == id {
			selected := p
			s.selectedPlaylist = &selected
			return nil
		}
	}
	return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}

// ClearPlaylist deselects the playlist.
func (s *Session) ClearPlaylist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedPlaylist = nil
}

// SetSong records the song about to be played and its offset. Used by playlist mode, which loads the song
// before the play request is issued.
func (s *Session) SetSong(song *models.SongData, offsetMs int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive {
		return false
	}
	s.song = cloneSong(song)
	s.lastOffset = offsetMs
	return true
}

// SetSongAndPlaying records the song, its offset and the playing flag if token is still the current request.
func (s *Session) SetSongAndPlaying(token uint64, song *models.SongData, offsetMs int, playing bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(token) {
		return false
	}
	s.song = cloneSong(song)
	s.lastOffset = offsetMs
	s.isPlaying = playing
	return true
}

// SetPlaying sets the playing flag if token is still the current request.
func (s *Session) SetPlaying(token uint64, playing bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.currentLocked(token) {
		return false
	}
	s.isPlaying = playing
	return true
}

// LogOut tears the session down: the pending stop is cancelled, every field is reset and stored credentials
// are removed. Calling it again is harmless.
func (s *Session) LogOut(ctx context.Context) error {
	s.mu.Lock()
	wasAlive := s.alive
	s.stopLocked()
	s.alive = false
	s.generation++
	s.song = nil
	s.lastOffset = 0
	s.isPlaying = false
	s.devices = nil
	s.currentDeviceID = ""
	s.userSelectedDevice = ""
	s.playlists = nil
	s.selectedPlaylist = nil
	s.request = 0
	s.mu.Unlock()

	if wasAlive {
		s.logger.Info("session logged out", "session", s.id)
	}

	if s.tokens == nil {
		return nil
	}
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("failed to clear credentials", "error", err)
		return err
	}
	return nil
}

// HandleUnauthorized logs the session out when err reports an expired or revoked session. It returns true
// when it did.
func (s *Session) HandleUnauthorized(ctx context.Context, err error) bool {
	if !errors.Is(err, shared.ErrUnauthorized) {
		return false
	}
	s.notifier.Notify(Notification{Level: LevelError, Message: "Session expired, please log in again", Err: err})
	if lerr := s.LogOut(ctx); lerr != nil {
		// The stored login survived, so the next start would pick up the expired token again.
		s.logger.Warn("expired session left credentials behind", "error", lerr)
		s.notifier.Notify(Notification{Level: LevelWarn, Message: "Could not remove the stored login", Err: lerr})
	}
	return true
}

func cloneSong(song *models.SongData) *models.SongData {
	if song == nil {
		return nil
	}
	c := *song
	return &c
}
