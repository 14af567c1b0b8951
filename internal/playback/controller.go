package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
)

// DefaultSnippetDuration is how long a snippet plays before it is paused.
const DefaultSnippetDuration = 10 * time.Second

const stopTimeout = 10 * time.Second

// Remote is the part of the playback API the controller calls.
type Remote interface {
	PlayTrack(ctx context.Context, deviceID, uri string, offsetMs int) error
	Pause(ctx context.Context, deviceID string) error
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.PlaylistTrack, error)
}

// History stores started snippets. [repositories.PlayRepository] satisfies it.
type History interface {
	Create(p *models.Play) error
}

// Options configures a [Controller]. Every field is optional.
type Options struct {
	SnippetDuration time.Duration
	Rand            *rand.Rand
	History         History
	Logger          *log.Logger
}

// State is the controller's view of the latest play request.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StatePlaying
	StatePaused
	StateAutoStopped
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAutoStopped:
		return "stopped"
	default:
		return "idle"
	}
}

type stopKind int

const (
	stopNone stopKind = iota
	stopPaused
	stopAuto
)

// Controller starts snippets on the session's current device and stops them after the snippet duration.
type Controller struct {
	session *session.Session
	remote  Remote
	snippet time.Duration
	history History
	logger  *log.Logger

	randMu sync.Mutex
	rand   *rand.Rand

	// remoteMu orders play and pause calls so an older request never lands after a newer one.
	remoteMu sync.Mutex

	mu       sync.Mutex
	inflight uint64
	stopped  stopKind
}

// New creates a controller for sess.
func New(sess *session.Session, remote Remote, opts Options) *Controller {
	c := &Controller{
		session: sess,
		remote:  remote,
		snippet: opts.SnippetDuration,
		history: opts.History,
		logger:  opts.Logger,
		rand:    opts.Rand,
	}
	if c.snippet <= 0 {
		c.snippet = DefaultSnippetDuration
	}
	if c.logger == nil {
		c.logger = shared.NewLogger(nil)
	}
	if c.rand == nil {
		c.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

// Session returns the session the controller plays into.
func (c *Controller) Session() *session.Session {
	return c.session
}

// SnippetDuration returns how long each snippet plays.
func (c *Controller) SnippetDuration() time.Duration {
	return c.snippet
}

type playRequest struct {
	uri    string
	offset int
	// song is written to the session on success. Nil keeps the session's song.
	song *models.SongData
	// clearOnFailure drops the session's song when the request fails.
	clearOnFailure bool
	source         models.PlaySource
	deckID         string
	record         bool
	// scan, when set, is the number the decode got from [session.Session.BeginScan].
	scan uint64
}

// PlayTrack plays uri from offsetMs on the current device and schedules the auto-stop.
//
// The session's song is left as is. Failures wrap [shared.ErrPlayback].
func (c *Controller) PlayTrack(ctx context.Context, uri string, offsetMs int) error {
	return c.play(ctx, playRequest{uri: uri, offset: offsetMs})
}

// PlayCard plays a resolved catalog entry with the offset chosen by policy. ref, when set, is stored in
// the play history.
func (c *Controller) PlayCard(ctx context.Context, ref *models.CardReference, entry *models.CatalogEntry, policy StartPolicy) error {
	return c.playCard(ctx, 0, ref, entry, policy)
}

// BeginScan numbers a decode as it is accepted. Pass the number to [Controller.PlayScannedCard] once the
// card has been looked up.
func (c *Controller) BeginScan() uint64 {
	return c.session.BeginScan()
}

// PlayScannedCard is [Controller.PlayCard] for a numbered decode. When a later decode or play request was
// accepted in the meantime nothing is sent and [shared.ErrSuperseded] is returned, so a card whose lookup
// was slow never takes over from a card scanned after it.
func (c *Controller) PlayScannedCard(ctx context.Context, scan uint64, ref *models.CardReference, entry *models.CatalogEntry, policy StartPolicy) error {
	if scan == 0 {
		return fmt.Errorf("%w: scan number", shared.ErrInvalidInput)
	}
	return c.playCard(ctx, scan, ref, entry, policy)
}

func (c *Controller) playCard(ctx context.Context, scan uint64, ref *models.CardReference, entry *models.CatalogEntry, policy StartPolicy) error {
	if entry == nil || entry.TrackURI == "" {
		return shared.ErrNoPlayableLink
	}

	req := playRequest{
		uri:            entry.TrackURI,
		offset:         c.offset(policy),
		song:           models.SongFromEntry(entry),
		clearOnFailure: true,
		source:         models.SourceCard,
		record:         true,
		scan:           scan,
	}
	if ref != nil {
		req.deckID = ref.DeckID
	}
	return c.play(ctx, req)
}

// PlayRandomFromSelectedPlaylist picks a playable track from the selected playlist at random and plays it.
// The picked song is returned even when playback fails.
func (c *Controller) PlayRandomFromSelectedPlaylist(ctx context.Context, policy StartPolicy) (*models.SongData, error) {
	playlist := c.session.SelectedPlaylist()
	if playlist == nil {
		return nil, shared.ErrNoPlaylistSelected
	}
	if c.session.CurrentDeviceID() == "" {
		return nil, shared.ErrNoDeviceSelected
	}

	items, err := c.remote.PlaylistTracks(ctx, playlist.ID)
	if err != nil {
		c.session.HandleUnauthorized(ctx, err)
		return nil, fmt.Errorf("failed to load tracks of playlist %s: %w", playlist.Name, err)
	}

	var playable []models.PlaylistTrack
	for _, t := range items {
		if t.Playable() {
			playable = append(playable, t)
		}
	}
	if len(playable) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptyPlaylist, playlist.Name)
	}

	c.randMu.Lock()
	pick := playable[c.rand.IntN(len(playable))]
	c.randMu.Unlock()

	song := &models.SongData{ID: pick.ID, URI: pick.URI, Artist: pick.Artist(), Title: pick.Name, Year: pick.Year}
	offset := c.offset(policy)
	c.session.SetSong(song, offset)

	err = c.play(ctx, playRequest{
		uri:    song.URI,
		offset: offset,
		song:   song,
		source: models.SourcePlaylist,
		record: true,
	})
	return song, err
}

// Replay plays the session's song again. In random mode the offset last used is reused so the same
// snippet is heard; other modes compute it from policy. Without a song Replay does nothing.
func (c *Controller) Replay(ctx context.Context, policy StartPolicy) error {
	song, last := c.session.Song()
	if song == nil {
		return nil
	}

	offset := last
	if policy.Mode != ModeRandom {
		offset = c.offset(policy)
	}
	return c.play(ctx, playRequest{uri: song.URI, offset: offset, song: song})
}

// PauseNow cancels the pending auto-stop and pauses the current device. The session stops reporting
// playback once the call settles, whether or not it succeeded.
func (c *Controller) PauseNow(ctx context.Context) error {
	c.remoteMu.Lock()
	defer c.remoteMu.Unlock()

	// A play whose call already returned but whose result isn't applied yet must find its token stale.
	token := c.session.InvalidateRequest()
	deviceID := c.session.CurrentDeviceID()

	var err error
	if deviceID == "" {
		err = shared.ErrNoDeviceSelected
	} else if err = c.remote.Pause(ctx, deviceID); err != nil {
		err = fmt.Errorf("%w: pause: %w", shared.ErrPlayback, err)
	}

	if c.session.SetPlaying(token, false) {
		c.setStopped(stopPaused)
	}
	if err != nil {
		c.session.HandleUnauthorized(ctx, err)
	}
	return err
}

// State derives the display state of the latest request.
func (c *Controller) State() State {
	snap := c.session.Snapshot()

	c.mu.Lock()
	inflight, stopped := c.inflight, c.stopped
	c.mu.Unlock()

	switch {
	case !snap.Alive:
		return StateIdle
	case inflight != 0 && inflight == snap.Request:
		return StateRequesting
	case snap.IsPlaying:
		return StatePlaying
	case snap.Song == nil:
		return StateIdle
	case stopped == stopAuto:
		return StateAutoStopped
	case stopped == stopPaused:
		return StatePaused
	default:
		return StateIdle
	}
}

func (c *Controller) play(ctx context.Context, req playRequest) error {
	deviceID := c.session.CurrentDeviceID()
	if deviceID == "" {
		return shared.ErrNoDeviceSelected
	}

	token, err := c.begin(req)
	if err != nil {
		return err
	}
	c.setInflight(token)
	defer c.clearInflight(token)

	c.remoteMu.Lock()
	if !c.session.IsCurrentRequest(token) {
		c.remoteMu.Unlock()
		c.logger.Debug("play request superseded before it was sent", "uri", req.uri)
		return nil
	}
	err = c.remote.PlayTrack(ctx, deviceID, req.uri, req.offset)
	if err != nil && c.session.IsCurrentRequest(token) {
		if perr := c.remote.Pause(ctx, deviceID); perr != nil {
			c.logger.Debug("pause after failed play", "error", perr)
		}
	}
	c.remoteMu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: %w", shared.ErrPlayback, err)
		if c.session.HandleUnauthorized(ctx, err) {
			return err
		}
		if req.clearOnFailure {
			c.session.SetSongAndPlaying(token, nil, 0, false)
		} else {
			c.session.SetPlaying(token, false)
		}
		c.logger.Warn("playback failed", "uri", req.uri, "error", err)
		return err
	}

	var applied bool
	if req.song != nil {
		applied = c.session.SetSongAndPlaying(token, req.song, req.offset, true)
	} else {
		applied = c.session.SetPlaying(token, true)
	}
	if !applied {
		c.logger.Debug("dropping stale play completion", "uri", req.uri)
		return nil
	}

	c.setStopped(stopNone)
	c.session.ArmStop(token, c.snippet, func() { c.autoStop(token, deviceID) })
	c.logger.Info("snippet started", "uri", req.uri, "offset", shared.FormatOffset(req.offset), "device", deviceID)

	if req.record {
		c.record(req, deviceID)
	}
	return nil
}

// begin takes the request token, through the decode's number for scanned cards.
func (c *Controller) begin(req playRequest) (uint64, error) {
	if req.scan == 0 {
		token, ok := c.session.BeginPlayRequest()
		if !ok {
			return 0, shared.ErrSessionClosed
		}
		return token, nil
	}

	token, ok, err := c.session.BeginScanRequest(req.scan)
	if err != nil {
		return 0, err
	}
	if !ok {
		c.logger.Debug("scan superseded before it was played", "uri", req.uri, "scan", req.scan)
		return 0, shared.ErrSuperseded
	}
	return token, nil
}

func (c *Controller) autoStop(token uint64, deviceID string) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	c.remoteMu.Lock()
	if !c.session.IsCurrentRequest(token) {
		c.remoteMu.Unlock()
		return
	}
	err := c.remote.Pause(ctx, deviceID)
	c.remoteMu.Unlock()

	if err != nil {
		if !c.session.HandleUnauthorized(ctx, err) {
			c.session.Notifier().Notify(session.Notification{
				Level:   session.LevelWarn,
				Message: "Could not stop the snippet",
				Err:     err,
			})
		}
	}
	if c.session.SetPlaying(token, false) {
		c.setStopped(stopAuto)
	}
	c.logger.Debug("snippet auto-stopped", "device", deviceID)
}

func (c *Controller) record(req playRequest, deviceID string) {
	if c.history == nil {
		return
	}

	p := models.NewPlay(c.session.ID(), req.source, req.song, req.offset, deviceID)
	if req.source == models.SourceCard && req.song != nil {
		p.DeckID = req.deckID
		p.CardID = req.song.ID
	}
	if err := c.history.Create(p); err != nil {
		c.logger.Error("failed to record play", "uri", req.uri, "error", err)
	}
}

func (c *Controller) offset(policy StartPolicy) int {
	c.randMu.Lock()
	defer c.randMu.Unlock()
	return policy.Offset(c.rand)
}

func (c *Controller) setInflight(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight = token
}

func (c *Controller) clearInflight(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == token {
		c.inflight = 0
	}
}

func (c *Controller) setStopped(k stopKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = k
}

// IsUserError reports whether err is an expected outcome the user can fix, as opposed to a remote failure.
func IsUserError(err error) bool {
	return errors.Is(err, shared.ErrNoDeviceSelected) ||
		errors.Is(err, shared.ErrNoPlaylistSelected) ||
		errors.Is(err, shared.ErrEmptyPlaylist) ||
		errors.Is(err, shared.ErrNoPlayableLink)
}
