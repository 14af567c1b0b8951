package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hitqr/internal/models"
	"github.com/desertthunder/hitqr/internal/playback"
	"github.com/desertthunder/hitqr/internal/scanner"
	"github.com/desertthunder/hitqr/internal/session"
	"github.com/desertthunder/hitqr/internal/shared"
)

const (
	noteTTL     = 4 * time.Second
	refreshRate = 500 * time.Millisecond
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlayView ViewState = iota
	DeviceView
	PlaylistView
)

// Player is the playback surface driven by the keys. [playback.Controller] satisfies it.
type Player interface {
	Replay(ctx context.Context, policy playback.StartPolicy) error
	PauseNow(ctx context.Context) error
	PlayRandomFromSelectedPlaylist(ctx context.Context, policy playback.StartPolicy) (*models.SongData, error)
	State() playback.State
}

// Scanner plays one decoded link. [scanner.Bridge] satisfies it.
type Scanner interface {
	Handle(ctx context.Context, raw string) error
}

// Options wires a [Model] to a session. Notes is usually the channel of the [session.ChanNotifier] the
// session and bridge report to.
type Options struct {
	Session *session.Session
	Player  Player
	Scanner Scanner
	Policy  *playback.Selector
	Notes   <-chan session.Notification
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	session *session.Session
	player  Player
	scanner Scanner
	policy  *playback.Selector
	notes   <-chan session.Notification

	width     int
	height    int
	input     textinput.Model
	devices   list.Model
	playlists list.Model
	note      *session.Notification
	noteSeq   int
	revealed  bool
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	input := textinput.New()
	input.Prompt = "scan › "
	input.Placeholder = "scan or paste a card link"
	input.CharLimit = 512
	input.Focus()

	policy := opts.Policy
	if policy == nil {
		policy = playback.NewSelector(playback.StartPolicy{Mode: playback.ModeBeginning})
	}

	return &Model{
		ctx:       ctx,
		view:      PlayView,
		session:   opts.Session,
		player:    opts.Player,
		scanner:   opts.Scanner,
		policy:    policy,
		notes:     opts.Notes,
		input:     input,
		devices:   newList("Devices"),
		playlists: newList("Playlists"),
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// Init loads devices and playlists and starts listening for notifications.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.establish(), m.waitForNote(), tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-12, 10)
		m.devices.SetSize(msg.Width-4, msg.Height-4)
		m.playlists.SetSize(msg.Width-4, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.view {
		case DeviceView:
			return m.handleDeviceKeys(msg)
		case PlaylistView:
			return m.handlePlaylistKeys(msg)
		default:
			return m.handlePlayKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSessionLoaded:
		m.refreshLists()
		return m, nil

	case MsgDevicesLoaded:
		if errors.Is(msgErr(msg), shared.ErrSessionClosed) {
			return m, m.show(session.Notification{Level: session.LevelWarn, Message: scanner.Describe(msgErr(msg))})
		}
		m.refreshLists()
		m.view = DeviceView
		return m, nil

	case MsgPlaylistsLoaded:
		if errors.Is(msgErr(msg), shared.ErrSessionClosed) {
			return m, m.show(session.Notification{Level: session.LevelWarn, Message: scanner.Describe(msgErr(msg))})
		}
		m.refreshLists()
		m.view = PlaylistView
		return m, nil

	case MsgNotification:
		n := msg.data.(session.Notification)
		return m, tea.Batch(m.show(n), m.waitForNote())

	case MsgNotificationExpired:
		if seq, _ := msg.data.(int); seq == m.noteSeq {
			m.note = nil
		}
		return m, nil

	case MsgActionDone:
		return m, m.actionDone(msg.data.(actionResult))

	case MsgTick:
		return m, tick()
	}
	return m, nil
}

func (m *Model) handlePlayKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.scan) {
		raw := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if raw == "" {
			return m, nil
		}
		m.revealed = false
		sc := m.scanner
		return m, m.run(ActionScan, func(ctx context.Context) error { return sc.Handle(ctx, raw) })
	}

	if m.input.Value() == "" {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.replay):
			return m, m.replay()
		case key.Matches(msg, m.keys.pause):
			player := m.player
			return m, m.run(ActionPause, player.PauseNow)
		case key.Matches(msg, m.keys.next):
			m.revealed = false
			player, policy := m.player, m.policy.Policy()
			return m, m.run(ActionNext, func(ctx context.Context) error {
				_, err := player.PlayRandomFromSelectedPlaylist(ctx, policy)
				return err
			})
		case key.Matches(msg, m.keys.devices):
			return m, m.loadDevices()
		case key.Matches(msg, m.keys.playlists):
			return m, m.loadPlaylists()
		case key.Matches(msg, m.keys.mode):
			p := m.policy.CycleMode()
			return m, m.show(session.Notification{Level: session.LevelInfo, Message: "Start mode: " + p.String()})
		case key.Matches(msg, m.keys.reveal):
			m.revealed = !m.revealed
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleDeviceKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PlayView
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.loadDevices()
	case key.Matches(msg, m.keys.enter):
		item, ok := m.devices.SelectedItem().(deviceItem)
		if !ok {
			return m, nil
		}
		if item.device.ID == "" {
			return m, m.show(session.Notification{Level: session.LevelWarn, Message: "This device can't be controlled remotely"})
		}
		m.view = PlayView
		sess, id := m.session, item.device.ID
		return m, m.run(ActionDevice, func(ctx context.Context) error { return sess.SetCurrentDevice(ctx, id) })
	}

	var cmd tea.Cmd
	m.devices, cmd = m.devices.Update(msg)
	return m, cmd
}

func (m *Model) handlePlaylistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = PlayView
		return m, nil
	case key.Matches(msg, m.keys.reload):
		return m, m.loadPlaylists()
	case key.Matches(msg, m.keys.clear):
		m.session.ClearPlaylist()
		m.refreshLists()
		m.view = PlayView
		return m, m.show(session.Notification{Level: session.LevelInfo, Message: "Playlist cleared"})
	case key.Matches(msg, m.keys.enter):
		item, ok := m.playlists.SelectedItem().(playlistItem)
		if !ok {
			return m, nil
		}
		if err := m.session.SelectPlaylist(item.playlist.ID); err != nil {
			return m, m.show(session.Notification{Level: session.LevelWarn, Message: "Could not select playlist", Err: err})
		}
		m.refreshLists()
		m.view = PlayView
		return m, m.show(session.Notification{Level: session.LevelInfo, Message: "Playlist: " + item.playlist.Name})
	}

	var cmd tea.Cmd
	m.playlists, cmd = m.playlists.Update(msg)
	return m, cmd
}

func (m *Model) replay() tea.Cmd {
	if song, _ := m.session.Song(); song == nil {
		return m.show(session.Notification{Level: session.LevelInfo, Message: "Nothing to replay yet"})
	}
	player, policy := m.player, m.policy.Policy()
	return m.run(ActionReplay, func(ctx context.Context) error { return player.Replay(ctx, policy) })
}

// actionDone reports the outcome of an action. Scans and device switches report their own failures, and
// an expired session has already been announced by the session.
func (m *Model) actionDone(res actionResult) tea.Cmd {
	if res.err == nil {
		switch res.action {
		case ActionDevice:
			m.refreshLists()
			return m.show(session.Notification{Level: session.LevelInfo, Message: "Device switched"})
		case ActionNext:
			return m.show(session.Notification{Level: session.LevelInfo, Message: "Playing a random track"})
		}
		return nil
	}

	if res.action.selfReporting() || errors.Is(res.err, shared.ErrUnauthorized) {
		return nil
	}

	level := session.LevelError
	if playback.IsUserError(res.err) || errors.Is(res.err, shared.ErrSessionClosed) {
		level = session.LevelWarn
	}
	return m.show(session.Notification{Level: level, Message: scanner.Describe(res.err), Err: res.err})
}

// show displays n until it expires or a newer one replaces it.
func (m *Model) show(n session.Notification) tea.Cmd {
	m.noteSeq++
	m.note = &n
	seq := m.noteSeq
	return tea.Tick(noteTTL, func(time.Time) tea.Msg { return notificationExpiredMsg(seq) })
}

func (m *Model) refreshLists() {
	snap := m.session.Snapshot()
	m.devices.SetItems(deviceItems(snap.Devices, snap.CurrentDeviceID))
	m.playlists.SetItems(playlistItems(snap.Playlists, snap.SelectedPlaylist))
}

func (m *Model) run(action Action, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg(action, fn(ctx))
	}
}

func (m *Model) establish() tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return sessionLoadedMsg(sess.Establish(ctx))
	}
}

func (m *Model) loadDevices() tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return devicesLoadedMsg(sess.LoadDevices(ctx))
	}
}

func (m *Model) loadPlaylists() tea.Cmd {
	ctx, sess := m.ctx, m.session
	return func() tea.Msg {
		return playlistsLoadedMsg(sess.LoadPlaylists(ctx))
	}
}

func (m *Model) waitForNote() tea.Cmd {
	if m.notes == nil {
		return nil
	}
	notes := m.notes
	return func() tea.Msg {
		n, ok := <-notes
		if !ok {
			return nil
		}
		return notificationMsg(n)
	}
}

// tick redraws the status line so the auto-stop shows up without a key press.
func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(time.Time) tea.Msg { return tickMsg() })
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DeviceView:
		return m.renderList(m.devices, m.keys.enter, m.keys.reload, m.keys.back)
	case PlaylistView:
		return m.renderList(m.playlists, m.keys.enter, m.keys.clear, m.keys.reload, m.keys.back)
	default:
		return m.renderPlay()
	}
}

func (m *Model) renderList(l list.Model, bindings ...key.Binding) string {
	out := l.View()
	if m.note != nil {
		out += "\n" + styles.notification(m.note.Level).Render(m.note.Message)
	}
	return fmt.Sprintf("%s\n\n%s", out, m.help.ShortHelpView(bindings))
}

func (m *Model) renderPlay() string {
	snap := m.session.Snapshot()

	var b strings.Builder
	b.WriteString(styles.title.Render("hitqr"))
	b.WriteString("\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", styles.label.Render(label), value)
	}

	device := styles.help.Render("none")
	if d, ok := snap.CurrentDevice(); ok {
		device = fmt.Sprintf("%s (%s)", d.Name, d.Type)
	}
	row("Device", device)

	playlist := styles.help.Render("none")
	if snap.SelectedPlaylist != nil {
		playlist = snap.SelectedPlaylist.Name
	}
	row("Playlist", playlist)
	row("Start", m.policy.Policy().String())

	if snap.Alive {
		row("Status", m.player.State().String())
	} else {
		row("Status", styles.err.Render("logged out"))
	}

	if snap.Song != nil {
		if m.revealed {
			b.WriteString(styles.secret.Render(describeSong(snap.Song, snap.LastOffsetMs)))
			b.WriteString("\n")
		} else {
			b.WriteString(styles.help.Render("press v to reveal the song"))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.note != nil {
		b.WriteString(styles.notification(m.note.Level).Render(m.note.Message))
	}
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func describeSong(song *models.SongData, offsetMs int) string {
	parts := []string{song.Title, song.Artist}
	if song.Year != "" {
		parts = append(parts, song.Year)
	}
	return fmt.Sprintf("%s\nfrom %s", strings.Join(parts, " · "), shared.FormatOffset(offsetMs))
}
