package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/hitqr/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionLoaded MsgKind = iota
	MsgDevicesLoaded
	MsgPlaylistsLoaded
	MsgNotification
	MsgNotificationExpired
	MsgActionDone
	MsgTick
)

// Action names a user action whose result comes back as [MsgActionDone].
type Action int

const (
	ActionScan Action = iota
	ActionReplay
	ActionPause
	ActionNext
	ActionDevice
)

func (a Action) String() string {
	switch a {
	case ActionScan:
		return "scan"
	case ActionReplay:
		return "replay"
	case ActionPause:
		return "pause"
	case ActionNext:
		return "next"
	case ActionDevice:
		return "device"
	default:
		return "unknown"
	}
}

// selfReporting reports whether the action's failures already reach the notifier.
func (a Action) selfReporting() bool {
	return a == ActionScan || a == ActionDevice
}

type actionResult struct {
	action Action
	err    error
}

// sessionLoadedMsg is the constructor for [MsgSessionLoaded]
func sessionLoadedMsg(err error) Msg {
	return Msg{kind: MsgSessionLoaded, data: err}
}

// devicesLoadedMsg is the constructor for [MsgDevicesLoaded]
func devicesLoadedMsg(err error) Msg {
	return Msg{kind: MsgDevicesLoaded, data: err}
}

// playlistsLoadedMsg is the constructor for [MsgPlaylistsLoaded]
func playlistsLoadedMsg(err error) Msg {
	return Msg{kind: MsgPlaylistsLoaded, data: err}
}

// notificationMsg is the constructor for [MsgNotification]
func notificationMsg(n session.Notification) Msg {
	return Msg{kind: MsgNotification, data: n}
}

// notificationExpiredMsg is the constructor for [MsgNotificationExpired]
func notificationExpiredMsg(seq int) Msg {
	return Msg{kind: MsgNotificationExpired, data: seq}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(action Action, err error) Msg {
	return Msg{kind: MsgActionDone, data: actionResult{action: action, err: err}}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg() Msg {
	return Msg{kind: MsgTick}
}

func msgErr(msg Msg) error {
	err, _ := msg.data.(error)
	return err
}
