package session

import (
	"github.com/charmbracelet/log"
)

// Level is the severity of a [Notification].
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient, user-visible message. None of them are fatal.
type Notification struct {
	Level   Level
	Message string
	Err     error
}

// Notifier delivers notifications to whatever front end is attached.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a logger, for the line oriented CLI commands.
type LogNotifier struct {
	Logger *log.Logger
}

func (l LogNotifier) Notify(n Notification) {
	kv := []any{}
	if n.Err != nil {
		kv = append(kv, "error", n.Err)
	}

	switch n.Level {
	case LevelError:
		l.Logger.Error(n.Message, kv...)
	case LevelWarn:
		l.Logger.Warn(n.Message, kv...)
	default:
		l.Logger.Info(n.Message, kv...)
	}
}

// ChanNotifier forwards notifications to a buffered channel. When the buffer is full the notification is
// dropped so a slow reader never blocks playback.
type ChanNotifier struct {
	ch chan Notification
}

// NewChanNotifier creates a [ChanNotifier] with the given buffer size.
func NewChanNotifier(size int) *ChanNotifier {
	return &ChanNotifier{ch: make(chan Notification, size)}
}

func (c *ChanNotifier) Notify(n Notification) {
	select {
	case c.ch <- n:
	default:
	}
}

// C returns the receive side of the channel.
func (c *ChanNotifier) C() <-chan Notification {
	return c.ch
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}
