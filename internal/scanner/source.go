package scanner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/hitqr/internal/shared"
)

// Source is a scanner that can be started and cancelled repeatedly.
//
// Decodes returns the channel of the current run; it is closed when the run is cancelled, its context ends
// or the input is exhausted. Decodes not yet received when a run ends are discarded.
type Source interface {
	Start(ctx context.Context) error
	Decodes() <-chan string
	Cancel()
}

// run is one Start..Cancel cycle.
type run struct {
	in   chan string
	out  chan string
	done chan struct{}
	once sync.Once
}

func newRun(buffer int) *run {
	r := &run{
		in:   make(chan string, buffer),
		out:  make(chan string),
		done: make(chan struct{}),
	}
	go r.forward()
	return r
}

func (r *run) stop() {
	r.once.Do(func() { close(r.done) })
}

func (r *run) stopped() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// forward is the only sender on out, so it owns closing it.
func (r *run) forward() {
	defer r.stop()
	defer close(r.out)
	for {
		select {
		case <-r.done:
			return
		case raw, ok := <-r.in:
			if !ok || r.stopped() {
				return
			}
			select {
			case r.out <- raw:
			case <-r.done:
				return
			}
		}
	}
}

// stream implements the run lifecycle shared by every source.
type stream struct {
	mu     sync.Mutex
	cur    *run
	buffer int
	closed bool
}

func (s *stream) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return shared.ErrScannerClosed
	}
	if s.cur != nil && !s.cur.stopped() {
		return shared.ErrScannerRunning
	}

	r := newRun(s.buffer)
	s.cur = r
	go func() {
		select {
		case <-ctx.Done():
			r.stop()
		case <-r.done:
		}
	}()
	return nil
}

func (s *stream) Decodes() <-chan string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		ch := make(chan string)
		close(ch)
		return ch
	}
	return s.cur.out
}

func (s *stream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.stop()
	}
}

func (s *stream) running() *run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil || s.cur.stopped() {
		return nil
	}
	return s.cur
}

// offer hands raw to the current run. Without a run it is dropped. When wait is false a full buffer drops it
// too.
func (s *stream) offer(raw string, wait bool) bool {
	r := s.running()
	if r == nil {
		return false
	}

	if !wait {
		select {
		case r.in <- raw:
			return true
		default:
			return false
		}
	}

	select {
	case r.in <- raw:
		return true
	case <-r.done:
		return false
	}
}

// close refuses further starts and lets the current run drain what was already offered before ending.
// Only the sole sender may call it.
func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cur != nil && !s.cur.stopped() {
		close(s.cur.in)
	}
}

// LineSource reads one decode per line, typically from a keyboard-wedge scanner on stdin.
//
// Lines read while no run is active are discarded.
type LineSource struct {
	stream
	r      io.Reader
	once   sync.Once
	logger *log.Logger
}

// NewLineSource creates a [LineSource] reading from r.
func NewLineSource(r io.Reader, logger *log.Logger) *LineSource {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LineSource{stream: stream{buffer: 1}, r: r, logger: logger}
}

// Start begins a run. The reader is consumed from the first Start on.
func (l *LineSource) Start(ctx context.Context) error {
	if err := l.stream.Start(ctx); err != nil {
		return err
	}
	l.once.Do(func() { go l.pump() })
	return nil
}

func (l *LineSource) pump() {
	sc := bufio.NewScanner(l.r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !l.offer(line, true) {
			l.logger.Debug("discarding decode while scanner is stopped")
		}
	}
	if err := sc.Err(); err != nil {
		l.logger.Error("scanner input failed", "error", err)
	}
	l.close()
}

// FeedSource receives decodes pushed from elsewhere, such as a phone camera streaming over a websocket.
type FeedSource struct {
	stream
}

// NewFeedSource creates a [FeedSource] that buffers up to buffer undelivered decodes.
func NewFeedSource(buffer int) *FeedSource {
	if buffer <= 0 {
		buffer = 16
	}
	return &FeedSource{stream: stream{buffer: buffer}}
}

// Push queues a decode for the current run. It returns false when the decode was discarded because no run is
// active or the buffer is full.
func (f *FeedSource) Push(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	return f.offer(raw, false)
}

// Running reports whether a run is active.
func (f *FeedSource) Running() bool {
	return f.running() != nil
}
