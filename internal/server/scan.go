package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Pusher accepts decoded QR strings. [scanner.FeedSource] satisfies it.
type Pusher interface {
	Push(raw string) bool
}

// ScanAck is written back for every decode a client sends.
type ScanAck struct {
	Accepted bool `json:"accepted"`
}

const scanWriteTimeout = 5 * time.Second

// ScanFeedHandler streams decodes from websocket clients into a scan source.
type ScanFeedHandler struct {
	feed     Pusher
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewScanFeedHandler creates a handler pushing into feed.
func NewScanFeedHandler(feed Pusher, logger *log.Logger) *ScanFeedHandler {
	return &ScanFeedHandler{
		feed:   feed,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ScanFeedHandler) Routes() []string {
	return []string{"/scan"}
}

// ServeHTTP upgrades the connection and reads text frames until the client goes away.
func (h *ScanFeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	h.track(conn)
	defer h.untrack(conn)

	h.logger.Info("scanner connected", "remote", r.RemoteAddr)
	defer h.logger.Info("scanner disconnected", "remote", r.RemoteAddr)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("scanner read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		ack := ScanAck{Accepted: h.feed.Push(string(data))}
		conn.SetWriteDeadline(time.Now().Add(scanWriteTimeout))
		if err := conn.WriteJSON(ack); err != nil {
			return
		}
	}
}

// Close disconnects every client.
func (h *ScanFeedHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
	}
}

// Clients returns the number of connected clients.
func (h *ScanFeedHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *ScanFeedHandler) track(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *ScanFeedHandler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}
