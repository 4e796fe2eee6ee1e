package daemon

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"quire/internal/logging"
)

// statusHub broadcasts scheduler snapshots to connected websocket clients.
type statusHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	// writeMu serializes writes; gorilla connections allow one writer at
	// a time.
	writeMu sync.Mutex
}

func newStatusHub(logger *slog.Logger) *statusHub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &statusHub{
		logger:  logging.NewComponentLogger(logger, "status-hub"),
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// serve upgrades the request and keeps the connection registered until the
// client goes away.
func (h *statusHub) serve(w http.ResponseWriter, r *http.Request, initial any) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", logging.Int("clients", count))

	if initial != nil {
		h.writeMu.Lock()
		err := conn.WriteJSON(initial)
		h.writeMu.Unlock()
		if err != nil {
			h.logger.Debug("initial websocket write failed", logging.Error(err))
		}
	}

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *statusHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Debug("websocket client disconnected", logging.Int("clients", count))
}

// broadcast pushes a payload to every connected client, dropping clients
// whose writes fail.
func (h *statusHub) broadcast(payload any) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			h.drop(conn)
		}
	}
}

// clientCount reports how many websocket clients are connected.
func (h *statusHub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// close disconnects every client.
func (h *statusHub) close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
