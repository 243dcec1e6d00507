package hub

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xca-bot/xcaboard/internal/state"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub pushes state snapshots to connected dashboard browsers over WebSocket.
// Each connection gets its own store subscription, so a slow browser only
// loses intermediate snapshots, never the latest one.
type Hub struct {
	store    *state.Store
	upgrader websocket.Upgrader
	clients  atomic.Int64
}

func New(store *state.Store) *Hub {
	return &Hub{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is enforced by the CORS middleware in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Clients reports the number of open WebSocket connections.
func (h *Hub) Clients() int64 {
	return h.clients.Load()
}

// ServeHTTP upgrades the connection and streams snapshots until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	h.clients.Add(1)
	slog.Debug("websocket client connected", "remote", r.RemoteAddr)

	snapshots, cancel := h.store.Subscribe()
	done := make(chan struct{})

	go h.readLoop(conn, done)
	go h.writeLoop(conn, snapshots, cancel, done)
}

// readLoop discards inbound frames; its job is answering pings and noticing
// when the peer hangs up.
func (h *Hub) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, snapshots <-chan state.Snapshot, cancel func(), done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
		h.clients.Add(-1)
	}()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
