package sessionapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gbmwave/internal/domain"
	"gbmwave/internal/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// client is a single WebSocket connection registered with the Hub.
type client struct {
	conn *websocket.Conn
	send chan domain.Snapshot
}

// Hub bridges a live.Updater's snapshot subscription to any number of
// WebSocket clients, broadcasting every published snapshot to each
// connected client without letting a slow client block the others.
type Hub struct {
	updater *live.Updater
	log     *slog.Logger

	register   chan *client
	unregister chan *client
	clients    map[*client]bool
}

// NewHub creates a Hub reading snapshots from updater.
func NewHub(updater *live.Updater, log *slog.Logger) *Hub {
	return &Hub{
		updater:    updater,
		log:        log,
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
	}
}

// Run subscribes to the updater's snapshot hub and drives client
// (un)registration and broadcast until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	subID, snapCh := h.updater.Subscribe(16)
	defer h.updater.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case snap, ok := <-snapCh:
			if !ok {
				return
			}
			for c := range h.clients {
				select {
				case c.send <- snap:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// HandleWebSocket upgrades the connection and streams snapshots to it
// until the client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan domain.Snapshot, 16)}
	h.register <- c

	go c.readPump(h)
	go c.writePump()
}

// readPump drains (and discards) incoming client messages purely to
// detect disconnects; this hub is publish-only.
func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case snap, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
