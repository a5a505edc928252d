package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans snapshot broadcasts out to every connected websocket client.
// It is safe for concurrent use; register, unregister, and broadcast
// all go through channels owned by the Run loop. Keepalive pings clean
// up stale connections.
type Hub struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	upgrader   websocket.Upgrader

	// onClientCount, when set, observes client churn (metrics gauge).
	onClientCount func(int)
}

// NewHub allocates a hub with buffered channels. Call Run in a
// goroutine to start the event loop.
func NewHub(onClientCount func(int)) *Hub {
	return &Hub{
		clients:       make(map[*websocket.Conn]struct{}),
		register:      make(chan *websocket.Conn, 16),
		unregister:    make(chan *websocket.Conn, 16),
		broadcast:     make(chan []byte, 256),
		done:          make(chan struct{}),
		onClientCount: onClientCount,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run processes registrations, unregistrations, broadcasts, and
// keepalive pings in a single select loop. It closes all clients when
// ctx is cancelled; after that, handler goroutines observe the done
// channel instead of parking on an undrained register queue.
func (h *Hub) Run(ctx context.Context) {
	ping := time.NewTicker(20 * time.Second)
	defer ping.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				_ = c.Close()
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.reportCount()

		case c := <-h.unregister:
			delete(h.clients, c)
			_ = c.Close()
			h.reportCount()

		case msg := <-h.broadcast:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(3 * time.Second))
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					delete(h.clients, c)
					_ = c.Close()
					h.reportCount()
				}
			}

		case <-ping.C:
			for c := range h.clients {
				_ = c.SetWriteDeadline(time.Now().Add(2 * time.Second))
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					delete(h.clients, c)
					_ = c.Close()
					h.reportCount()
				}
			}
		}
	}
}

func (h *Hub) reportCount() {
	if h.onClientCount != nil {
		h.onClientCount(len(h.clients))
	}
}

// Handler upgrades incoming requests to websocket connections and
// registers them with the hub. Clients are read-only; inbound messages
// beyond pongs are discarded.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
			return
		}
		select {
		case h.register <- conn:
		case <-h.done:
			_ = conn.Close()
			return
		}

		go func() {
			defer func() {
				select {
				case h.unregister <- conn:
				case <-h.done:
					_ = conn.Close()
				}
			}()
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			conn.SetPongHandler(func(string) error {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
				return nil
			})

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})
}

// BroadcastJSON marshals v to JSON and queues it for delivery to all
// connected clients. If the broadcast channel is full the message is
// dropped rather than blocking the tick loop.
func (h *Hub) BroadcastJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
	}
}
