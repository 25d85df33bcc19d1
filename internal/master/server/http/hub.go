package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	v1 "github.com/flightlab-io/flightlab/api/v1"
	"github.com/flightlab-io/flightlab/internal/pkg/queue"
	"github.com/flightlab-io/flightlab/pkg/log"
)

const (
	clientBuffer = 16
	writeTimeout = 2 * time.Second
)

// Message is one websocket frame of /ws/status.
type Message struct {
	Type   string            `json:"type"`
	State  *v1.SystemState   `json:"state,omitempty"`
	Status *v1.MachineStatus `json:"status,omitempty"`
}

func stateMessage(s v1.SystemState) Message {
	return Message{Type: "state", State: &s}
}

func statusMessage(ms *v1.MachineStatus) Message {
	return Message{Type: "status", Status: ms}
}

// hub fans messages out to websocket clients. A client whose buffer is full
// misses the message.
type hub struct {
	log      log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan Message
	done    chan struct{}
	once    sync.Once
}

func newHub(l log.Logger) *hub {
	return &hub{
		log: l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]chan Message),
		done:    make(chan struct{}),
	}
}

func (h *hub) add(id string, ch chan Message) {
	h.mu.Lock()
	h.clients[id] = ch
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("Added websocket client", "id", id, "clients", n)
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug("Removed websocket client", "id", id, "clients", n)
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- m:
		default:
			h.log.Warn("Websocket client buffer full, dropping message", "id", id, "type", m.Type)
		}
	}
}

// pump forwards the status feed until ctx is done or the feed is closed.
func (h *hub) pump(ctx context.Context, feed *queue.Queue[*v1.MachineStatus]) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-feed.Closed():
			return
		default:
		}
		if ms, ok := feed.Get(ctx, time.Second); ok {
			h.broadcast(statusMessage(ms))
		}
	}
}

// close disconnects every client.
func (h *hub) close() {
	h.once.Do(func() { close(h.done) })
}

// serve upgrades the request and streams messages, starting with the current
// state, until the peer goes away.
func (h *hub) serve(w http.ResponseWriter, r *http.Request, current v1.SystemState) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Info("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ch := make(chan Message, clientBuffer)
	id := uuid.NewString()
	h.add(id, ch)
	defer h.remove(id)

	// Reads only detect the peer closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, stateMessage(current)); err != nil {
		h.log.Info("Failed to send initial state", "error", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeTimeout))
			return
		case <-gone:
			return
		case m := <-ch:
			if err := h.write(conn, m); err != nil {
				h.log.Debug("Websocket client disconnected", "id", id, "error", err)
				return
			}
		}
	}
}

func (h *hub) write(conn *websocket.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
