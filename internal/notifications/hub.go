package notifications

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"
)

// Event kinds pushed over a user's notification stream.
const (
	EventCreated = "notification.created"
	EventRead    = "notification.read"
	EventReadAll = "notification.read_all"
)

const (
	sendBuffer  = 16
	idleTimeout = 5 * time.Minute
)

// Event is one message on the stream: the kind plus, for single-notification
// kinds, the notification payload and id.
type Event struct {
	Kind           string      `json:"event"`
	Notification   interface{} `json:"notification,omitempty"`
	NotificationID string      `json:"notification_id,omitempty"`
	SentAt         time.Time   `json:"sent_at"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans notification events out to each user's connected sockets.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[*subscriber]struct{}
}

// NewHub constructs an empty hub.
func NewHub() *Hub {
	return &Hub{streams: make(map[string]map[*subscriber]struct{})}
}

// Serve upgrades the request to a WebSocket and pumps the user's events until
// the peer disconnects or goes idle.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	server := websocket.Server{
		Handshake: func(config *websocket.Config, req *http.Request) error {
			config.Protocol = append(config.Protocol, "json")
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			_ = conn.SetDeadline(time.Now().Add(idleTimeout))
			sub := &subscriber{conn: conn, send: make(chan Event, sendBuffer)}

			h.attach(userID, sub)
			defer h.detach(userID, sub)

			go sub.writeLoop()
			sub.readLoop()
		},
	}

	server.ServeHTTP(w, r)
}

// Broadcast stamps and delivers an event to every socket the user has open.
// A subscriber whose buffer is full is skipped, not waited on.
func (h *Hub) Broadcast(userID string, event Event) {
	event.SentAt = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.streams[userID] {
		select {
		case sub.send <- event:
		default:
		}
	}
}

// Subscribers reports how many sockets the user currently has open.
func (h *Hub) Subscribers(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}

func (h *Hub) attach(userID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streams[userID] == nil {
		h.streams[userID] = make(map[*subscriber]struct{})
	}
	h.streams[userID][sub] = struct{}{}
}

func (h *Hub) detach(userID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs := h.streams[userID]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.streams, userID)
		}
	}
	close(sub.send)
	_ = sub.conn.Close()
}

func (sub *subscriber) writeLoop() {
	for event := range sub.send {
		if err := websocket.JSON.Send(sub.conn, event); err != nil {
			return
		}
	}
}

// readLoop drains the peer until it hangs up; inbound frames carry nothing
// the engine acts on.
func (sub *subscriber) readLoop() {
	defer sub.conn.Close()

	for {
		var discard interface{}
		if err := websocket.JSON.Receive(sub.conn, &discard); err != nil {
			return
		}
	}
}
