package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one event pushed to WebSocket clients.
type Message struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Score     float64   `json:"score,omitempty"`
	Builtin   bool      `json:"builtin,omitempty"`
	Hand      string    `json:"hand,omitempty"`
	Frames    int       `json:"frames,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub broadcasts engine notifications to WebSocket clients. It
// implements gesture.Listener and never blocks the caller: a client whose
// buffer is full misses the message.
type EventHub struct {
	log     *zap.SugaredLogger
	mu      sync.RWMutex
	clients map[*websocket.Conn]chan []byte
	now     func() time.Time
}

// NewEventHub creates an EventHub with no clients.
func NewEventHub(log *zap.SugaredLogger) *EventHub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &EventHub{
		log:     log,
		clients: make(map[*websocket.Conn]chan []byte),
		now:     time.Now,
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan []byte, sendBuffer)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go h.writeLoop(conn, send)

	// Reads only detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

// Clients returns the number of connected clients.
func (h *EventHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *EventHub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn, send := range h.clients {
		close(send)
		delete(h.clients, conn)
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// GestureConfirmed implements gesture.Listener.
func (h *EventHub) GestureConfirmed(ev gesture.Event) {
	h.Broadcast(Message{
		Type:      "gesture",
		Name:      ev.Name,
		Score:     ev.Score,
		Builtin:   ev.Builtin,
		Hand:      string(ev.Hand),
		Timestamp: ev.Time,
	})
}

// LearningProgress implements gesture.Listener.
func (h *EventHub) LearningProgress(name string, frames int) {
	h.Broadcast(Message{Type: "learning", Name: name, Frames: frames, Timestamp: h.now()})
}

// LearningFinished implements gesture.Listener.
func (h *EventHub) LearningFinished(res gesture.LearnResult, err error) {
	msg := Message{Type: "learned", Name: res.Name, Frames: res.Sequence.Len(), Timestamp: h.now()}
	if err != nil {
		msg.Type = "learning_failed"
		msg.Frames = res.Captured
		msg.Error = err.Error()
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every client.
func (h *EventHub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Errorw("encoding event failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, send := range h.clients {
		select {
		case send <- data:
		default:
		}
	}
}

func (h *EventHub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for data := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debugw("websocket write failed", "error", err)
			h.remove(conn)
			return
		}
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.clients[conn]
	if ok {
		close(send)
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}
