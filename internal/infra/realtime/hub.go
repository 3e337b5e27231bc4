// Package realtime pushes new chat messages to connected participants over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/saga"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32

	messageSentEvent = "message.sent"
)

// Frame is what clients receive.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type MessageFrame struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	ListingID      string    `json:"listing_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Hub tracks open connections per user. It consumes message.sent events and
// fans them out to both sides of the conversation.
type Hub struct {
	mu       sync.RWMutex
	clients  map[user.ID]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub accepts upgrades from allowedOrigins; an empty list allows any
// origin.
func NewHub(allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &Hub{
		clients: make(map[user.ID]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
		logger: logger,
	}
}

// Serve upgrades the request and keeps the connection registered for userID
// until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID user.ID) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, user: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)
	go c.writePump()
	go c.readPump()
	return nil
}

// Connected reports how many sockets userID holds.
func (h *Hub) Connected(userID user.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Push sends one frame to every socket of userID. Slow clients are dropped.
func (h *Hub) Push(userID user.ID, frame Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	h.mu.RLock()
	var slow []*client
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range slow {
		h.logger.Warn("realtime client too slow, dropping", "user_id", userID)
		h.unregister(c)
	}
	return nil
}

func (h *Hub) Name() string { return "realtime" }

func (h *Hub) Handles(eventName string) bool { return eventName == messageSentEvent }

func (h *Hub) OnEvent(ctx context.Context, ev outbox.EventRecord) error {
	sent, err := outbox.Decode[conversations.MessageSent](ev)
	if err != nil {
		return err
	}
	frame := Frame{Type: "message", Data: MessageFrame{
		ID:             string(sent.MessageID),
		ConversationID: string(sent.ConversationID),
		SenderID:       string(sent.Sender),
		ReceiverID:     string(sent.Receiver),
		Content:        sent.Content,
		ListingID:      string(sent.Listing),
		CreatedAt:      sent.At,
	}}
	if err := h.Push(sent.Receiver, frame); err != nil {
		return err
	}
	return h.Push(sent.Sender, frame)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[user.ID]map[*client]struct{})
	h.mu.Unlock()
	for _, set := range all {
		for c := range set {
			close(c.send)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.user]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.user] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.user]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.user)
	}
	close(c.send)
}

var _ saga.Saga = (*Hub)(nil)
