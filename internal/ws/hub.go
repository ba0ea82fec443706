package ws

import (
	"encoding/json"
	"sync"
	"time"
)

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Event is the envelope pushed to connected users.
type Event struct {
	Type       string    `json:"type"`
	TeamID     string    `json:"team_id,omitempty"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Hub fans events out to the open connections of each user.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
	done      chan struct{}
}

type message struct {
	userID  string
	payload []byte
}

type subscription struct {
	userID string
	client Subscriber
}

// NewHub creates an initialized Hub and starts its loop.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, 64),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for userID, clients := range h.clients {
				for c := range clients {
					c.Close()
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return
		case sub := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[sub.userID]; !ok {
				h.clients[sub.userID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.userID][sub.client] = struct{}{}
			h.mu.Unlock()
		case sub := <-h.unreg:
			h.mu.Lock()
			if clients, ok := h.clients[sub.userID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.userID)
				}
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			if clients, ok := h.clients[msg.userID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.userID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register adds a client to a user's stream.
func (h *Hub) Register(userID string, client Subscriber) {
	select {
	case h.register <- subscription{userID: userID, client: client}:
	case <-h.done:
	}
}

// Unregister removes a client.
func (h *Hub) Unregister(userID string, client Subscriber) {
	select {
	case h.unreg <- subscription{userID: userID, client: client}:
	case <-h.done:
	}
}

// Broadcast sends payload to every connection of the user.
func (h *Hub) Broadcast(userID string, payload []byte) {
	select {
	case h.broadcast <- message{userID: userID, payload: payload}:
	case <-h.done:
	}
}

// Publish encodes event and broadcasts it to the user.
func (h *Hub) Publish(userID string, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.Broadcast(userID, payload)
	return nil
}

// Connected reports how many open connections a user has.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Close stops the loop and closes every client.
func (h *Hub) Close() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}
