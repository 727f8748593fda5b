package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/zaiqa-pos/api/internal/events"
)

// Message is a WebSocket frame sent to desktop clients. It mirrors the SSE
// stream so either transport can drive the table grid.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]bool

	// Inbound messages from clients (register/unregister)
	register   chan *Client
	unregister chan *Client

	// Outbound messages to broadcast
	broadcast chan Message

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.clients[client]; exists {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}

			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client's send buffer is full, close and unregister
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.broadcast <- msg
}

// ClientCount reports how many connections are registered.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Bridge subscribes the hub to the order event bus and relays every event
// as a websocket frame. It returns when ctx is cancelled.
func (h *Hub) Bridge(ctx context.Context, bus *events.Bus) {
	id, ch := bus.Subscribe()
	defer bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(ev.Payload)
			if err != nil {
				log.Printf("ERROR: marshal ws payload: %v", err)
				continue
			}
			h.Broadcast(Message{Type: ev.Kind, Payload: payload})
		}
	}
}
