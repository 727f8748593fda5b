package events

import (
	"sync"

	"github.com/google/uuid"
)

// subscriberBuffer is how many events a slow subscriber can lag behind
// before we start dropping for it.
const subscriberBuffer = 16

// OrderPayload is the body of every order lifecycle event. An OrderID of 0
// on a close event means "several orders at once, refetch".
type OrderPayload struct {
	OrderID   int64  `json:"orderId"`
	TableName string `json:"tableName,omitempty"`
	User      string `json:"user,omitempty"`
	UserID    int64  `json:"userId,omitempty"`
	Amount    string `json:"amount,omitempty"`
	OrderType string `json:"type,omitempty"`
}

// Event pairs a lifecycle kind (ORDER_CREATED, ORDER_UPDATED, ORDER_CLOSED)
// with its payload.
type Event struct {
	Kind    string
	Payload OrderPayload
}

// Bus fans order events out to in-process subscribers (SSE streams, the
// websocket hub). Publishing never blocks; a subscriber that stops draining
// its channel loses events rather than stalling the writer.
type Bus struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]chan Event
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uuid.UUID]chan Event)}
}

// Subscribe registers a new subscriber and returns its id and channel.
// The caller must Unsubscribe when done or the channel leaks.
func (b *Bus) Subscribe() (uuid.UUID, <-chan Event) {
	id := uuid.New()
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()

	if ok {
		close(ch)
	}
}

// Publish delivers the event to every subscriber. Full buffers drop.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many listeners are attached.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
