package sse

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/zaiqa-pos/api/internal/events"
)

// heartbeatInterval keeps proxies from reaping idle connections.
const heartbeatInterval = 30 * time.Second

// Handler streams order lifecycle events to browsers over Server-Sent
// Events. One subscription per connection; it lives until the client
// disconnects.
type Handler struct {
	bus       *events.Bus
	heartbeat time.Duration
}

// NewHandler creates an SSE handler on the given bus.
func NewHandler(bus *events.Bus) *Handler {
	return &Handler{bus: bus, heartbeat: heartbeatInterval}
}

// Stream is GET /api/notifications/stream.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id, ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(id)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			// Comment line, ignored by EventSource but keeps the pipe warm.
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				log.Printf("ERROR: marshal sse payload: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
