package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/iyunix/go-juri/internal/services/chat"
)

const (
	subscriberBuffer  = 32
	keepAliveInterval = 25 * time.Second
)

// EventBroker fans controller events out to stream subscribers. Slow subscribers miss
// events rather than block the controller.
type EventBroker struct {
	mu     sync.RWMutex
	subs   map[chan chat.Event]struct{}
	logger Logger
}

func NewEventBroker(logger Logger) *EventBroker {
	return &EventBroker{subs: make(map[chan chat.Event]struct{}), logger: logger}
}

// Publish is installed as the controller's change hook.
func (b *EventBroker) Publish(e chat.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event subscriber is full, dropping event", "kind", e.Kind)
		}
	}
}

func (b *EventBroker) Subscribe() chan chat.Event {
	ch := make(chan chat.Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *EventBroker) Unsubscribe(ch chan chat.Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *EventBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stream serves controller events as server-sent events until the client disconnects.
func (b *EventBroker) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				b.logger.Error("failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
			flusher.Flush()
		}
	}
}
