package appctx

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventRefreshed EventType = "context.refreshed"
	EventClosed    EventType = "context.closed"
)

// Event is a lifecycle signal. Context is the context whose lifecycle
// changed, which for events received from a child is not the listener's own.
type Event struct {
	ID        string
	Type      EventType
	Context   *Context
	Timestamp time.Time
}

// Listener receives lifecycle events.
type Listener func(Event)

func newEvent(t EventType, c *Context) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Context:   c,
		Timestamp: time.Now().UTC(),
	}
}

// History is a thread-safe circular buffer of lifecycle events.
type History struct {
	mu     sync.RWMutex
	events []Event
	size   int
	head   int
	count  int
}

// NewHistory creates a history holding up to size events.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 64
	}
	return &History{
		events: make([]Event, size),
		size:   size,
	}
}

// Add appends an event, overwriting the oldest one when full.
func (h *History) Add(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events[h.head] = ev
	h.head = (h.head + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// Recent returns the most recent n events, newest first.
func (h *History) Recent(n int) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || h.count == 0 {
		return nil
	}
	if n > h.count {
		n = h.count
	}

	result := make([]Event, n)
	for i := 0; i < n; i++ {
		idx := (h.head - 1 - i + h.size) % h.size
		result[i] = h.events[idx]
	}
	return result
}

// Count returns the number of events held.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
