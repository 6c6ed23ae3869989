package events

import (
	"sync"

	"github.com/google/uuid"

	"grimm.is/l2bridge/internal/clock"
)

// Hub is the central event bus.
// It provides pub/sub semantics with typed events and non-blocking fan-out.
type Hub struct {
	mu   sync.RWMutex
	subs map[EventType][]chan Event

	// Global subscribers receive all events
	global []chan Event

	published uint64
	dropped   uint64
}

// NewHub creates a new event hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[EventType][]chan Event),
	}
}

// Publish sends an event to all subscribers of that event type.
// This is non-blocking - if a subscriber's channel is full, the event is dropped.
// A nil Hub discards the event.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = clock.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.published++

	for _, ch := range h.subs[e.Type] {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}

	for _, ch := range h.global {
		select {
		case ch <- e:
		default:
			h.dropped++
		}
	}
}

// Subscribe returns a channel that receives events of the specified types.
// If no types are specified, subscribes to all events.
// The caller is responsible for draining the channel to avoid drops.
func (h *Hub) Subscribe(bufSize int, types ...EventType) <-chan Event {
	if bufSize <= 0 {
		bufSize = 256
	}

	ch := make(chan Event, bufSize)

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(types) == 0 {
		h.global = append(h.global, ch)
	} else {
		for _, t := range types {
			h.subs[t] = append(h.subs[t], ch)
		}
	}

	return ch
}

// Unsubscribe removes a channel from all subscriptions.
// The channel is NOT closed by this method.
func (h *Hub) Unsubscribe(ch <-chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.global = removeFromSlice(h.global, ch)
	for t, subs := range h.subs {
		h.subs[t] = removeFromSlice(subs, ch)
	}
}

// Stats returns publish/drop counts for monitoring.
func (h *Hub) Stats() (published, dropped uint64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.published, h.dropped
}

func removeFromSlice(slice []chan Event, target <-chan Event) []chan Event {
	result := make([]chan Event, 0, len(slice))
	for _, ch := range slice {
		if ch != target {
			result = append(result, ch)
		}
	}
	return result
}

// EmitTableChange publishes a table mutation.
func (h *Hub) EmitTableChange(table, op string, key int, version uint64) {
	h.Publish(Event{
		Type:   EventTableChanged,
		Source: "bridging",
		Data:   TableChangeData{Table: table, Op: op, Key: key, Version: version},
	})
}

// EmitRerank publishes the new exclusivity orders after a re-rank.
func (h *Hub) EmitRerank(orders map[int]int, version uint64) {
	h.Publish(Event{
		Type:   EventFilterReranked,
		Source: "bridging",
		Data:   RerankData{Orders: orders, Version: version},
	})
}

// EmitInterface publishes an interface appearing or disappearing.
func (h *Hub) EmitInterface(added bool, key int, device string) {
	t := EventInterfaceRemoved
	if added {
		t = EventInterfaceAdded
	}
	h.Publish(Event{
		Type:   t,
		Source: "network",
		Data:   InterfaceData{Key: key, Device: device},
	})
}

// EmitIdentity publishes a learned DHCP identity.
func (h *Hub) EmitIdentity(data IdentityData) {
	h.Publish(Event{
		Type:   EventIdentityLearned,
		Source: "dhcp",
		Data:   data,
	})
}
