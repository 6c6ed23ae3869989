// Package events provides the pub/sub bus that carries management-plane
// notifications: table mutations, exclusivity re-ranking, interface presence
// changes and DHCP identity learning.
package events

import "time"

// EventType identifies the category of event.
type EventType string

const (
	EventTableChanged     EventType = "table.changed"
	EventFilterReranked   EventType = "filter.reranked"
	EventInterfaceAdded   EventType = "interface.added"
	EventInterfaceRemoved EventType = "interface.removed"
	EventIdentityLearned  EventType = "identity.learned"
)

// Event is the core message passed through the event bus.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Data      interface{} `json:"data"`
}

// TableChangeData is the payload for EventTableChanged.
type TableChangeData struct {
	Table   string `json:"table"` // "bridge", "filter", "marking", "interface"
	Op      string `json:"op"`    // "add", "update", "delete", "replace"
	Key     int    `json:"key"`
	Version uint64 `json:"version"`
}

// RerankData is the payload for EventFilterReranked.
// Orders maps filter key to its new exclusivity order.
type RerankData struct {
	Orders  map[int]int `json:"orders"`
	Version uint64      `json:"version"`
}

// InterfaceData is the payload for EventInterfaceAdded/EventInterfaceRemoved.
type InterfaceData struct {
	Key    int    `json:"key"`
	Device string `json:"device,omitempty"`
}

// IdentityData is the payload for EventIdentityLearned.
type IdentityData struct {
	MAC           string `json:"mac"`
	Interface     string `json:"interface,omitempty"`
	VendorClassID string `json:"vendor_class_id,omitempty"`
	ClientID      string `json:"client_id,omitempty"`
	UserClassID   string `json:"user_class_id,omitempty"`
}
