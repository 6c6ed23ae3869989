package events

import (
	"testing"
	"time"
)

func TestHub_PublishSubscribe(t *testing.T) {
	hub := NewHub()

	ch := hub.Subscribe(10, EventTableChanged)
	hub.EmitTableChange("filter", "add", 4, 7)

	select {
	case e := <-ch:
		if e.Type != EventTableChanged {
			t.Errorf("expected EventTableChanged, got %s", e.Type)
		}
		if e.ID == "" {
			t.Error("event ID should be assigned")
		}
		data, ok := e.Data.(TableChangeData)
		if !ok {
			t.Fatal("expected TableChangeData")
		}
		if data.Key != 4 || data.Version != 7 {
			t.Errorf("unexpected payload %+v", data)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestHub_GlobalSubscription(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(10)

	hub.EmitTableChange("bridge", "delete", 1, 1)
	hub.EmitRerank(map[int]int{1: 1, 2: 2}, 2)
	hub.EmitInterface(true, 3, "eth1")

	received := 0
	for i := 0; i < 3; i++ {
		select {
		case <-ch:
			received++
		case <-time.After(100 * time.Millisecond):
		}
	}
	if received != 3 {
		t.Errorf("expected 3 events, got %d", received)
	}
}

func TestHub_TypeFiltering(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(10, EventFilterReranked)

	hub.EmitTableChange("filter", "add", 1, 1)

	select {
	case e := <-ch:
		t.Errorf("unexpected event %s", e.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_DropWhenFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe(1, EventInterfaceAdded)

	hub.EmitInterface(true, 1, "")
	hub.EmitInterface(true, 2, "")

	published, dropped := hub.Stats()
	if published != 2 || dropped != 1 {
		t.Errorf("Stats() = %d/%d, want 2/1", published, dropped)
	}

	hub.Unsubscribe(ch)
	hub.EmitInterface(true, 3, "")
	if len(ch) != 1 {
		t.Errorf("unsubscribed channel received more events: %d", len(ch))
	}
}

func TestHub_NilIsNoop(t *testing.T) {
	var hub *Hub
	hub.EmitTableChange("filter", "add", 1, 1)
}
