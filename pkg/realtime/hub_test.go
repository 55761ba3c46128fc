package realtime

import (
	"testing"
	"time"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub(2)
	id1, ch1 := h.Register()
	_, ch2 := h.Register()
	if h.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", h.Size())
	}

	h.Broadcast(Event{Type: EventFeatured, PropertyID: 5, Featured: true})
	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.PropertyID != 5 || !ev.Featured {
				t.Errorf("listener %d got %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("listener %d got nothing", i)
		}
	}

	h.Unregister(id1)
	h.Unregister(id1)
	if _, ok := <-ch1; ok {
		t.Error("unregistered channel still open")
	}
	if h.Size() != 1 {
		t.Errorf("Size() = %d, want 1", h.Size())
	}
}

func TestHubDropsForSlowListener(t *testing.T) {
	h := NewHub(1)
	_, ch := h.Register()
	h.Broadcast(Event{Type: EventFeatured, PropertyID: 1})
	h.Broadcast(Event{Type: EventFeatured, PropertyID: 2})

	ev := <-ch
	if ev.PropertyID != 1 {
		t.Errorf("first event = %d, want 1", ev.PropertyID)
	}
	select {
	case ev := <-ch:
		t.Errorf("expected the second event to be dropped, got %+v", ev)
	default:
	}
}
