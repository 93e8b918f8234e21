package file

import (
	"sync"
	"testing"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

func collectEvents() (func(core.Event), func() []core.Event) {
	var mu sync.Mutex
	var got []core.Event

	record := func(e core.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	}
	snapshot := func() []core.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]core.Event(nil), got...)
	}
	return record, snapshot
}

func TestDebouncer(t *testing.T) {
	t.Run("Delivers Only The Last Event Per Key", func(t *testing.T) {
		d := newDebouncer(30 * time.Millisecond)
		record, snapshot := collectEvents()

		for i := 0; i < 3; i++ {
			d.add("books/b1.json", core.Event{Type: core.EventPut, Collection: "books", ID: "b1"}, record)
		}
		d.add("books/b1.json", core.Event{Type: core.EventDelete, Collection: "books", ID: "b1"}, record)

		time.Sleep(100 * time.Millisecond)

		got := snapshot()
		if len(got) != 1 {
			t.Fatalf("Expected 1 coalesced event, got %d", len(got))
		}
		if got[0].Type != core.EventDelete {
			t.Errorf("Expected the last event to win, got %s", got[0].Type)
		}
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		d := newDebouncer(20 * time.Millisecond)
		record, snapshot := collectEvents()

		d.add("books/b1.json", core.Event{Type: core.EventPut, ID: "b1"}, record)
		d.add("books/b2.json", core.Event{Type: core.EventPut, ID: "b2"}, record)

		time.Sleep(80 * time.Millisecond)

		if got := snapshot(); len(got) != 2 {
			t.Fatalf("Expected 2 events, got %d", len(got))
		}
	})

	t.Run("StopAndWait Suppresses Pending Events", func(t *testing.T) {
		d := newDebouncer(50 * time.Millisecond)
		record, snapshot := collectEvents()

		d.add("books/b1.json", core.Event{Type: core.EventPut, ID: "b1"}, record)
		d.stopAndWait(time.Second)

		time.Sleep(100 * time.Millisecond)

		if got := snapshot(); len(got) != 0 {
			t.Fatalf("Expected no events after stop, got %d", len(got))
		}

		d.add("books/b2.json", core.Event{Type: core.EventPut, ID: "b2"}, record)
		time.Sleep(100 * time.Millisecond)
		if got := snapshot(); len(got) != 0 {
			t.Error("Expected adds after stop to be rejected")
		}
	})
}
