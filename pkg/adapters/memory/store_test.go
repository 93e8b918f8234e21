package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

func testDoc(id string, fields ...core.FieldUpdate) core.Document {
	return core.Document{ID: id, Fields: fields}
}

func TestStore_ReplaceUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Config{})

	res, err := s.ReplaceUpsert(ctx, "books", testDoc("b1",
		core.FieldUpdate{Name: "title", Value: "Dune"},
	))
	if err != nil {
		t.Fatalf("ReplaceUpsert failed: %v", err)
	}
	if res.Upserted != 1 || res.Matched != 0 {
		t.Errorf("Expected insert outcome, got %+v", res)
	}

	res, err = s.ReplaceUpsert(ctx, "books", testDoc("b1",
		core.FieldUpdate{Name: "title", Value: "Dune Messiah"},
	))
	if err != nil {
		t.Fatalf("ReplaceUpsert failed: %v", err)
	}
	if res.Matched != 1 || res.Modified != 1 || res.Upserted != 0 {
		t.Errorf("Expected replace outcome, got %+v", res)
	}

	doc, err := s.Find(ctx, "books", "b1")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if doc["title"] != "Dune Messiah" {
		t.Errorf("Expected replaced title, got %v", doc["title"])
	}
	if doc["_id"] != "b1" {
		t.Errorf("Expected _id in stored doc, got %v", doc["_id"])
	}
}

func TestStore_UpdateFields(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := NewStore(Config{Clock: func() time.Time { return fixed }})

	if _, err := s.ReplaceUpsert(ctx, "books", testDoc("b1",
		core.FieldUpdate{Name: "title", Value: "Dune"},
		core.FieldUpdate{Name: "rating", Value: 5},
	)); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	t.Run("Sets Only Named Fields", func(t *testing.T) {
		res, err := s.UpdateFields(ctx, "books", "b1", []core.FieldUpdate{
			{Name: "rating", Value: 4},
			{Name: "modified_on", ServerTime: true},
		})
		if err != nil {
			t.Fatalf("UpdateFields failed: %v", err)
		}
		if res.Matched != 1 || res.Modified != 1 {
			t.Errorf("Expected matched update, got %+v", res)
		}

		doc, _ := s.Find(ctx, "books", "b1")
		if doc["title"] != "Dune" {
			t.Errorf("Untouched field changed: %v", doc["title"])
		}
		if doc["rating"] != 4 {
			t.Errorf("Expected rating 4, got %v", doc["rating"])
		}
		if got, ok := doc["modified_on"].(time.Time); !ok || !got.Equal(fixed) {
			t.Errorf("Expected server time %v, got %v", fixed, doc["modified_on"])
		}
	})

	t.Run("Missing Document Matches Nothing", func(t *testing.T) {
		res, err := s.UpdateFields(ctx, "books", "ghost", []core.FieldUpdate{
			{Name: "rating", Value: 1},
		})
		if err != nil {
			t.Fatalf("UpdateFields failed: %v", err)
		}
		if res.Matched != 0 {
			t.Errorf("Expected matched=0 for missing doc, got %+v", res)
		}
	})
}

func TestStore_BulkUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore(Config{})

	res, err := s.BulkUpsert(ctx, "books", []core.Document{
		testDoc("b1", core.FieldUpdate{Name: "title", Value: "one"}),
		testDoc("b2", core.FieldUpdate{Name: "title", Value: "two"}),
	})
	if err != nil {
		t.Fatalf("BulkUpsert failed: %v", err)
	}
	if res.Upserted != 2 || len(res.Errors) != 0 {
		t.Errorf("Expected 2 clean upserts, got %+v", res)
	}

	ids, err := s.List(ctx, "books")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "b1" || ids[1] != "b2" {
		t.Errorf("Expected sorted [b1 b2], got %v", ids)
	}
}

func TestStore_FindMissing(t *testing.T) {
	s := NewStore(Config{})
	_, err := s.Find(context.Background(), "books", "nope")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Watch(t *testing.T) {
	s := NewStore(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Watch(ctx, "books")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if _, err := s.ReplaceUpsert(context.Background(), "books", testDoc("b1")); err != nil {
		t.Fatalf("ReplaceUpsert failed: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != core.EventPut || ev.ID != "b1" || ev.Collection != "books" {
			t.Errorf("Unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for event")
	}

	cancel()
	select {
	case _, open := <-events:
		if open {
			// Drain any buffered event; the channel must close soon after.
			for range events {
			}
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for channel close")
	}
}

func TestStore_WatchWholeStore(t *testing.T) {
	s := NewStore(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := s.Watch(ctx, "")
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if _, err := s.ReplaceUpsert(context.Background(), "books", testDoc("b1")); err != nil {
		t.Fatalf("ReplaceUpsert failed: %v", err)
	}
	if _, err := s.ReplaceUpsert(context.Background(), "authors", testDoc("a1")); err != nil {
		t.Fatalf("ReplaceUpsert failed: %v", err)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			seen[ev.Collection+"/"+ev.ID] = true
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for events")
		}
	}
	if !seen["books/b1"] || !seen["authors/a1"] {
		t.Errorf("Expected events from both collections, got %v", seen)
	}
}

func TestStore_CancelledContext(t *testing.T) {
	s := NewStore(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ReplaceUpsert(ctx, "books", testDoc("b1"))
	var se *core.StoreError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StoreError for cancelled context, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled underneath, got %v", err)
	}
}
