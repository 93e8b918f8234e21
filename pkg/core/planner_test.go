package core_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

// mockStore implements core.Store in memory, recording the calls it sees.
// It deliberately implements none of the optional capabilities.
type mockStore struct {
	replaceCalls int
	bulkCalls    int
	updateCalls  int

	lastCollection string
	lastDoc        core.Document
	lastDocs       []core.Document
	lastID         string
	lastFields     []core.FieldUpdate

	failWith   error
	bulkResult *core.BulkResult
}

func (m *mockStore) ReplaceUpsert(ctx context.Context, collection string, doc core.Document) (core.WriteResult, error) {
	m.replaceCalls++
	m.lastCollection = collection
	m.lastDoc = doc
	if m.failWith != nil {
		return core.WriteResult{}, m.failWith
	}
	return core.WriteResult{Matched: 0, Upserted: 1}, nil
}

func (m *mockStore) BulkUpsert(ctx context.Context, collection string, docs []core.Document) (core.BulkResult, error) {
	m.bulkCalls++
	m.lastCollection = collection
	m.lastDocs = docs
	if m.failWith != nil {
		return core.BulkResult{}, m.failWith
	}
	if m.bulkResult != nil {
		return *m.bulkResult, nil
	}
	return core.BulkResult{Upserted: int64(len(docs))}, nil
}

func (m *mockStore) UpdateFields(ctx context.Context, collection string, id string, fields []core.FieldUpdate) (core.WriteResult, error) {
	m.updateCalls++
	m.lastCollection = collection
	m.lastID = id
	m.lastFields = fields
	if m.failWith != nil {
		return core.WriteResult{}, m.failWith
	}
	return core.WriteResult{Matched: 1, Modified: 1}, nil
}

func newTestPlanner(t *testing.T, store core.Store) *core.Planner {
	t.Helper()
	seq := 0
	p, err := core.NewPlanner(core.PlannerConfig{
		Store:    store,
		Registry: core.NewRegistry(nil),
		Clock:    func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			seq++
			return fmt.Sprintf("gen-%d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewPlanner failed: %v", err)
	}
	return p
}

func TestPlanner_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("Assigns Identity And Stamps", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		a := &Article{Title: "hello"}
		res, err := p.Save(ctx, a)
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if res.Upserted != 1 {
			t.Errorf("Expected upserted=1, got %d", res.Upserted)
		}

		if a.GetID() != "gen-1" {
			t.Errorf("Expected generated ID, got %q", a.GetID())
		}
		if a.GetCreatedOn().IsZero() {
			t.Error("Expected CreatedOn to be set on first save")
		}
		if a.GetModifiedOn().IsZero() {
			t.Error("Expected ModifiedOn to be touched")
		}

		if store.replaceCalls != 1 {
			t.Fatalf("Expected one replace, got %d", store.replaceCalls)
		}
		if store.lastCollection != "article" {
			t.Errorf("Expected collection 'article', got %q", store.lastCollection)
		}
		if store.lastDoc.ID != "gen-1" {
			t.Errorf("Expected doc keyed by generated ID, got %q", store.lastDoc.ID)
		}
		for _, f := range store.lastDoc.Fields {
			if f.Name == "_id" {
				t.Error("Identifier must not appear among document fields")
			}
			if f.ServerTime {
				t.Error("Full replaces must not carry server-time directives")
			}
		}
	})

	t.Run("Never Reassigns Identity Or Creation Time", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
		a := &Article{Title: "old"}
		a.SetID("keep-me")
		a.SetCreatedOn(created)

		if _, err := p.Save(ctx, a); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if a.GetID() != "keep-me" {
			t.Errorf("Expected ID to survive resave, got %q", a.GetID())
		}
		if !a.GetCreatedOn().Equal(created) {
			t.Errorf("Expected CreatedOn to survive resave, got %v", a.GetCreatedOn())
		}
		if !a.GetModifiedOn().After(created) {
			t.Error("Expected ModifiedOn to advance on resave")
		}
	})

	t.Run("Forwards Store Errors", func(t *testing.T) {
		boom := &core.StoreError{Op: "replace", Collection: "article", Err: errors.New("socket closed")}
		store := &mockStore{failWith: boom}
		p := newTestPlanner(t, store)

		_, err := p.Save(ctx, &Article{Title: "x"})
		var se *core.StoreError
		if !errors.As(err, &se) {
			t.Fatalf("Expected StoreError, got %v", err)
		}
		if se.Op != "replace" {
			t.Errorf("Expected op 'replace', got %q", se.Op)
		}
	})
}

func TestPlanner_SaveMany(t *testing.T) {
	ctx := context.Background()

	t.Run("Batches Into One Unordered Bulk", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		batch := []core.Entity{
			&Article{Title: "one"},
			&Article{Title: "two"},
			&Article{Title: "three"},
		}
		res, err := p.SaveMany(ctx, batch...)
		if err != nil {
			t.Fatalf("SaveMany failed: %v", err)
		}
		if res.Upserted != 3 {
			t.Errorf("Expected 3 upserts, got %d", res.Upserted)
		}
		if store.bulkCalls != 1 {
			t.Fatalf("Expected a single bulk call, got %d", store.bulkCalls)
		}
		if len(store.lastDocs) != 3 {
			t.Fatalf("Expected 3 documents, got %d", len(store.lastDocs))
		}

		ids := map[string]bool{}
		for _, e := range batch {
			id := e.GetID()
			if id == "" {
				t.Error("Expected every element to get an identity")
			}
			if ids[id] {
				t.Errorf("Duplicate generated ID %q", id)
			}
			ids[id] = true
		}
	})

	t.Run("Empty Input Is A No-Op", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		res, err := p.SaveMany(ctx)
		if err != nil {
			t.Fatalf("SaveMany failed: %v", err)
		}
		if res.Upserted != 0 || len(res.Errors) != 0 {
			t.Errorf("Expected zero-valued result, got %+v", res)
		}
		if store.bulkCalls != 0 {
			t.Error("Expected no store round-trip for empty input")
		}
	})

	t.Run("Rejects Mixed Collections", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		_, err := p.SaveMany(ctx, &Article{Title: "a"}, &Invoice{Total: 10})
		if err == nil {
			t.Fatal("Expected error for mixed-collection batch")
		}
		if store.bulkCalls != 0 {
			t.Error("Expected no store call after batch validation failure")
		}
	})

	t.Run("Passes Per-Element Failures Through", func(t *testing.T) {
		store := &mockStore{
			bulkResult: &core.BulkResult{
				Upserted: 1,
				Errors: []core.ItemError{
					{Index: 1, ID: "dup-id", Err: errors.New("duplicate key")},
				},
			},
		}
		p := newTestPlanner(t, store)

		res, err := p.SaveMany(ctx, &Article{Title: "ok"}, &Article{Title: "dup"})
		if err != nil {
			t.Fatalf("SaveMany failed: %v", err)
		}
		if len(res.Errors) != 1 {
			t.Fatalf("Expected one element failure, got %d", len(res.Errors))
		}
		if res.Errors[0].Index != 1 {
			t.Errorf("Expected failure at index 1, got %d", res.Errors[0].Index)
		}
	})
}

func TestPlanner_SavePreserving(t *testing.T) {
	ctx := context.Background()

	t.Run("Requires A Saved Entity", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		_, err := p.SavePreserving(ctx, &Article{Title: "no id"}, core.Preserve("Title"))
		if !errors.Is(err, core.ErrUnsaved) {
			t.Fatalf("Expected ErrUnsaved, got %v", err)
		}
		if store.updateCalls != 0 {
			t.Error("Expected no write for an unsaved entity")
		}
	})

	t.Run("Propagates Selector Failures Unchanged", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		a := &Article{Title: "x"}
		a.SetID("a1")
		_, err := p.SavePreserving(ctx, a, core.Preserve())
		if !errors.Is(err, core.ErrEmptyProjection) {
			t.Fatalf("Expected ErrEmptyProjection, got %v", err)
		}
		if store.updateCalls != 0 {
			t.Error("Expected no write after selector failure")
		}
	})

	t.Run("Issues A Field-Scoped Update", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		a := &Article{Title: "keep", Body: "new body", Views: 3}
		a.SetID("a1")

		res, err := p.SavePreserving(ctx, a, core.Preserve("Title"))
		if err != nil {
			t.Fatalf("SavePreserving failed: %v", err)
		}
		if res.Matched != 1 {
			t.Errorf("Expected matched=1, got %d", res.Matched)
		}
		if store.updateCalls != 1 {
			t.Fatalf("Expected one update call, got %d", store.updateCalls)
		}
		if store.lastID != "a1" {
			t.Errorf("Expected update keyed by 'a1', got %q", store.lastID)
		}

		last := store.lastFields[len(store.lastFields)-1]
		if last.Name != "modified_on" || !last.ServerTime {
			t.Errorf("Expected trailing server-time stamp, got %+v", last)
		}
		for _, f := range store.lastFields {
			if f.Name == "title" {
				t.Error("Preserved field leaked into the update")
			}
		}
	})

	t.Run("Leaves The In-Memory Stamp Alone", func(t *testing.T) {
		store := &mockStore{}
		p := newTestPlanner(t, store)

		a := &Article{Title: "keep", Body: "body"}
		a.SetID("a1")

		if _, err := p.SavePreserving(ctx, a, core.Preserve("Title")); err != nil {
			t.Fatalf("SavePreserving failed: %v", err)
		}
		if !a.GetModifiedOn().IsZero() {
			t.Error("Partial saves must not touch the in-memory ModifiedOn; the store owns it")
		}
	})
}

func TestNewPlanner_Validation(t *testing.T) {
	if _, err := core.NewPlanner(core.PlannerConfig{Registry: core.NewRegistry(nil)}); err == nil {
		t.Error("Expected error for missing store")
	}
	if _, err := core.NewPlanner(core.PlannerConfig{Store: &mockStore{}}); err == nil {
		t.Error("Expected error for missing registry")
	}
}
