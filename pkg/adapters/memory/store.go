// Package memory provides an in-memory document store. It implements every
// store capability and is the default backend for tests and examples.
package memory

import (
	"context"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

// Store implements core.Store (and all optional capabilities) over nested
// maps. Safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any

	subMu sync.Mutex
	subs  map[string][]chan core.Event

	logger *slog.Logger
	clock  func() time.Time
}

// Config holds the configuration for the memory store.
type Config struct {
	Logger *slog.Logger

	// Clock resolves server-time directives, defaulting to time.Now.
	Clock func() time.Time
}

// NewStore creates an empty memory store.
func NewStore(config Config) *Store {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[string][]chan core.Event),
		logger:      config.Logger,
		clock:       config.Clock,
	}
}

// ReplaceUpsert implements core.Store.
func (s *Store) ReplaceUpsert(ctx context.Context, collection string, doc core.Document) (core.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}

	s.mu.Lock()
	res := s.replaceLocked(collection, doc)
	s.mu.Unlock()

	s.notify(core.Event{Type: core.EventPut, Collection: collection, ID: doc.ID})
	return res, nil
}

// BulkUpsert implements core.Store. Memory writes cannot partially fail, so
// the per-element error list is always empty.
func (s *Store) BulkUpsert(ctx context.Context, collection string, docs []core.Document) (core.BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return core.BulkResult{}, &core.StoreError{Op: "bulk", Collection: collection, Err: err}
	}

	var res core.BulkResult
	s.mu.Lock()
	for _, doc := range docs {
		one := s.replaceLocked(collection, doc)
		res.Matched += one.Matched
		res.Modified += one.Modified
		res.Upserted += one.Upserted
	}
	s.mu.Unlock()

	for _, doc := range docs {
		s.notify(core.Event{Type: core.EventPut, Collection: collection, ID: doc.ID})
	}
	return res, nil
}

// UpdateFields implements core.Store.
func (s *Store) UpdateFields(ctx context.Context, collection string, id string, fields []core.FieldUpdate) (core.WriteResult, error) {
	if err := ctx.Err(); err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}

	s.mu.Lock()
	docs, ok := s.collections[collection]
	if !ok {
		s.mu.Unlock()
		return core.WriteResult{}, nil
	}
	doc, ok := docs[id]
	if !ok {
		s.mu.Unlock()
		return core.WriteResult{}, nil
	}
	for _, f := range fields {
		if f.ServerTime {
			doc[f.Name] = s.clock().UTC()
			continue
		}
		doc[f.Name] = f.Value
	}
	s.mu.Unlock()

	s.notify(core.Event{Type: core.EventPut, Collection: collection, ID: id})
	return core.WriteResult{Matched: 1, Modified: 1}, nil
}

// Find implements core.Finder.
func (s *Store) Find(ctx context.Context, collection string, id string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return maps.Clone(doc), nil
}

// List implements core.Lister. IDs come back sorted for determinism.
func (s *Store) List(ctx context.Context, collection string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "list", Collection: collection, Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Watch implements core.Watcher. An empty collection observes the whole
// store. The channel closes when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, collection string) (<-chan core.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.StoreError{Op: "watch", Collection: collection, Err: err}
	}

	ch := make(chan core.Event, 16)

	s.subMu.Lock()
	s.subs[collection] = append(s.subs[collection], ch)
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		live := s.subs[collection][:0]
		for _, sub := range s.subs[collection] {
			if sub != ch {
				live = append(live, sub)
			}
		}
		s.subs[collection] = live
		s.subMu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// replaceLocked stores the document; the caller holds the write lock.
func (s *Store) replaceLocked(collection string, doc core.Document) core.WriteResult {
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]any)
		s.collections[collection] = docs
	}

	stored := make(map[string]any, len(doc.Fields)+1)
	stored["_id"] = doc.ID
	for _, f := range doc.Fields {
		stored[f.Name] = f.Value
	}

	_, existed := docs[doc.ID]
	docs[doc.ID] = stored

	if existed {
		return core.WriteResult{Matched: 1, Modified: 1}
	}
	return core.WriteResult{Upserted: 1}
}

// notify fans an event out to collection subscribers and to whole-store
// subscribers, without blocking on slow consumers.
func (s *Store) notify(ev core.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[ev.Collection] {
		select {
		case ch <- ev:
		default:
		}
	}
	if ev.Collection == "" {
		return
	}
	for _, ch := range s.subs[""] {
		select {
		case ch <- ev:
		default:
		}
	}
}

var (
	_ core.Store   = (*Store)(nil)
	_ core.Finder  = (*Store)(nil)
	_ core.Lister  = (*Store)(nil)
	_ core.Watcher = (*Store)(nil)
)
