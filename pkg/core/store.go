package core

import (
	"context"
	"fmt"
)

// Store defines the write capabilities the planner requires from a
// document store. Adhering to this interface keeps the core independent of
// the underlying driver (MongoDB, filesystem, memory, ...).
//
// Session or transaction handles travel inside ctx (the MongoDB driver's
// session-context idiom); implementations that support them pick them up
// there. The planner forwards ctx verbatim and never inspects it.
type Store interface {
	// ReplaceUpsert stores the full document keyed by its ID, replacing an
	// existing document or inserting a new one.
	ReplaceUpsert(ctx context.Context, collection string, doc Document) (WriteResult, error)

	// BulkUpsert stores every document as an independent replace-upsert in
	// one unordered batch: one element's failure does not prevent the
	// others from being attempted. Per-element failures are reported in
	// the result, not as the error.
	BulkUpsert(ctx context.Context, collection string, docs []Document) (BulkResult, error)

	// UpdateFields sets exactly the given fields on the document with the
	// given ID, leaving all others untouched. ServerTime entries are
	// stamped with the store's current time. A missing document yields
	// Matched == 0 and no error.
	UpdateFields(ctx context.Context, collection string, id string, fields []FieldUpdate) (WriteResult, error)
}

// WriteResult is the outcome of a single write.
type WriteResult struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// BulkResult is the aggregate outcome of an unordered bulk write.
type BulkResult struct {
	Matched  int64
	Modified int64
	Upserted int64
	Errors   []ItemError
}

// ItemError is one element's failure within a bulk write, addressed by its
// input index.
type ItemError struct {
	Index int
	ID    string
	Err   error
}

func (e ItemError) Error() string {
	return e.Err.Error()
}

func (e ItemError) Unwrap() error {
	return e.Err
}

// Finder is an optional capability for stores that can read documents back.
type Finder interface {
	// Find retrieves a document by ID as a raw field map.
	// Returns ErrNotFound if no document matches.
	Find(ctx context.Context, collection string, id string) (map[string]any, error)
}

// Lister is an optional capability for stores that can enumerate documents.
type Lister interface {
	// List returns the IDs of all documents in the collection.
	List(ctx context.Context, collection string) ([]string, error)
}

// EventType classifies a store change notification.
type EventType string

// Event types.
const (
	EventPut    EventType = "put"
	EventDelete EventType = "delete"
)

// Event describes one observed change in a watched collection.
type Event struct {
	Type       EventType
	Collection string
	ID         string
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Collection, e.ID)
}

// Watcher is an optional capability for stores that can emit change events.
type Watcher interface {
	// Watch streams changes for a collection until ctx is cancelled. The
	// returned channel is closed when watching stops.
	Watch(ctx context.Context, collection string) (<-chan Event, error)
}

// Initializer is an optional capability for stores that must provision
// backing resources before first use (directories, manifests, indexes).
type Initializer interface {
	Init(ctx context.Context) error
}

// Closer is an optional capability for stores holding releasable resources.
type Closer interface {
	Close(ctx context.Context) error
}
