package silt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/silt/internal/platform"
	"github.com/aretw0/silt/pkg/core"
)

// --- Types ---

// Entity is the contract every persisted type satisfies.
type Entity = core.Entity

// Meta is the embeddable identity base for entity structs.
type Meta = core.Meta

// Stamps is the embeddable creation/modification timestamp base.
type Stamps = core.Stamps

// Policy selects which fields a partial save preserves.
type Policy = core.Policy

// WriteResult is the outcome of a single write.
type WriteResult = core.WriteResult

// BulkResult is the aggregate outcome of a bulk write.
type BulkResult = core.BulkResult

// Event describes one observed change in a watched collection.
type Event = core.Event

// EventType classifies a change event.
type EventType = core.EventType

// Event types.
const (
	EventPut    = core.EventPut
	EventDelete = core.EventDelete
)

// MemoryTarget opens the in-memory adapter.
const MemoryTarget = platform.MemoryTarget

// Sentinel errors.
var (
	ErrUnsaved      = core.ErrUnsaved
	ErrNotFound     = core.ErrNotFound
	ErrNotSupported = core.ErrNotSupported
)

// PreserveTagged preserves the fields the entity type marks with its
// silt struct tags.
func PreserveTagged() Policy {
	return core.PreserveTagged()
}

// Preserve preserves exactly the named fields.
func Preserve(fields ...string) Policy {
	return core.Preserve(fields...)
}

// --- Configuration ---

// Option defines a functional option for configuring an engine.
type Option = platform.Option

// WithLogger sets the logger for the engine and its store.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom store adapter.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithAdapter forces a storage adapter by name ("file", "memory", "mongo").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithDatabase sets the database name for the mongo adapter.
func WithDatabase(name string) Option {
	return platform.WithDatabase(name)
}

// WithAutoInit controls whether a missing file store directory is created.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist requires the file store directory to already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithSystemDir overrides the file adapter's bookkeeping directory name.
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithIDGenerator replaces the engine's identifier generator.
func WithIDGenerator(fn func() string) Option {
	return platform.WithIDGenerator(fn)
}

// WithClock replaces the engine's clock.
func WithClock(fn func() time.Time) Option {
	return platform.WithClock(fn)
}

// WithConcurrency bounds the file adapter's parallel bulk writes.
func WithConcurrency(n int) Option {
	return platform.WithConcurrency(n)
}

// WithWatchDebounce sets the file watcher's settle window.
func WithWatchDebounce(d time.Duration) Option {
	return platform.WithWatchDebounce(d)
}

// WithWatchBuffer sizes the file watcher's event channel.
func WithWatchBuffer(n int) Option {
	return platform.WithWatchBuffer(n)
}

// WithIgnorePatterns excludes paths matching the given doublestar globs
// from listing and watching on the file adapter.
func WithIgnorePatterns(patterns ...string) Option {
	return platform.WithIgnorePatterns(patterns...)
}

// WithWatcherErrorHandler registers a callback for watch loop errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Engine ---

// Engine couples a write planner with its resolved store. It is the main
// entry point of the library.
type Engine struct {
	planner *core.Planner
}

// Open resolves the target into a store, initializes it and wires the
// engine. Targets: a directory path (file adapter), a mongodb:// or
// mongodb+srv:// connection string (mongo adapter, requires WithDatabase),
// or MemoryTarget.
func Open(ctx context.Context, target string, opts ...Option) (*Engine, error) {
	planner, err := platform.New(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	return &Engine{planner: planner}, nil
}

// Save persists the full entity, assigning identity and stamps as needed.
func (e *Engine) Save(ctx context.Context, entity Entity) (WriteResult, error) {
	return e.planner.Save(ctx, entity)
}

// SaveMany persists a batch of same-collection entities in one unordered
// bulk write with per-element outcomes.
func (e *Engine) SaveMany(ctx context.Context, entities ...Entity) (BulkResult, error) {
	return e.planner.SaveMany(ctx, entities...)
}

// SavePreserving writes only the entity's non-preserved fields, leaving the
// preserved ones untouched in the store.
func (e *Engine) SavePreserving(ctx context.Context, entity Entity, policy Policy) (WriteResult, error) {
	return e.planner.SavePreserving(ctx, entity, policy)
}

// Find retrieves a raw document by collection and ID. The store must
// support reads.
func (e *Engine) Find(ctx context.Context, collection, id string) (map[string]any, error) {
	finder, ok := e.planner.Store().(core.Finder)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot read documents back", core.ErrNotSupported)
	}
	return finder.Find(ctx, collection, id)
}

// List enumerates the document IDs of a collection. The store must support
// listing.
func (e *Engine) List(ctx context.Context, collection string) ([]string, error) {
	lister, ok := e.planner.Store().(core.Lister)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot enumerate documents", core.ErrNotSupported)
	}
	return lister.List(ctx, collection)
}

// Watch streams change events for a collection until ctx is cancelled. The
// store must support watching.
func (e *Engine) Watch(ctx context.Context, collection string) (<-chan Event, error) {
	watcher, ok := e.planner.Store().(core.Watcher)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot watch for changes", core.ErrNotSupported)
	}
	return watcher.Watch(ctx, collection)
}

// Close releases store resources, if the store holds any.
func (e *Engine) Close(ctx context.Context) error {
	if closer, ok := e.planner.Store().(core.Closer); ok {
		return closer.Close(ctx)
	}
	return nil
}

// Planner exposes the underlying write planner for advanced composition.
func (e *Engine) Planner() *core.Planner {
	return e.planner
}

// Store exposes the resolved store adapter.
func (e *Engine) Store() core.Store {
	return e.planner.Store()
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	return e.planner.State()
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var (
	_ introspection.Introspectable = (*Engine)(nil)
	_ introspection.Component      = (*Engine)(nil)
)

// --- Utils ---

// FindStoreRoot looks upwards from startDir for a file store root.
func FindStoreRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
