// Package typed provides a generic, type-safe view over a write planner and
// its store. It adds document hydration on top of the core write paths: raw
// field maps round-trip through the bson codec back into the entity type.
package typed

import (
	"context"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/silt/pkg/core"
)

// Collection binds an entity type to its collection. T is the pointer form
// of the entity struct (e.g. *Book).
type Collection[T core.Entity] struct {
	planner *core.Planner
	name    string
	typ     reflect.Type
}

// NewCollection resolves T's metadata through the planner's registry and
// returns a typed handle for its collection.
func NewCollection[T core.Entity](planner *core.Planner) (*Collection[T], error) {
	if planner == nil {
		return nil, fmt.Errorf("typed collection requires a planner")
	}

	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	md, err := planner.Registry().LookupType(t)
	if err != nil {
		return nil, err
	}

	return &Collection[T]{
		planner: planner,
		name:    md.Collection,
		typ:     t,
	}, nil
}

// Name returns the resolved collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Save persists the full entity.
func (c *Collection[T]) Save(ctx context.Context, entity T) (core.WriteResult, error) {
	return c.planner.Save(ctx, entity)
}

// SaveMany persists a batch of entities in one unordered bulk write.
func (c *Collection[T]) SaveMany(ctx context.Context, entities ...T) (core.BulkResult, error) {
	batch := make([]core.Entity, len(entities))
	for i, e := range entities {
		batch[i] = e
	}
	return c.planner.SaveMany(ctx, batch...)
}

// SavePreserving persists the entity's update set while leaving preserved
// fields untouched in the store.
func (c *Collection[T]) SavePreserving(ctx context.Context, entity T, policy core.Policy) (core.WriteResult, error) {
	return c.planner.SavePreserving(ctx, entity, policy)
}

// Get hydrates the entity with the given ID. The planner's store must
// implement core.Finder.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	finder, ok := c.planner.Store().(core.Finder)
	if !ok {
		return zero, fmt.Errorf("%w: store cannot read documents back", core.ErrNotSupported)
	}

	m, err := finder.Find(ctx, c.name, id)
	if err != nil {
		return zero, err
	}
	return c.hydrate(m)
}

// List hydrates every entity in the collection. The planner's store must
// implement core.Finder and core.Lister.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	lister, ok := c.planner.Store().(core.Lister)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot enumerate documents", core.ErrNotSupported)
	}

	ids, err := lister.List(ctx, c.name)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, err := c.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate document %s: %w", id, err)
		}
		out = append(out, entity)
	}
	return out, nil
}

// Watch streams change events scoped to this collection. The planner's
// store must implement core.Watcher.
func (c *Collection[T]) Watch(ctx context.Context) (<-chan core.Event, error) {
	watcher, ok := c.planner.Store().(core.Watcher)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot watch for changes", core.ErrNotSupported)
	}
	return watcher.Watch(ctx, c.name)
}

// hydrate converts a raw field map into T via the bson codec, the same
// naming rules writes flow through.
func (c *Collection[T]) hydrate(m map[string]any) (T, error) {
	var zero T

	data, err := bson.Marshal(m)
	if err != nil {
		return zero, fmt.Errorf("failed to encode document: %w", err)
	}

	entity := reflect.New(c.typ)
	if err := bson.Unmarshal(data, entity.Interface()); err != nil {
		return zero, fmt.Errorf("failed to decode document into %s: %w", c.typ, err)
	}

	out, ok := entity.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("type %s is not assignable to the collection's entity type", entity.Type())
	}
	return out, nil
}
