package core

import (
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Registry caches one TypeMetadata per entity type. Lookups are safe for
// concurrent use; two goroutines racing the first lookup of a type may both
// compute the table, but exactly one result is kept and returned to both.
//
// A Registry is an injected dependency, not a package global. Callers that
// want process-wide sharing construct one and pass it around.
type Registry struct {
	logger *slog.Logger
	types  sync.Map // reflect.Type -> *TypeMetadata
}

// NewRegistry creates an empty metadata registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Lookup returns the metadata for the entity's type, computing it on first
// use. The value may be the entity itself or any instance of the type;
// pointers are dereferenced.
func (r *Registry) Lookup(v any) (*TypeMetadata, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil value", ErrNotStruct)
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return r.LookupType(t)
}

// LookupType is Lookup for a reflect.Type already in hand.
func (r *Registry) LookupType(t reflect.Type) (*TypeMetadata, error) {
	if cached, ok := r.types.Load(t); ok {
		return cached.(*TypeMetadata), nil
	}

	md, err := buildTypeMetadata(t)
	if err != nil {
		return nil, err
	}

	actual, loaded := r.types.LoadOrStore(t, md)
	if !loaded {
		r.logger.Debug("type registered",
			"type", t.String(),
			"collection", md.Collection,
			"fields", len(md.Fields),
			"has_modified_on", md.HasModifiedOn)
	}
	return actual.(*TypeMetadata), nil
}

// Len reports how many types have been registered.
func (r *Registry) Len() int {
	n := 0
	r.types.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
