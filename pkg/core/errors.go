package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrUnsaved is returned when a partial save targets an entity that has
	// never been assigned an identifier.
	ErrUnsaved = errors.New("entity has no identifier")

	// ErrNotFound is returned by Finder-capable stores when no document
	// matches the requested identifier.
	ErrNotFound = errors.New("document not found")

	// ErrNotSupported is returned when an optional store capability
	// (Finder, Lister, Watcher, ...) is requested but not implemented.
	ErrNotSupported = errors.New("capability not supported by store")

	// ErrPolicyConflict is returned when a type tags some fields as
	// preserved and others as overwritten; the two attribute families are
	// mutually exclusive.
	ErrPolicyConflict = errors.New("conflicting preservation tags")

	// ErrEmptyPreservation is returned when policy resolution yields no
	// preserved fields: nothing distinguishes the partial save from a full
	// replace, which is almost always a caller mistake.
	ErrEmptyPreservation = errors.New("policy preserves no fields")

	// ErrEmptyProjection is returned when an explicit projection names no
	// fields at all.
	ErrEmptyProjection = errors.New("projection names no fields")

	// ErrNestedProjection is returned when a projection references a path
	// inside a nested document. Only root-level fields can be preserved.
	ErrNestedProjection = errors.New("projection references a nested path")

	// ErrUnknownField is returned when a projection names a field the type
	// does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrEmptyUpdate is returned when field selection leaves nothing to
	// write.
	ErrEmptyUpdate = errors.New("no fields selected for update")

	// ErrNotStruct is returned when metadata is requested for something
	// other than a struct (or pointer to struct).
	ErrNotStruct = errors.New("entity type is not a struct")
)

// StoreError wraps a failure reported by a store adapter. Adapters wrap
// exactly once, at the boundary; the planner forwards these untouched so
// callers can unwrap the driver error underneath.
type StoreError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
