package silt

import (
	"context"

	"github.com/aretw0/silt/pkg/typed"
)

// Collection is a public alias for the generic typed collection.
type Collection[T Entity] = typed.Collection[T]

// NewCollection binds T to its collection on an already-open engine.
func NewCollection[T Entity](engine *Engine) (*Collection[T], error) {
	return typed.NewCollection[T](engine.Planner())
}

// OpenCollection opens an engine for the target and binds T in one step.
func OpenCollection[T Entity](ctx context.Context, target string, opts ...Option) (*Collection[T], error) {
	engine, err := Open(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	return NewCollection[T](engine)
}
