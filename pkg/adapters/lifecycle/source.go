// Package lifecycle bridges store change events into the lifecycle
// orchestration library, so reactive applications can supervise a watch
// stream like any other event source.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/silt/pkg/core"
)

type storeSource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
}

// NewSource wraps a store watch channel as a lifecycle.Source. core.Event
// satisfies lifecycle.Event through its String method.
func NewSource(events <-chan core.Event) lifecycle.Source {
	return &storeSource{
		events: events,
		out:    make(chan lifecycle.Event, 16),
	}
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *storeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, s.pump)
	return nil
}

// pump copies events until the upstream channel closes or ctx ends.
func (s *storeSource) pump(ctx context.Context) error {
	defer close(s.out)
	for {
		var e core.Event
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case e, ok = <-s.events:
			if !ok {
				return nil
			}
		}
		select {
		case s.out <- e:
		case <-ctx.Done():
			return nil
		}
	}
}

var _ lifecycle.Source = (*storeSource)(nil)
