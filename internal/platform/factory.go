package platform

import (
	"context"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

// New builds a fully wired planner for the target: the store is resolved
// and initialized, then bound to a fresh metadata registry. The target is
// adapter-specific (directory path, mongodb connection string, or
// MemoryTarget).
func New(ctx context.Context, target string, opts ...Option) (*core.Planner, error) {
	store, err := Init(ctx, target, opts...)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	newID, _ := o.config["id_generator"].(func() string)
	clock, _ := o.config["clock"].(func() time.Time)

	return core.NewPlanner(core.PlannerConfig{
		Store:    store,
		Registry: core.NewRegistry(o.logger),
		Logger:   o.logger,
		Clock:    clock,
		NewID:    newID,
	})
}
