package core

import (
	"sort"

	"github.com/aretw0/introspection"
)

// RegistryState exposes internal state for observability.
type RegistryState struct {
	Types       int               `json:"types"`
	Collections map[string]string `json:"collections"`
}

// State implements introspection.Introspectable.
func (r *Registry) State() any {
	collections := make(map[string]string)
	r.types.Range(func(_, v any) bool {
		md := v.(*TypeMetadata)
		collections[md.Type.String()] = md.Collection
		return true
	})
	return RegistryState{
		Types:       len(collections),
		Collections: collections,
	}
}

// ComponentType implements introspection.Component.
func (r *Registry) ComponentType() string {
	return "metadata-registry"
}

// PlannerState exposes internal state for observability.
type PlannerState struct {
	StoreType string   `json:"store_type"`
	Types     []string `json:"types"`
}

// State implements introspection.Introspectable.
func (p *Planner) State() any {
	storeType := "store"
	if comp, ok := p.store.(introspection.Component); ok {
		storeType = comp.ComponentType()
	}

	var types []string
	p.registry.types.Range(func(_, v any) bool {
		types = append(types, v.(*TypeMetadata).Type.String())
		return true
	})
	sort.Strings(types)

	return PlannerState{
		StoreType: storeType,
		Types:     types,
	}
}

// ComponentType implements introspection.Component.
func (p *Planner) ComponentType() string {
	return "write-planner"
}

var _ introspection.Introspectable = (*Registry)(nil)
var _ introspection.Component = (*Registry)(nil)
var _ introspection.Introspectable = (*Planner)(nil)
var _ introspection.Component = (*Planner)(nil)
