package memory

import "github.com/aretw0/introspection"

// StoreState exposes internal state for observability.
type StoreState struct {
	Collections int `json:"collections"`
	Documents   int `json:"documents"`
	Watchers    int `json:"watchers"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	docs := 0
	for _, c := range s.collections {
		docs += len(c)
	}
	collections := len(s.collections)
	s.mu.RUnlock()

	s.subMu.Lock()
	watchers := 0
	for _, subs := range s.subs {
		watchers += len(subs)
	}
	s.subMu.Unlock()

	return StoreState{
		Collections: collections,
		Documents:   docs,
		Watchers:    watchers,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
