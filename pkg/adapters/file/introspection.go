package file

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string         `json:"path"`
	SystemDir     string         `json:"system_dir"`
	Documents     int            `json:"documents"`
	Collections   map[string]int `json:"collections,omitempty"`
	Concurrency   int            `json:"concurrency"`
	WatcherActive bool           `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:          s.Path,
		SystemDir:     s.config.SystemDir,
		Documents:     s.index.Len(),
		Collections:   s.index.Collections(),
		Concurrency:   s.config.Concurrency,
		WatcherActive: s.watcherActive,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "file-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}
