package mongo

import "github.com/aretw0/introspection"

// StoreState exposes internal state for observability.
type StoreState struct {
	Database    string `json:"database"`
	OwnedClient bool   `json:"owned_client"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return StoreState{
		Database:    s.db.Name(),
		OwnedClient: s.client != nil,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "mongo-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
