package core

import "time"

// Entity is the minimal contract a persistable type must satisfy.
// Identity is a plain string so adapters stay agnostic to ID generation
// strategy (the planner defaults to UUIDs).
type Entity interface {
	GetID() string
	SetID(id string)
}

// Creatable marks types that carry a creation timestamp. The planner sets
// it exactly once, when an identity is first assigned.
type Creatable interface {
	GetCreatedOn() time.Time
	SetCreatedOn(t time.Time)
}

// Modifiable marks types that carry a modification timestamp. Full saves
// touch it with the planner's clock; partial saves delegate to the store's
// server time instead.
type Modifiable interface {
	GetModifiedOn() time.Time
	SetModifiedOn(t time.Time)
}

// CollectionNamer lets a type override the collection it persists into.
// Without it, the lowercased Go type name is used.
type CollectionNamer interface {
	CollectionName() string
}

// Meta is the embeddable identity base. Embedding it satisfies Entity and
// maps the identifier to the canonical "_id" storage name.
type Meta struct {
	ID string `bson:"_id,omitempty"`
}

// GetID implements Entity.
func (m *Meta) GetID() string { return m.ID }

// SetID implements Entity.
func (m *Meta) SetID(id string) { m.ID = id }

// Stamps is the embeddable timestamp base. Embedding it (inline) opts the
// type into creation and modification stamping.
type Stamps struct {
	CreatedOn  time.Time `bson:"created_on,omitempty"`
	ModifiedOn time.Time `bson:"modified_on,omitempty"`
}

// GetCreatedOn implements Creatable.
func (s *Stamps) GetCreatedOn() time.Time { return s.CreatedOn }

// SetCreatedOn implements Creatable.
func (s *Stamps) SetCreatedOn(t time.Time) { s.CreatedOn = t }

// GetModifiedOn implements Modifiable.
func (s *Stamps) GetModifiedOn() time.Time { return s.ModifiedOn }

// SetModifiedOn implements Modifiable.
func (s *Stamps) SetModifiedOn(t time.Time) { s.ModifiedOn = t }
