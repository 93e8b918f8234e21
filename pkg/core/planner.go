package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PlannerConfig holds the dependencies for a Planner. Store and Registry
// are required; the rest default sensibly.
type PlannerConfig struct {
	Store    Store
	Registry *Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Clock supplies the planner's notion of now, defaulting to time.Now.
	// Partial saves never use it for the stored stamp; the store's server
	// time governs there.
	Clock func() time.Time

	// NewID generates identifiers for entities saved without one,
	// defaulting to random UUIDs.
	NewID func() string
}

// Planner turns entities into store write operations. It assigns identity
// and timestamps, flattens documents through the metadata registry, and
// issues replace-upserts, unordered bulk upserts and field-scoped updates.
//
// A Planner is safe for concurrent use. It imposes no ordering across
// concurrent saves; the store's own concurrency control governs conflicting
// writes to the same identity.
type Planner struct {
	store    Store
	registry *Registry
	logger   *slog.Logger
	clock    func() time.Time
	newID    func() string
}

// NewPlanner creates a Planner from cfg.
func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	if cfg.Store == nil {
		return nil, errors.New("planner requires a store")
	}
	if cfg.Registry == nil {
		return nil, errors.New("planner requires a registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Planner{
		store:    cfg.Store,
		registry: cfg.Registry,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		newID:    cfg.NewID,
	}, nil
}

// Store exposes the underlying store, mainly so callers can discover
// optional capabilities (Finder, Lister, Watcher) by type assertion.
func (p *Planner) Store() Store {
	return p.store
}

// Registry exposes the metadata registry.
func (p *Planner) Registry() *Registry {
	return p.registry
}

// Save persists the entity as a full replace-upsert keyed by its ID.
// An entity without an ID gets one assigned, along with its creation
// timestamp; the modification timestamp is touched on every call.
func (p *Planner) Save(ctx context.Context, e Entity) (WriteResult, error) {
	md, doc, err := p.prepare(e)
	if err != nil {
		return WriteResult{}, err
	}

	res, err := p.store.ReplaceUpsert(ctx, md.Collection, doc)
	if err != nil {
		return WriteResult{}, err
	}
	p.logger.Debug("saved",
		"collection", md.Collection,
		"id", doc.ID,
		"upserted", res.Upserted)
	return res, nil
}

// SaveMany persists all entities in a single unordered bulk upsert. Each
// element gets the same identity and timestamp treatment as Save. Empty
// input is a successful no-op with no store round-trip. Per-element
// failures surface in the result's Errors, indexed by input position.
func (p *Planner) SaveMany(ctx context.Context, entities ...Entity) (BulkResult, error) {
	if len(entities) == 0 {
		return BulkResult{}, nil
	}

	collection := ""
	docs := make([]Document, 0, len(entities))
	for i, e := range entities {
		md, doc, err := p.prepare(e)
		if err != nil {
			return BulkResult{}, fmt.Errorf("entity %d: %w", i, err)
		}
		if collection == "" {
			collection = md.Collection
		} else if md.Collection != collection {
			return BulkResult{}, fmt.Errorf("entity %d: collection %q differs from batch collection %q", i, md.Collection, collection)
		}
		docs = append(docs, doc)
	}

	res, err := p.store.BulkUpsert(ctx, collection, docs)
	if err != nil {
		return res, err
	}
	p.logger.Debug("saved batch",
		"collection", collection,
		"count", len(docs),
		"failed", len(res.Errors))
	return res, nil
}

// SavePreserving updates only the fields the policy selects, leaving the
// rest untouched in the store. It requires a previously assigned identity
// and never creates a document. Selector failures propagate unchanged; the
// in-memory entity is not mutated (the store stamps the modification time
// with its own clock).
func (p *Planner) SavePreserving(ctx context.Context, e Entity, policy Policy) (WriteResult, error) {
	id := e.GetID()
	if id == "" {
		return WriteResult{}, fmt.Errorf("%w: partial save requires a saved entity", ErrUnsaved)
	}

	md, err := p.registry.Lookup(e)
	if err != nil {
		return WriteResult{}, err
	}

	fields, err := SelectUpdateFields(md, e, policy)
	if err != nil {
		return WriteResult{}, err
	}

	res, err := p.store.UpdateFields(ctx, md.Collection, id, fields)
	if err != nil {
		return WriteResult{}, err
	}
	p.logger.Debug("saved partial",
		"collection", md.Collection,
		"id", id,
		"policy", policy.String(),
		"fields", len(fields),
		"matched", res.Matched)
	return res, nil
}

// prepare runs the pre-write pipeline shared by Save and SaveMany:
// metadata lookup, identity assignment, timestamp touch, flatten.
func (p *Planner) prepare(e Entity) (*TypeMetadata, Document, error) {
	md, err := p.registry.Lookup(e)
	if err != nil {
		return nil, Document{}, err
	}

	p.assignIdentity(e, md)
	if m, ok := e.(Modifiable); ok {
		m.SetModifiedOn(p.clock().UTC())
	}

	doc, err := Flatten(md, e)
	if err != nil {
		return nil, Document{}, err
	}
	return md, doc, nil
}

// assignIdentity gives the entity an ID if it has none, setting the
// creation timestamp alongside. Existing identity and creation time are
// never overwritten.
func (p *Planner) assignIdentity(e Entity, md *TypeMetadata) {
	if e.GetID() != "" {
		return
	}
	e.SetID(p.newID())
	if !md.HasCreatedOn {
		return
	}
	if c, ok := e.(Creatable); ok && c.GetCreatedOn().IsZero() {
		c.SetCreatedOn(p.clock().UTC())
	}
}
