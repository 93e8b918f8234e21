// Package mongo implements the silt store contract on MongoDB using the
// official driver. Replace-upserts map to ReplaceOne with upsert, bulk saves
// to an unordered BulkWrite of replace models, and field-scoped updates to
// UpdateOne with $set plus $currentDate for server-time directives.
//
// Sessions and transactions are honored transparently: a ctx carrying a
// driver session scopes every call here to it.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/aretw0/silt/pkg/core"
)

// Store implements core.Store on a MongoDB database.
type Store struct {
	db     *mongo.Database
	client *mongo.Client // owned only when constructed from a URI
	logger *slog.Logger
}

// Config holds the configuration for the MongoDB store. Provide either an
// existing Database handle or a URI plus database name.
type Config struct {
	// DB is an existing database handle to wrap. The store does not own
	// the underlying client and Close is a no-op.
	DB *mongo.Database

	// URI connects a new client when DB is nil.
	URI string

	// Database names the database for URI connections.
	Database string

	Logger *slog.Logger
}

// NewStore creates a MongoDB-backed store.
func NewStore(config Config) (*Store, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.DB != nil {
		return &Store{db: config.DB, logger: config.Logger}, nil
	}

	if config.URI == "" {
		return nil, errors.New("mongo store requires a database handle or a URI")
	}
	if config.Database == "" {
		return nil, errors.New("mongo store requires a database name with a URI")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	return &Store{
		db:     client.Database(config.Database),
		client: client,
		logger: config.Logger,
	}, nil
}

// ReplaceUpsert implements core.Store.
func (s *Store) ReplaceUpsert(ctx context.Context, collection string, doc core.Document) (core.WriteResult, error) {
	res, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: doc.ID}},
		replacementDoc(doc),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "replace", Collection: collection, Err: err}
	}
	return core.WriteResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}, nil
}

// BulkUpsert implements core.Store. Per-element write errors surface in the
// result; the call itself only fails for whole-batch conditions (connection
// loss, write concern).
func (s *Store) BulkUpsert(ctx context.Context, collection string, docs []core.Document) (core.BulkResult, error) {
	if len(docs) == 0 {
		return core.BulkResult{}, nil
	}

	models := make([]mongo.WriteModel, len(docs))
	for i, doc := range docs {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: "_id", Value: doc.ID}}).
			SetReplacement(replacementDoc(doc)).
			SetUpsert(true)
	}

	res, err := s.db.Collection(collection).BulkWrite(ctx, models,
		options.BulkWrite().SetOrdered(false))

	var out core.BulkResult
	if res != nil {
		out.Matched = res.MatchedCount
		out.Modified = res.ModifiedCount
		out.Upserted = res.UpsertedCount
	}
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) {
			out.Errors = mapBulkErrors(bwe, docs)
			if bwe.WriteConcernError == nil {
				return out, nil
			}
		}
		return out, &core.StoreError{Op: "bulk", Collection: collection, Err: err}
	}
	return out, nil
}

// UpdateFields implements core.Store.
func (s *Store) UpdateFields(ctx context.Context, collection string, id string, fields []core.FieldUpdate) (core.WriteResult, error) {
	update := updateDoc(fields)
	if len(update) == 0 {
		return core.WriteResult{}, nil
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		update,
	)
	if err != nil {
		return core.WriteResult{}, &core.StoreError{Op: "update", Collection: collection, Err: err}
	}
	return core.WriteResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}, nil
}

// Find implements core.Finder.
func (s *Store) Find(ctx context.Context, collection string, id string) (map[string]any, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, core.ErrNotFound
		}
		return nil, &core.StoreError{Op: "find", Collection: collection, Err: err}
	}
	return raw, nil
}

// List implements core.Lister.
func (s *Store) List(ctx context.Context, collection string) ([]string, error) {
	cur, err := s.db.Collection(collection).Find(ctx, bson.D{},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &core.StoreError{Op: "list", Collection: collection, Err: err}
	}

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, &core.StoreError{Op: "list", Collection: collection, Err: err}
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

// Init implements core.Initializer by verifying connectivity.
func (s *Store) Init(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Ping(ctx, nil); err != nil {
		return &core.StoreError{Op: "init", Collection: "", Err: err}
	}
	s.logger.Debug("mongodb reachable", "database", s.db.Name())
	return nil
}

// Close implements core.Closer. It disconnects only clients this store
// opened itself.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Disconnect(ctx); err != nil {
		return &core.StoreError{Op: "close", Collection: "", Err: err}
	}
	return nil
}

// replacementDoc renders the full replace payload, identifier first so the
// stored document keys stay stable across replaces.
func replacementDoc(doc core.Document) bson.D {
	out := make(bson.D, 0, len(doc.Fields)+1)
	out = append(out, bson.E{Key: "_id", Value: doc.ID})
	for _, f := range doc.Fields {
		out = append(out, bson.E{Key: f.Name, Value: f.Value})
	}
	return out
}

// updateDoc splits field updates into $set values and $currentDate
// directives.
func updateDoc(fields []core.FieldUpdate) bson.D {
	var set, current bson.D
	for _, f := range fields {
		if f.ServerTime {
			current = append(current, bson.E{Key: f.Name, Value: true})
			continue
		}
		set = append(set, bson.E{Key: f.Name, Value: f.Value})
	}

	var update bson.D
	if len(set) > 0 {
		update = append(update, bson.E{Key: "$set", Value: set})
	}
	if len(current) > 0 {
		update = append(update, bson.E{Key: "$currentDate", Value: current})
	}
	return update
}

// mapBulkErrors converts driver write errors into indexed item errors.
func mapBulkErrors(bwe mongo.BulkWriteException, docs []core.Document) []core.ItemError {
	items := make([]core.ItemError, 0, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		id := ""
		if we.Index >= 0 && we.Index < len(docs) {
			id = docs[we.Index].ID
		}
		items = append(items, core.ItemError{Index: we.Index, ID: id, Err: we})
	}
	return items
}

var (
	_ core.Store       = (*Store)(nil)
	_ core.Finder      = (*Store)(nil)
	_ core.Lister      = (*Store)(nil)
	_ core.Initializer = (*Store)(nil)
	_ core.Closer      = (*Store)(nil)
)
