package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/docgraph/core/schema"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on a MongoDB database. Each document maps
// to one collection; records keep their _id as a string.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database

	mu          sync.RWMutex
	collections map[string]*schema.Schema
}

// NewMongoStore connects to uri and uses the named database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoStoreFromDatabase(client, client.Database(database)), nil
}

// NewMongoStoreFromDatabase wraps an existing database handle.
func NewMongoStoreFromDatabase(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:      client,
		db:          db,
		collections: make(map[string]*schema.Schema),
	}
}

// EnsureCollection creates indexes for unique and indexed fields.
// MongoDB creates the collection itself on first write.
func (s *MongoStore) EnsureCollection(ctx context.Context, collection string, sch *schema.Schema) error {
	if models := indexModels(sch); len(models) > 0 {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}

	s.mu.Lock()
	s.collections[collection] = sch
	s.mu.Unlock()
	return nil
}

func (s *MongoStore) schemaFor(collection string) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not initialized", collection)
	}
	return sch, nil
}

// Insert stores a new record.
func (s *MongoStore) Insert(ctx context.Context, collection string, record map[string]any) error {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return err
	}
	if id, _ := record[schema.IDField].(string); id == "" {
		return fmt.Errorf("insert into %s: missing %s", collection, schema.IDField)
	}

	doc := bson.M{}
	for _, f := range sch.Fields() {
		if val, ok := record[f.Name]; ok {
			doc[f.Name] = val
		}
	}
	applyDefaults(sch, doc)
	for _, name := range sparseUnique(sch) {
		if doc[name] == nil {
			delete(doc, name)
		}
	}

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert: %w: %w", ErrConflict, err)
		}
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// FindOne retrieves a record by _id.
func (s *MongoStore) FindOne(ctx context.Context, collection string, id string) (map[string]any, error) {
	if _, err := s.schemaFor(collection); err != nil {
		return nil, err
	}

	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{schema.IDField: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return fromBSON(doc), nil
}

// Find retrieves records matching a query.
func (s *MongoStore) Find(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return nil, err
	}
	if err := checkFilters(sch, q.Filters); err != nil {
		return nil, err
	}
	q = q.normalize(sch)

	opts := options.Find().
		SetLimit(int64(q.Limit)).
		SetSkip(int64(q.Offset)).
		SetSort(sortSpec(q))

	cursor, err := s.db.Collection(collection).Find(ctx, filterDoc(q.Filters), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	results := make([]map[string]any, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		results = append(results, fromBSON(doc))
	}
	return results, cursor.Err()
}

// Count returns the number of records matching the filters.
func (s *MongoStore) Count(ctx context.Context, collection string, filters map[string]any) (int64, error) {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return 0, err
	}
	if err := checkFilters(sch, filters); err != nil {
		return 0, err
	}

	n, err := s.db.Collection(collection).CountDocuments(ctx, filterDoc(filters))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Update sets fields on an existing record. Unknown fields are ignored.
func (s *MongoStore) Update(ctx context.Context, collection string, id string, set map[string]any) error {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return err
	}

	update := updateDoc(sch, set)
	if len(update) == 0 {
		_, err := s.FindOne(ctx, collection, id)
		return err
	}

	result, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{schema.IDField: id}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("update: %w: %w", ErrConflict, err)
		}
		return fmt.Errorf("update: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (s *MongoStore) Delete(ctx context.Context, collection string, id string) error {
	if _, err := s.schemaFor(collection); err != nil {
		return err
	}

	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{schema.IDField: id})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// indexModels builds index definitions for unique and indexed fields.
// The _id index always exists.
func indexModels(sch *schema.Schema) []mongo.IndexModel {
	var models []mongo.IndexModel
	for _, f := range sch.Fields() {
		if f.Name == schema.IDField || (!f.Unique && !f.Index) {
			continue
		}
		opts := options.Index().SetName("idx_" + f.Name)
		if f.Unique {
			opts.SetUnique(true)
			if !f.Required {
				// Records without the field stay out of the index, so any
				// number of them may exist.
				opts.SetPartialFilterExpression(bson.M{f.Name: bson.M{"$exists": true}})
			}
		}
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f.Name, Value: 1}},
			Options: opts,
		})
	}
	return models
}

// sparseUnique lists the optional unique fields. A null in one of them is
// stored as an absent field so the partial index skips it.
func sparseUnique(sch *schema.Schema) []string {
	var names []string
	for _, f := range sch.Fields() {
		if f.Unique && !f.Required && f.Name != schema.IDField {
			names = append(names, f.Name)
		}
	}
	return names
}

// updateDoc builds the update for set, unsetting nulls in optional
// unique fields. It is empty when set names no known field.
func updateDoc(sch *schema.Schema, set map[string]any) bson.M {
	fields := bson.M{}
	for k, v := range set {
		if k != schema.IDField && sch.Has(k) {
			fields[k] = v
		}
	}

	unset := bson.M{}
	for _, name := range sparseUnique(sch) {
		if v, ok := fields[name]; ok && v == nil {
			delete(fields, name)
			unset[name] = ""
		}
	}

	update := bson.M{}
	if len(fields) > 0 {
		update["$set"] = fields
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func sortSpec(q Query) bson.D {
	dir := 1
	if q.Desc {
		dir = -1
	}
	return bson.D{{Key: q.OrderBy, Value: dir}}
}

func filterDoc(filters map[string]any) bson.M {
	doc := bson.M{}
	for k, v := range filters {
		doc[k] = v
	}
	return doc
}

// applyDefaults fills schema defaults for absent fields, matching the
// column defaults the SQL store declares.
func applyDefaults(sch *schema.Schema, doc bson.M) {
	for _, f := range sch.Fields() {
		if _, ok := doc[f.Name]; !ok && f.Default != nil {
			doc[f.Name] = f.Default
		}
	}
}

// fromBSON converts driver types to plain Go values.
func fromBSON(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	case bson.M:
		return fromBSON(val)
	case primitive.D:
		return fromBSON(val.Map())
	case primitive.Binary:
		return val.Data
	case int32:
		return int64(val)
	default:
		return v
	}
}
