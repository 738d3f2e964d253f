package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/artpar/docgraph/core/convention"
	"github.com/artpar/docgraph/core/events"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/storage"
	"github.com/artpar/docgraph/core/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Change actions published by models.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ErrNoStore is returned by model operations on a registry without a store.
var ErrNoStore = errors.New("no document store configured")

// Model is a registered document handle bound to a schema and collection.
type Model struct {
	name       string
	collection string
	schema     *schema.Schema
	store      storage.Store
	bus        *events.Bus
	logger     zerolog.Logger

	mu    sync.Mutex
	ready bool
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Collection returns the storage collection name.
func (m *Model) Collection() string { return m.collection }

// Schema returns the bound schema.
func (m *Model) Schema() *schema.Schema { return m.schema }

// ensure creates the collection once.
func (m *Model) ensure(ctx context.Context) error {
	if m.store == nil {
		return ErrNoStore
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		return nil
	}
	if err := m.store.EnsureCollection(ctx, m.collection, m.schema); err != nil {
		return fmt.Errorf("model %s: %w", m.name, err)
	}
	m.ready = true
	return nil
}

func (m *Model) softDeletes() bool {
	return m.schema.Has(schema.DeletedAtField)
}

// FindByID returns a record by _id. Soft-deleted records are not found.
func (m *Model) FindByID(ctx context.Context, id string) (map[string]any, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}

	record, err := m.store.FindOne(ctx, m.collection, id)
	if err != nil {
		return nil, err
	}
	if m.softDeletes() && record[schema.DeletedAtField] != nil {
		return nil, storage.ErrNotFound
	}
	return m.public(record), nil
}

// Find returns records matching q.
func (m *Model) Find(ctx context.Context, q storage.Query) ([]map[string]any, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}

	q.Filters = m.liveFilters(q.Filters)
	records, err := m.store.Find(ctx, m.collection, q)
	if err != nil {
		return nil, err
	}
	for i, r := range records {
		records[i] = m.public(r)
	}
	return records, nil
}

// Count returns the number of records matching filters.
func (m *Model) Count(ctx context.Context, filters map[string]any) (int64, error) {
	if err := m.ensure(ctx); err != nil {
		return 0, err
	}
	return m.store.Count(ctx, m.collection, m.liveFilters(filters))
}

// Create validates data, assigns an _id and stores the record.
func (m *Model) Create(ctx context.Context, data map[string]any) (map[string]any, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}

	if result := validation.ValidateCreate(m.schema, data); !result.Valid {
		return nil, result
	}

	record := make(map[string]any, m.schema.Len())
	for _, f := range m.schema.Fields() {
		if val, ok := data[f.Name]; ok && val != nil {
			record[f.Name] = val
		} else if f.Default != nil {
			record[f.Name] = f.Default
		}
	}

	now := time.Now().UTC()
	record[schema.IDField] = uuid.NewString()
	if m.schema.Has(schema.CreatedAtField) {
		record[schema.CreatedAtField] = now
	}
	if m.schema.Has(schema.UpdatedAtField) {
		record[schema.UpdatedAtField] = now
	}

	if err := m.prepare(record); err != nil {
		return nil, err
	}

	if err := m.store.Insert(ctx, m.collection, record); err != nil {
		return nil, fmt.Errorf("create %s: %w", m.name, err)
	}

	out := m.public(record)
	m.publish(ctx, ActionCreated, out)
	return out, nil
}

// Update validates and applies set to the record with the given _id and
// returns the updated record.
func (m *Model) Update(ctx context.Context, id string, set map[string]any) (map[string]any, error) {
	if err := m.ensure(ctx); err != nil {
		return nil, err
	}

	if result := validation.ValidateUpdate(m.schema, set); !result.Valid {
		return nil, result
	}
	if _, err := m.FindByID(ctx, id); err != nil {
		return nil, err
	}

	changes := make(map[string]any, len(set)+1)
	for k, v := range set {
		changes[k] = v
	}
	if m.schema.Has(schema.UpdatedAtField) {
		changes[schema.UpdatedAtField] = time.Now().UTC()
	}

	if err := m.prepare(changes); err != nil {
		return nil, err
	}

	if err := m.store.Update(ctx, m.collection, id, changes); err != nil {
		return nil, fmt.Errorf("update %s: %w", m.name, err)
	}

	out, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, ActionUpdated, out)
	return out, nil
}

// Delete removes the record with the given _id and returns it. Schemas
// with a deletedAt field are soft-deleted.
func (m *Model) Delete(ctx context.Context, id string) (map[string]any, error) {
	record, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if m.softDeletes() {
		now := time.Now().UTC()
		err = m.store.Update(ctx, m.collection, id, map[string]any{schema.DeletedAtField: now})
		record[schema.DeletedAtField] = now
	} else {
		err = m.store.Delete(ctx, m.collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", m.name, err)
	}

	m.publish(ctx, ActionDeleted, record)
	return record, nil
}

// Watch streams records of the given change action until ctx is done.
// Events arriving while the buffer is full are dropped.
func (m *Model) Watch(ctx context.Context, action string) <-chan map[string]any {
	out := make(chan map[string]any, 16)
	if m.bus == nil {
		close(out)
		return out
	}

	var mu sync.Mutex
	closed := false

	unsubscribe := m.bus.Subscribe(convention.EventName(m.name, action), func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil
		}
		select {
		case out <- e.Data:
		default:
			m.logger.Warn().Str("action", action).Msg("watcher buffer full, event dropped")
		}
		return nil
	})

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out
}

// prepare converts input values to storage form and hashes secrets.
func (m *Model) prepare(record map[string]any) error {
	for name, val := range record {
		f, ok := m.schema.Field(name)
		if !ok || val == nil {
			continue
		}

		switch f.Type {
		case schema.FieldTypeSecret:
			plain, ok := val.(string)
			if !ok {
				continue
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash %s: %w", name, err)
			}
			record[name] = hash
		case schema.FieldTypeTimestamp:
			if s, ok := val.(string); ok {
				t, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return fmt.Errorf("field %s: %w", name, err)
				}
				record[name] = t.UTC()
			}
		}
	}
	return nil
}

// liveFilters excludes soft-deleted records unless the caller filters on
// deletedAt explicitly.
func (m *Model) liveFilters(filters map[string]any) map[string]any {
	if !m.softDeletes() {
		return filters
	}
	if _, ok := filters[schema.DeletedAtField]; ok {
		return filters
	}
	out := make(map[string]any, len(filters)+1)
	for k, v := range filters {
		out[k] = v
	}
	out[schema.DeletedAtField] = nil
	return out
}

// public strips secret values from a record.
func (m *Model) public(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for k, v := range record {
		if f, ok := m.schema.Field(k); ok && f.Type == schema.FieldTypeSecret {
			continue
		}
		out[k] = v
	}
	return out
}

// CheckSecret reports whether plain matches the stored hash of a secret
// field on the record with the given _id.
func (m *Model) CheckSecret(ctx context.Context, id, field, plain string) (bool, error) {
	f, ok := m.schema.Field(field)
	if !ok || f.Type != schema.FieldTypeSecret {
		return false, fmt.Errorf("field %q is not a secret", field)
	}
	if err := m.ensure(ctx); err != nil {
		return false, err
	}

	record, err := m.store.FindOne(ctx, m.collection, id)
	if err != nil {
		return false, err
	}

	var hash []byte
	switch v := record[field].(type) {
	case []byte:
		hash = v
	case string:
		hash = []byte(v)
	default:
		return false, nil
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(plain)) == nil, nil
}

func (m *Model) publish(ctx context.Context, action string, record map[string]any) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(ctx, events.Event{
		Name:     convention.EventName(m.name, action),
		Document: m.name,
		Action:   action,
		Data:     record,
	})
}
