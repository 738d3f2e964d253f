// Package registry manages model registration. A model binds a document
// name to its schema and to a collection in the store; names and
// collections are unique per registry.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/artpar/docgraph/core/convention"
	"github.com/artpar/docgraph/core/events"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/storage"
	"github.com/rs/zerolog"
)

// Registry manages registered models.
type Registry struct {
	mu sync.RWMutex

	// models by name
	models map[string]*Model

	// collections to model names
	collections map[string]string

	store  storage.Store
	bus    *events.Bus
	logger zerolog.Logger
}

// New creates a registry. Models registered on it read and write through
// store and publish change events on bus. Either may be nil: without a
// store model operations fail, without a bus no events are published.
func New(store storage.Store, bus *events.Bus, logger zerolog.Logger) *Registry {
	return &Registry{
		models:      make(map[string]*Model),
		collections: make(map[string]string),
		store:       store,
		bus:         bus,
		logger:      logger,
	}
}

// DuplicateNameError is returned when a name is already registered.
type DuplicateNameError struct {
	Name       string
	Collection string
}

// Error returns the duplicate name error message.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("model %q already registered", e.Name)
}

// CollectionConflictError is returned when a new name maps to the
// collection of a different registered model, as BlogPost and blogPost
// both map to blog_posts.
type CollectionConflictError struct {
	Name       string
	Collection string

	// Existing is the model that already holds the collection.
	Existing string
}

// Error returns the collection conflict error message.
func (e *CollectionConflictError) Error() string {
	return fmt.Sprintf("model %q: collection %q already claimed by model %q", e.Name, e.Collection, e.Existing)
}

// Register binds name to s and returns the new model.
// Registration performs no I/O; collections are created by Migrate or
// on first use.
func (r *Registry) Register(name string, s *schema.Schema) (*Model, error) {
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if s == nil {
		return nil, fmt.Errorf("model %q: schema is required", name)
	}

	collection := convention.Collection(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[name]; exists {
		return nil, &DuplicateNameError{Name: name, Collection: collection}
	}
	if existing, exists := r.collections[collection]; exists {
		return nil, &CollectionConflictError{Name: name, Collection: collection, Existing: existing}
	}

	m := &Model{
		name:       name,
		collection: collection,
		schema:     s,
		store:      r.store,
		bus:        r.bus,
		logger:     r.logger.With().Str("model", name).Logger(),
	}
	r.models[name] = m
	r.collections[collection] = name

	r.logger.Debug().
		Str("model", name).
		Str("collection", collection).
		Int("fields", s.Len()).
		Msg("model registered")

	return m, nil
}

// Unregister removes a model from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.models[name]
	if !exists {
		return fmt.Errorf("model %q not registered", name)
	}

	delete(r.collections, m.collection)
	delete(r.models, name)
	return nil
}

// Get returns a registered model by name.
func (r *Registry) Get(name string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[name]
	return m, ok
}

// List returns all registered models sorted by name.
func (r *Registry) List() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]*Model, 0, len(r.models))
	for _, m := range r.models {
		models = append(models, m)
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].name < models[j].name
	})

	return models
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	models := r.List()
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.name
	}
	return names
}

// Migrate creates the collection of every registered model.
func (r *Registry) Migrate(ctx context.Context) error {
	for _, m := range r.List() {
		if err := m.ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
