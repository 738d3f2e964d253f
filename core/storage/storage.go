// Package storage persists documents. Collections are created from
// document schemas; records are plain maps keyed by field name.
package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/artpar/docgraph/core/schema"
)

var (
	// ErrNotFound is returned when no record matches an identifier.
	ErrNotFound = errors.New("document not found")

	// ErrConflict is returned when a write violates a unique field.
	ErrConflict = errors.New("unique constraint violated")
)

// Store provides CRUD operations over schema-backed collections.
type Store interface {
	// EnsureCollection creates the collection and its indexes if missing.
	EnsureCollection(ctx context.Context, collection string, s *schema.Schema) error

	// Insert stores a new record. The record must carry its _id.
	Insert(ctx context.Context, collection string, record map[string]any) error

	// FindOne retrieves a record by _id.
	FindOne(ctx context.Context, collection string, id string) (map[string]any, error)

	// Find retrieves records matching a query.
	Find(ctx context.Context, collection string, q Query) ([]map[string]any, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, collection string, filters map[string]any) (int64, error)

	// Update sets fields on an existing record.
	Update(ctx context.Context, collection string, id string, set map[string]any) error

	// Delete removes a record.
	Delete(ctx context.Context, collection string, id string) error

	// Close releases the underlying connection.
	Close() error
}

// Query configures Find.
type Query struct {
	// Filters are field-value equality pairs.
	Filters map[string]any

	// Limit is the maximum number of records to return (default 100).
	Limit int

	// Offset is the number of records to skip.
	Offset int

	// OrderBy is the field to sort by (default _id).
	OrderBy string

	// Desc sorts in descending order.
	Desc bool
}

// DefaultLimit caps Find when Query.Limit is not set.
const DefaultLimit = 100

// normalize applies query defaults and drops an OrderBy that is not a
// schema field.
func (q Query) normalize(s *schema.Schema) Query {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.OrderBy == "" || s == nil || !s.Has(q.OrderBy) {
		q.OrderBy = schema.IDField
	}
	return q
}

// checkFilters rejects filters on fields the schema does not define and
// filter values that are not scalars. Filters are equality only, so maps
// and slices would otherwise reach Mongo as operator documents.
func checkFilters(s *schema.Schema, filters map[string]any) error {
	var unknown []string
	for k, v := range filters {
		if !s.Has(k) {
			unknown = append(unknown, k)
			continue
		}
		if !isScalar(v) {
			return fmt.Errorf("filter %q: value must be a scalar, got %T", k, v)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("unknown filter fields: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func isScalar(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.([]byte); ok {
		return true
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		_, isTime := v.(time.Time)
		return isTime
	default:
		return true
	}
}
