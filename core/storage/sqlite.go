package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/artpar/docgraph/core/schema"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store with one table per collection.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex

	// collections maps collection names to their schemas
	collections map[string]*schema.Schema
}

// NewSQLiteStore opens a SQLite database at path (":memory:" for tests).
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a distinct database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return NewSQLiteStoreFromDB(db), nil
}

// NewSQLiteStoreFromDB creates a store from an existing connection.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:          db,
		collections: make(map[string]*schema.Schema),
	}
}

// EnsureCollection creates the table and indexes for a collection.
func (s *SQLiteStore) EnsureCollection(ctx context.Context, collection string, sch *schema.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, BuildCreateTableSQL(collection, sch)); err != nil {
		return fmt.Errorf("create table %s: %w", collection, err)
	}

	for _, indexSQL := range BuildIndexSQL(collection, sch) {
		if _, err := s.db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	s.collections[collection] = sch
	return nil
}

func (s *SQLiteStore) schemaFor(collection string) (*schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sch, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not initialized", collection)
	}
	return sch, nil
}

// Insert stores a new record.
func (s *SQLiteStore) Insert(ctx context.Context, collection string, record map[string]any) error {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return err
	}

	if id, _ := record[schema.IDField].(string); id == "" {
		return fmt.Errorf("insert into %s: missing %s", collection, schema.IDField)
	}

	var columns, placeholders []string
	var values []any

	for _, f := range sch.Fields() {
		val, ok := record[f.Name]
		if !ok {
			continue
		}
		v, err := toDB(val, f.Field)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		columns = append(columns, quoteIdent(f.Name))
		placeholders = append(placeholders, "?")
		values = append(values, v)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(collection),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := s.db.ExecContext(ctx, insertSQL, values...); err != nil {
		if IsConstraintError(err) {
			return fmt.Errorf("insert: %w: %w", ErrConflict, err)
		}
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// FindOne retrieves a record by _id.
func (s *SQLiteStore) FindOne(ctx context.Context, collection string, id string) (map[string]any, error) {
	records, err := s.Find(ctx, collection, Query{
		Filters: map[string]any{schema.IDField: id},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return records[0], nil
}

// Find retrieves records matching a query.
func (s *SQLiteStore) Find(ctx context.Context, collection string, q Query) ([]map[string]any, error) {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return nil, err
	}
	if err := checkFilters(sch, q.Filters); err != nil {
		return nil, err
	}
	q = q.normalize(sch)

	fields := sch.Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = quoteIdent(f.Name)
	}

	where, args, err := whereClause(sch, q.Filters)
	if err != nil {
		return nil, err
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	querySQL := fmt.Sprintf(
		"SELECT %s FROM %s%s ORDER BY %s %s LIMIT %d OFFSET %d",
		strings.Join(columns, ", "), quoteIdent(collection), where, quoteIdent(q.OrderBy), dir, q.Limit, q.Offset,
	)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanDest := make([]any, len(columns))
		for i := range values {
			scanDest[i] = &values[i]
		}

		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}

		record := make(map[string]any, len(columns))
		for i, f := range fields {
			if values[i] == nil {
				continue
			}
			record[f.Name] = fromDB(values[i], f.Field)
		}
		results = append(results, record)
	}

	return results, rows.Err()
}

// Count returns the number of records matching the filters.
func (s *SQLiteStore) Count(ctx context.Context, collection string, filters map[string]any) (int64, error) {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return 0, err
	}
	if err := checkFilters(sch, filters); err != nil {
		return 0, err
	}

	where, args, err := whereClause(sch, filters)
	if err != nil {
		return 0, err
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(collection), where)
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// Update sets fields on an existing record. Unknown fields are ignored.
func (s *SQLiteStore) Update(ctx context.Context, collection string, id string, set map[string]any) error {
	sch, err := s.schemaFor(collection)
	if err != nil {
		return err
	}

	var sets []string
	var values []any

	for _, f := range sch.Fields() {
		val, ok := set[f.Name]
		if !ok || f.Name == schema.IDField {
			continue
		}
		v, err := toDB(val, f.Field)
		if err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		sets = append(sets, quoteIdent(f.Name)+" = ?")
		values = append(values, v)
	}

	if len(sets) == 0 {
		// Nothing to change; still report a missing record.
		_, err := s.FindOne(ctx, collection, id)
		return err
	}
	values = append(values, id)

	updateSQL := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quoteIdent(collection), strings.Join(sets, ", "), quoteIdent(schema.IDField))

	result, err := s.db.ExecContext(ctx, updateSQL, values...)
	if err != nil {
		if IsConstraintError(err) {
			return fmt.Errorf("update: %w: %w", ErrConflict, err)
		}
		return fmt.Errorf("update: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, id string) error {
	if _, err := s.schemaFor(collection); err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(collection), quoteIdent(schema.IDField))
	result, err := s.db.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// whereClause builds an equality WHERE clause with sorted columns.
func whereClause(sch *schema.Schema, filters map[string]any) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var conditions []string
	var args []any
	for _, f := range sch.Fields() {
		val, ok := filters[f.Name]
		if !ok {
			continue
		}
		if val == nil {
			conditions = append(conditions, quoteIdent(f.Name)+" IS NULL")
			continue
		}
		v, err := toDB(val, f.Field)
		if err != nil {
			return "", nil, fmt.Errorf("filter %q: %w", f.Name, err)
		}
		conditions = append(conditions, quoteIdent(f.Name)+" = ?")
		args = append(args, v)
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// toDB converts a Go value to a column value.
func toDB(val any, f schema.Field) (any, error) {
	if val == nil {
		return nil, nil
	}

	switch f.Type {
	case schema.FieldTypeBool:
		switch v := val.(type) {
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		case string:
			if v == "true" || v == "1" {
				return 1, nil
			}
			return 0, nil
		default:
			return 0, nil
		}
	case schema.FieldTypeTimestamp:
		switch v := val.(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano), nil
		case *time.Time:
			if v == nil {
				return nil, nil
			}
			return v.UTC().Format(time.RFC3339Nano), nil
		default:
			return val, nil
		}
	case schema.FieldTypeJSON, schema.FieldTypeStrings, schema.FieldTypeInts:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	case schema.FieldTypeSecret, schema.FieldTypeBytes:
		if s, ok := val.(string); ok {
			return []byte(s), nil
		}
		return val, nil
	default:
		return val, nil
	}
}

// fromDB converts a column value back to a Go value.
func fromDB(val any, f schema.Field) any {
	if b, ok := val.([]byte); ok && f.Type != schema.FieldTypeSecret && f.Type != schema.FieldTypeBytes {
		val = string(b)
	}

	switch f.Type {
	case schema.FieldTypeBool:
		switch v := val.(type) {
		case int64:
			return v != 0
		case bool:
			return v
		default:
			return false
		}
	case schema.FieldTypeTimestamp:
		switch v := val.(type) {
		case string:
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return t
			}
			return v
		case time.Time:
			return v.UTC()
		default:
			return val
		}
	case schema.FieldTypeJSON, schema.FieldTypeStrings, schema.FieldTypeInts:
		s, ok := val.(string)
		if !ok {
			return val
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return s
		}
		return out
	case schema.FieldTypeInt:
		if v, ok := val.(float64); ok {
			return int64(v)
		}
		return val
	default:
		return val
	}
}

// IsConstraintError reports whether err is a SQLite constraint violation.
func IsConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
