package storage

import (
	"fmt"
	"strings"

	"github.com/artpar/docgraph/core/schema"
)

// BuildCreateTableSQL generates CREATE TABLE SQL for a collection.
func BuildCreateTableSQL(collection string, s *schema.Schema) string {
	var columns []string
	var constraints []string

	for _, f := range s.Fields() {
		columns = append(columns, buildColumnDef(f))

		if f.Unique && f.Name != schema.IDField {
			constraints = append(constraints, fmt.Sprintf("UNIQUE(%s)", quoteIdent(f.Name)))
		}

		constraints = append(constraints, buildCheckConstraints(f)...)

		if f.Type == schema.FieldTypeEnum && len(f.Values) > 0 {
			constraints = append(constraints, fmt.Sprintf(
				"CHECK(%s IN (%s))",
				quoteIdent(f.Name), quoteList(f.Values),
			))
		}
	}

	sql := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s",
		quoteIdent(collection),
		strings.Join(columns, ",\n  "),
	)
	if len(constraints) > 0 {
		sql += ",\n  " + strings.Join(constraints, ",\n  ")
	}
	return sql + "\n)"
}

// BuildIndexSQL generates CREATE INDEX statements for indexed fields.
func BuildIndexSQL(collection string, s *schema.Schema) []string {
	var indexes []string
	for _, f := range s.Fields() {
		if f.Index && !f.Unique && f.Name != schema.IDField {
			indexes = append(indexes, fmt.Sprintf(
				"CREATE INDEX IF NOT EXISTS %s ON %s(%s)",
				quoteIdent("idx_"+collection+"_"+f.Name), quoteIdent(collection), quoteIdent(f.Name),
			))
		}
	}
	return indexes
}

// buildColumnDef builds a column definition from a field.
func buildColumnDef(f schema.NamedField) string {
	parts := []string{quoteIdent(f.Name), f.SQLType()}

	if f.Name == schema.IDField {
		parts = append(parts, "PRIMARY KEY")
	}
	if f.Required {
		parts = append(parts, "NOT NULL")
	}
	if f.Default != nil {
		if def := formatDefault(f.Default); def != "" {
			parts = append(parts, "DEFAULT "+def)
		}
	}

	return strings.Join(parts, " ")
}

// buildCheckConstraints generates CHECK constraints from field constraints.
// Pattern constraints are enforced by validation only; SQLite has no regex.
func buildCheckConstraints(f schema.NamedField) []string {
	var checks []string
	col := quoteIdent(f.Name)

	for _, c := range f.Constraints {
		switch c.Type {
		case schema.ConstraintMin:
			if v, ok := numeric(c.Value); ok {
				checks = append(checks, fmt.Sprintf("CHECK(%s >= %v)", col, v))
			}
		case schema.ConstraintMax:
			if v, ok := numeric(c.Value); ok {
				checks = append(checks, fmt.Sprintf("CHECK(%s <= %v)", col, v))
			}
		case schema.ConstraintMinLength:
			if v, ok := numeric(c.Value); ok {
				checks = append(checks, fmt.Sprintf("CHECK(LENGTH(%s) >= %v)", col, v))
			}
		case schema.ConstraintMaxLength:
			if v, ok := numeric(c.Value); ok {
				checks = append(checks, fmt.Sprintf("CHECK(LENGTH(%s) <= %v)", col, v))
			}
		case schema.ConstraintNotEmpty:
			checks = append(checks, fmt.Sprintf("CHECK(LENGTH(TRIM(%s)) > 0)", col))
		case schema.ConstraintOneOf:
			if values, ok := c.Value.([]string); ok && len(values) > 0 {
				checks = append(checks, fmt.Sprintf("CHECK(%s IN (%s))", col, quoteList(values)))
			}
		}
	}

	return checks
}

func numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// quoteIdent quotes a table or column name so keywords such as "order"
// can be used as field names.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quote(v)
	}
	return strings.Join(quoted, ", ")
}

// formatDefault formats a default value for SQL.
func formatDefault(val any) string {
	switch v := val.(type) {
	case string:
		return quote(v)
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return ""
	}
}
