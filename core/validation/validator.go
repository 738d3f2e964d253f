// Package validation checks document input against schema field types and
// constraints. Models run it before every write.
package validation

import (
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/artpar/docgraph/core/schema"
	"github.com/google/uuid"
)

// ValidateCreate validates input data for a create.
// Required fields without a default must be present.
func ValidateCreate(s *schema.Schema, data map[string]any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	checkUnknown(&result, s, data)

	for _, field := range s.Fields() {
		value, hasValue := data[field.Name]

		if field.Name == schema.IDField {
			if hasValue {
				result.AddError(field.Name, "read_only", value, "field is assigned by the server")
			}
			continue
		}

		if field.Required && (!hasValue || value == nil) {
			if field.Default == nil {
				result.AddError(field.Name, "required", nil, "field is required")
			}
			continue
		}

		if !hasValue || value == nil {
			continue
		}

		validateFieldType(&result, field, value)
		validateConstraints(&result, field, value)
	}

	return result
}

// ValidateUpdate validates input data for an update.
// Only provided fields are checked; nil clears a field unless it is required.
func ValidateUpdate(s *schema.Schema, data map[string]any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	checkUnknown(&result, s, data)

	for _, field := range s.Fields() {
		value, hasValue := data[field.Name]
		if !hasValue {
			continue
		}

		if field.Name == schema.IDField {
			result.AddError(field.Name, "read_only", value, "field is assigned by the server")
			continue
		}

		if value == nil {
			if field.Required {
				result.AddError(field.Name, "required", nil, "field is required")
			}
			continue
		}

		validateFieldType(&result, field, value)
		validateConstraints(&result, field, value)
	}

	return result
}

// ValidateField validates a single field value.
func ValidateField(field schema.NamedField, value any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	if value == nil {
		if field.Required && field.Default == nil {
			result.AddError(field.Name, "required", nil, "field is required")
		}
		return result
	}

	validateFieldType(&result, field, value)
	validateConstraints(&result, field, value)

	return result
}

// checkUnknown rejects fields the schema does not define.
func checkUnknown(result *schema.ValidationResult, s *schema.Schema, data map[string]any) {
	var unknown []string
	for name := range data {
		if !s.Has(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		result.AddError(name, "unknown_field", name,
			fmt.Sprintf("unknown field '%s' - not defined in schema", name))
	}
}

// validateFieldType validates the value matches the expected field type.
func validateFieldType(result *schema.ValidationResult, field schema.NamedField, value any) {
	switch field.Type {
	case schema.FieldTypeString, schema.FieldTypeDuration, schema.FieldTypeSecret:
		if _, ok := value.(string); !ok {
			result.AddError(field.Name, "type", value, "must be a string")
		}

	case schema.FieldTypeEmail:
		str, ok := value.(string)
		if !ok {
			result.AddError(field.Name, "type", value, "must be a string")
		} else if _, err := mail.ParseAddress(str); err != nil {
			result.AddError(field.Name, "type", value, "invalid email address")
		}

	case schema.FieldTypeURL:
		str, ok := value.(string)
		if !ok {
			result.AddError(field.Name, "type", value, "must be a string")
		} else if _, err := url.ParseRequestURI(str); err != nil {
			result.AddError(field.Name, "type", value, "invalid URL")
		}

	case schema.FieldTypeUUID:
		str, ok := value.(string)
		if !ok {
			result.AddError(field.Name, "type", value, "must be a string")
		} else if _, err := uuid.Parse(str); err != nil {
			result.AddError(field.Name, "type", value, "invalid UUID format")
		}

	case schema.FieldTypeEnum:
		str, ok := value.(string)
		if !ok || !containsString(field.Values, str) {
			result.AddError(field.Name, "enum", value,
				fmt.Sprintf("must be one of: %s", strings.Join(field.Values, ", ")))
		}

	case schema.FieldTypeInt:
		switch n := value.(type) {
		case int, int32, int64:
		case float64:
			if n != float64(int64(n)) {
				result.AddError(field.Name, "type", value, "must be an integer")
			}
		default:
			result.AddError(field.Name, "type", value, "must be an integer")
		}

	case schema.FieldTypeFloat:
		switch value.(type) {
		case float32, float64, int, int32, int64:
		default:
			result.AddError(field.Name, "type", value, "must be a number")
		}

	case schema.FieldTypeBool:
		if _, ok := value.(bool); !ok {
			result.AddError(field.Name, "type", value, "must be a boolean")
		}

	case schema.FieldTypeTimestamp:
		switch v := value.(type) {
		case time.Time:
		case string:
			if _, err := time.Parse(time.RFC3339, v); err != nil {
				result.AddError(field.Name, "type", value, "must be an RFC 3339 timestamp")
			}
		default:
			result.AddError(field.Name, "type", value, "must be a timestamp")
		}

	case schema.FieldTypeRef:
		str, ok := value.(string)
		if !ok || strings.TrimSpace(str) == "" {
			result.AddError(field.Name, "type", value, "reference cannot be empty")
		}

	case schema.FieldTypeStrings:
		if !isListOf(value, func(item any) bool { _, ok := item.(string); return ok }) {
			result.AddError(field.Name, "type", value, "must be a list of strings")
		}

	case schema.FieldTypeInts:
		if !isListOf(value, isInteger) {
			result.AddError(field.Name, "type", value, "must be a list of integers")
		}
	}
}

// validateConstraints validates the value against field constraints.
func validateConstraints(result *schema.ValidationResult, field schema.NamedField, value any) {
	for _, c := range field.Constraints {
		if err := schema.ValidateConstraint(field.Name, value, c); err != nil {
			result.Errors = append(result.Errors, *err)
			result.Valid = false
		}
	}
}

func isListOf(value any, ok func(any) bool) bool {
	switch list := value.(type) {
	case []string:
		return ok("")
	case []int, []int64:
		return ok(0)
	case []any:
		for _, item := range list {
			if !ok(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

// containsString checks if a string is in a slice.
func containsString(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
