package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Constraint defines a validation rule for a field.
type Constraint struct {
	// Type is the constraint type (min, max, min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex pattern, etc.)
	Value any `yaml:"value" json:"value"`

	// Message is the custom error message (optional).
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	ConstraintMin       ConstraintType = "min"
	ConstraintMax       ConstraintType = "max"
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintPattern   ConstraintType = "pattern"
	ConstraintNotEmpty  ConstraintType = "not_empty"
	ConstraintOneOf     ConstraintType = "one_of"
)

// Check reports a constraint whose parameter cannot be used, such as a
// non-numeric bound or a pattern that does not compile.
func (c Constraint) Check() error {
	switch c.Type {
	case ConstraintMin, ConstraintMax:
		if _, err := toFloat64(c.Value); err != nil {
			return fmt.Errorf("constraint %s: value must be numeric", c.Type)
		}
	case ConstraintMinLength, ConstraintMaxLength:
		if n, err := toInt(c.Value); err != nil || n < 0 {
			return fmt.Errorf("constraint %s: value must be a non-negative integer", c.Type)
		}
	case ConstraintPattern:
		p, ok := c.Value.(string)
		if !ok {
			return fmt.Errorf("constraint pattern: value must be a string")
		}
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("constraint pattern: %w", err)
		}
	case ConstraintOneOf:
		if len(oneOfValues(c.Value)) == 0 {
			return fmt.Errorf("constraint one_of: value must be a non-empty list")
		}
	case ConstraintNotEmpty:
	default:
		return fmt.Errorf("unknown constraint %q", c.Type)
	}
	return nil
}

// ConstraintError represents a validation failure.
type ConstraintError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a record.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ConstraintError `json:"errors,omitempty"`
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, constraint string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConstraintError{
		Field:      field,
		Constraint: constraint,
		Value:      value,
		Message:    message,
	})
}

// Error returns a combined error message.
func (r ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidateConstraint validates a value against a single constraint.
// Values of a kind the constraint does not apply to pass.
func ValidateConstraint(fieldName string, value any, c Constraint) *ConstraintError {
	fail := func(got any, def string) *ConstraintError {
		msg := c.Message
		if msg == "" {
			msg = def
		}
		return &ConstraintError{Field: fieldName, Constraint: string(c.Type), Value: got, Message: msg}
	}

	switch c.Type {
	case ConstraintMin, ConstraintMax:
		bound, err := toFloat64(c.Value)
		if err != nil {
			return nil
		}
		val, err := toFloat64(value)
		if err != nil {
			return nil
		}
		if c.Type == ConstraintMin && val < bound {
			return fail(value, fmt.Sprintf("must be at least %v", bound))
		}
		if c.Type == ConstraintMax && val > bound {
			return fail(value, fmt.Sprintf("must be at most %v", bound))
		}

	case ConstraintMinLength, ConstraintMaxLength:
		n, err := toInt(c.Value)
		if err != nil {
			return nil
		}
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if c.Type == ConstraintMinLength && len(str) < n {
			return fail(len(str), fmt.Sprintf("must be at least %d characters", n))
		}
		if c.Type == ConstraintMaxLength && len(str) > n {
			return fail(len(str), fmt.Sprintf("must be at most %d characters", n))
		}

	case ConstraintPattern:
		pattern, ok := c.Value.(string)
		if !ok {
			return nil
		}
		str, ok := value.(string)
		if !ok {
			return nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil
		}
		if !re.MatchString(str) {
			return fail(value, "does not match required pattern")
		}

	case ConstraintNotEmpty:
		if str, ok := value.(string); ok && strings.TrimSpace(str) == "" {
			return fail(value, "must not be empty")
		}

	case ConstraintOneOf:
		allowed := oneOfValues(c.Value)
		if len(allowed) == 0 {
			return nil
		}
		got := fmt.Sprintf("%v", value)
		for _, a := range allowed {
			if a == got {
				return nil
			}
		}
		return fail(value, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
	}

	return nil
}

// oneOfValues renders a one_of parameter as strings.
func oneOfValues(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, len(vals))
		for i, a := range vals {
			out[i] = fmt.Sprintf("%v", a)
		}
		return out
	default:
		return nil
	}
}

// toFloat64 converts various numeric types to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// toInt converts various types to int.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
