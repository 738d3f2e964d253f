package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// IDField is the implicit identifier present in every schema.
const IDField = "_id"

// Schema is a built document schema. It is created by Build and may be
// mutated in place until it is bound to a model; it is not safe for
// concurrent mutation.
type Schema struct {
	fields map[string]Field
}

// BuildError reports a structurally invalid field mapping.
type BuildError struct {
	Problems []string
}

// Error returns the build error message.
func (e *BuildError) Error() string {
	return fmt.Sprintf("invalid schema:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Build creates a schema from a field mapping. A nil mapping yields a
// schema holding only the implicit identifier.
func Build(mapping map[string]Field) (*Schema, error) {
	s := &Schema{fields: make(map[string]Field, len(mapping)+1)}
	s.fields[IDField] = idField()

	var problems []string
	for _, name := range sortedKeys(mapping) {
		if name == IDField {
			problems = append(problems, fmt.Sprintf("field name %q is reserved", IDField))
			continue
		}
		if err := checkField(name, mapping[name]); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		s.fields[name] = mapping[name]
	}

	if len(problems) > 0 {
		return nil, &BuildError{Problems: problems}
	}
	return s, nil
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Has reports whether the schema defines the named field.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Add adds a new field. It fails if the field exists or is invalid.
func (s *Schema) Add(name string, f Field) error {
	if s.Has(name) {
		return &BuildError{Problems: []string{fmt.Sprintf("field %q already defined", name)}}
	}
	return s.Set(name, f)
}

// Set adds or replaces a field.
func (s *Schema) Set(name string, f Field) error {
	if name == IDField {
		return &BuildError{Problems: []string{fmt.Sprintf("field name %q is reserved", IDField)}}
	}
	if err := checkField(name, f); err != nil {
		return &BuildError{Problems: []string{err.Error()}}
	}
	s.fields[name] = f
	return nil
}

// Remove deletes a field. The implicit identifier cannot be removed.
func (s *Schema) Remove(name string) {
	if name == IDField {
		return
	}
	delete(s.fields, name)
}

// Len returns the number of fields including the identifier.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Names returns field names with the identifier first and the rest sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		if name != IDField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{IDField}, names...)
}

// Fields returns all fields in Names order.
func (s *Schema) Fields() []NamedField {
	names := s.Names()
	out := make([]NamedField, len(names))
	for i, name := range names {
		out[i] = NamedField{Name: name, Field: s.fields[name]}
	}
	return out
}

func idField() Field {
	return Field{
		Type:        FieldTypeUUID,
		Unique:      true,
		Description: "Unique document identifier",
	}
}

// checkField validates a single field definition.
func checkField(name string, field Field) error {
	if !isValidIdentifier(name) {
		return fmt.Errorf("field name %q is not a valid identifier", name)
	}

	if !isValidFieldType(field.Type) {
		return fmt.Errorf("field %q: unknown type %q", name, field.Type)
	}

	if field.Type == FieldTypeEnum && len(field.Values) == 0 {
		return fmt.Errorf("field %q: enum type requires values", name)
	}

	if field.Type == FieldTypeRef && field.To == "" {
		return fmt.Errorf("field %q: ref type requires 'to' target", name)
	}

	if field.Default != nil {
		if err := checkDefault(name, field); err != nil {
			return err
		}
	}

	for _, c := range field.Constraints {
		if err := c.Check(); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}

	return nil
}

// checkDefault validates that a default value matches the field type.
func checkDefault(name string, field Field) error {
	switch field.Type {
	case FieldTypeInt:
		switch field.Default.(type) {
		case int, int64, float64:
			return nil
		default:
			return fmt.Errorf("field %q: default must be an integer", name)
		}
	case FieldTypeFloat:
		switch field.Default.(type) {
		case int, int64, float64:
			return nil
		default:
			return fmt.Errorf("field %q: default must be a number", name)
		}
	case FieldTypeBool:
		if _, ok := field.Default.(bool); !ok {
			return fmt.Errorf("field %q: default must be a boolean", name)
		}
	case FieldTypeString, FieldTypeEmail, FieldTypeURL, FieldTypeDuration:
		if _, ok := field.Default.(string); !ok {
			return fmt.Errorf("field %q: default must be a string", name)
		}
	case FieldTypeEnum:
		s, ok := field.Default.(string)
		if !ok {
			return fmt.Errorf("field %q: default must be a string", name)
		}
		for _, v := range field.Values {
			if v == s {
				return nil
			}
		}
		return fmt.Errorf("field %q: default %q is not a valid enum value", name, s)
	}
	return nil
}

var identifierPattern = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// isValidFieldType checks if a field type is valid.
func isValidFieldType(t FieldType) bool {
	switch t {
	case FieldTypeString, FieldTypeInt, FieldTypeFloat, FieldTypeBool,
		FieldTypeTimestamp, FieldTypeDuration, FieldTypeJSON, FieldTypeBytes,
		FieldTypeEmail, FieldTypeURL, FieldTypeUUID,
		FieldTypeEnum, FieldTypeRef, FieldTypeSecret,
		FieldTypeStrings, FieldTypeInts:
		return true
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
