package schema

// Field defines a data field in a document schema.
type Field struct {
	// Type is the field type. See FieldType constants.
	Type FieldType `yaml:"type"`

	// Description is carried over to the generated GraphQL field.
	Description string `yaml:"description,omitempty"`

	// Required marks the field as mandatory on create.
	Required bool `yaml:"required,omitempty"`

	// Unique indicates this field must have unique values.
	Unique bool `yaml:"unique,omitempty"`

	// Index creates a storage index on this field.
	Index bool `yaml:"index,omitempty"`

	// Default value applied on create when the field is absent.
	Default any `yaml:"default,omitempty"`

	// Values lists valid values for enum type fields.
	Values []string `yaml:"values,omitempty"`

	// To names the target document for ref type fields.
	To string `yaml:"to,omitempty"`

	// Internal marks fields that are never exposed in generated types.
	Internal bool `yaml:"internal,omitempty"`

	// Constraints defines validation rules for this field.
	Constraints []Constraint `yaml:"constraints,omitempty"`
}

// FieldType represents the type of a schema field.
type FieldType string

const (
	// Primitive types
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeDuration  FieldType = "duration"
	FieldTypeJSON      FieldType = "json"
	FieldTypeBytes     FieldType = "bytes"

	// Semantic types (string with validation)
	FieldTypeEmail FieldType = "email"
	FieldTypeURL   FieldType = "url"
	FieldTypeUUID  FieldType = "uuid"

	// Special types
	FieldTypeEnum    FieldType = "enum"    // Requires Values
	FieldTypeRef     FieldType = "ref"     // Requires To
	FieldTypeSecret  FieldType = "secret"  // Hashed, never exposed
	FieldTypeStrings FieldType = "strings" // Array of strings
	FieldTypeInts    FieldType = "ints"    // Array of ints
)

// IsInternal returns whether the field should be hidden from generated types.
func (f Field) IsInternal() bool {
	return f.Internal || f.Type == FieldTypeSecret
}

// SQLType returns the SQLite column type for this field.
func (f Field) SQLType() string {
	switch f.Type {
	case FieldTypeInt, FieldTypeBool:
		return "INTEGER"
	case FieldTypeFloat:
		return "REAL"
	case FieldTypeBytes, FieldTypeSecret:
		return "BLOB"
	default:
		// json, strings and ints are stored as JSON text
		return "TEXT"
	}
}

// NamedField pairs a field with its name.
type NamedField struct {
	Name string
	Field
}
