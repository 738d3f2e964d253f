// Package typegen generates GraphQL types from document schemas at runtime.
//
// A schema becomes an object, input object or interface type depending on
// the requested class. Fields whose names match the exclude pattern are
// left out; secret and internal fields never appear on output types.
package typegen

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/artpar/docgraph/core/convention"
	"github.com/artpar/docgraph/core/schema"
	"github.com/graphql-go/graphql"
)

// Type classes.
const (
	ClassObject      = "GraphQLObjectType"
	ClassInputObject = "GraphQLInputObjectType"
	ClassInterface   = "GraphQLInterfaceType"
)

// DefaultExclude matches names starting with a double underscore.
var DefaultExclude = regexp.MustCompile(`^__`)

var namePattern = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// Options describes one type to generate.
type Options struct {
	Name        string
	Description string
	Class       string
	Schema      *schema.Schema

	// Exclude drops matching field names. Nil excludes nothing.
	Exclude *regexp.Regexp
}

// Error reports a type that cannot be generated.
type Error struct {
	Type   string
	Reason string
	Err    error
}

// Error returns the type generation error message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("generate type %q: %s", e.Type, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Mode selects which argument set Arguments builds.
type Mode int

const (
	// ModeCreate requires fields that are required and have no default.
	ModeCreate Mode = iota
	// ModeUpdate requires _id and makes every other field optional.
	ModeUpdate
)

// Generator builds GraphQL types. Enum types are cached by name so that
// object and argument types of one document share them.
type Generator struct {
	mu    sync.Mutex
	enums map[string]*graphql.Enum
	json  *graphql.Scalar
}

// NewGenerator creates a generator.
func NewGenerator() *Generator {
	return &Generator{
		enums: make(map[string]*graphql.Enum),
		json:  newJSONScalar(),
	}
}

// JSON returns the shared JSON scalar.
func (g *Generator) JSON() *graphql.Scalar {
	return g.json
}

// Generate builds the type described by opts.
func (g *Generator) Generate(opts Options) (graphql.Type, error) {
	fields, err := g.exposed(opts)
	if err != nil {
		return nil, err
	}

	var t graphql.Type
	switch opts.Class {
	case ClassObject, "":
		t = graphql.NewObject(graphql.ObjectConfig{
			Name:        opts.Name,
			Description: opts.Description,
			Fields:      g.outputFields(opts, fields),
		})
	case ClassInterface:
		t = graphql.NewInterface(graphql.InterfaceConfig{
			Name:        opts.Name,
			Description: opts.Description,
			Fields:      g.outputFields(opts, fields),
		})
	case ClassInputObject:
		inputs := graphql.InputObjectConfigFieldMap{}
		for _, f := range fields {
			if f.Internal {
				continue
			}
			inputs[f.Name] = &graphql.InputObjectFieldConfig{
				Type:         g.inputType(opts.Name, f, f.Required && f.Default == nil),
				Description:  f.Description,
				DefaultValue: f.Default,
			}
		}
		t = graphql.NewInputObject(graphql.InputObjectConfig{
			Name:        opts.Name,
			Description: opts.Description,
			Fields:      inputs,
		})
	default:
		return nil, &Error{Type: opts.Name, Reason: fmt.Sprintf("unknown class %q", opts.Class)}
	}

	if err := typeError(t); err != nil {
		return nil, &Error{Type: opts.Name, Reason: "invalid type", Err: err}
	}
	return t, nil
}

// Arguments builds field arguments for create or update mutations.
// Server-managed fields (_id on create, timestamps) are not arguments.
func (g *Generator) Arguments(opts Options, mode Mode) (graphql.FieldConfigArgument, error) {
	fields, err := g.exposed(opts)
	if err != nil {
		return nil, err
	}

	args := graphql.FieldConfigArgument{}
	for _, f := range fields {
		if f.Internal || managed(f.Name) {
			continue
		}
		if f.Name == schema.IDField {
			if mode == ModeUpdate {
				args[f.Name] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}
			}
			continue
		}

		required := mode == ModeCreate && f.Required && f.Default == nil
		args[f.Name] = &graphql.ArgumentConfig{
			Type:        g.inputType(opts.Name, f, required),
			Description: f.Description,
		}
	}
	return args, nil
}

// exposed checks opts and returns the fields that survive exclusion.
func (g *Generator) exposed(opts Options) ([]schema.NamedField, error) {
	if !namePattern.MatchString(opts.Name) || strings.HasPrefix(opts.Name, "__") {
		return nil, &Error{Type: opts.Name, Reason: "invalid type name"}
	}
	if opts.Schema == nil {
		return nil, &Error{Type: opts.Name, Reason: "schema is required"}
	}

	var fields []schema.NamedField
	for _, f := range opts.Schema.Fields() {
		if opts.Exclude != nil && opts.Exclude.MatchString(f.Name) {
			continue
		}
		if strings.HasPrefix(f.Name, "__") {
			return nil, &Error{Type: opts.Name, Reason: fmt.Sprintf("field %q uses a reserved name; exclude it", f.Name)}
		}
		if f.Type == schema.FieldTypeEnum {
			if err := checkEnumValues(f.Values); err != nil {
				return nil, &Error{Type: opts.Name, Reason: fmt.Sprintf("field %q", f.Name), Err: err}
			}
		}
		fields = append(fields, f)
	}

	visible := 0
	for _, f := range fields {
		if !f.IsInternal() {
			visible++
		}
	}
	if visible == 0 {
		return nil, &Error{Type: opts.Name, Reason: "no fields to expose"}
	}
	return fields, nil
}

func (g *Generator) outputFields(opts Options, fields []schema.NamedField) graphql.Fields {
	out := graphql.Fields{}
	for _, f := range fields {
		if f.IsInternal() {
			continue
		}
		t := g.scalarType(opts.Name, f)
		if f.Name == schema.IDField || f.Required {
			t = graphql.NewNonNull(t)
		}
		out[f.Name] = &graphql.Field{
			Type:        t,
			Description: f.Description,
		}
	}
	return out
}

func (g *Generator) inputType(typeName string, f schema.NamedField, required bool) graphql.Input {
	var t graphql.Input
	if f.Type == schema.FieldTypeSecret {
		t = graphql.String
	} else {
		t = g.scalarType(typeName, f)
	}
	if required {
		return graphql.NewNonNull(t)
	}
	return t
}

// scalarType maps a field to its nullable GraphQL type.
func (g *Generator) scalarType(typeName string, f schema.NamedField) graphql.Type {
	switch f.Type {
	case schema.FieldTypeInt:
		return graphql.Int
	case schema.FieldTypeFloat:
		return graphql.Float
	case schema.FieldTypeBool:
		return graphql.Boolean
	case schema.FieldTypeTimestamp:
		return graphql.DateTime
	case schema.FieldTypeUUID, schema.FieldTypeRef:
		return graphql.ID
	case schema.FieldTypeJSON:
		return g.json
	case schema.FieldTypeEnum:
		return g.enum(convention.EnumTypeName(typeName, f.Name), f.Values)
	case schema.FieldTypeStrings:
		return graphql.NewList(graphql.String)
	case schema.FieldTypeInts:
		return graphql.NewList(graphql.Int)
	default:
		return graphql.String
	}
}

// enum returns the cached enum for name, replacing it if values changed.
func (g *Generator) enum(name string, values []string) *graphql.Enum {
	g.mu.Lock()
	defer g.mu.Unlock()

	if e, ok := g.enums[name]; ok && sameValues(e, values) {
		return e
	}

	config := graphql.EnumValueConfigMap{}
	for _, v := range values {
		config[EnumValueName(v)] = &graphql.EnumValueConfig{Value: v}
	}
	e := graphql.NewEnum(graphql.EnumConfig{Name: name, Values: config})
	g.enums[name] = e
	return e
}

func sameValues(e *graphql.Enum, values []string) bool {
	existing := e.Values()
	if len(existing) != len(values) {
		return false
	}
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	for _, v := range existing {
		s, ok := v.Value.(string)
		if !ok || !seen[s] {
			return false
		}
	}
	return true
}

// EnumValueName converts a stored enum value to a GraphQL enum value name:
// upper case with separators replaced by underscores.
func EnumValueName(v string) string {
	var b strings.Builder
	for i, r := range v {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func checkEnumValues(values []string) error {
	seen := make(map[string]string, len(values))
	for _, v := range values {
		name := EnumValueName(v)
		if !namePattern.MatchString(name) {
			return fmt.Errorf("enum value %q has no valid name", v)
		}
		switch name {
		case "TRUE", "FALSE", "NULL":
			return fmt.Errorf("enum value %q is reserved", v)
		}
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("enum values %q and %q collide as %s", prev, v, name)
		}
		seen[name] = v
	}
	return nil
}

// managed reports fields the server fills on write.
func managed(name string) bool {
	switch name {
	case schema.CreatedAtField, schema.UpdatedAtField, schema.DeletedAtField:
		return true
	}
	return false
}

func typeError(t graphql.Type) error {
	switch v := t.(type) {
	case *graphql.Object:
		v.Fields()
		return v.Error()
	case *graphql.Interface:
		v.Fields()
		return v.Error()
	case *graphql.InputObject:
		v.Fields()
		return v.Error()
	}
	return nil
}
