package stitch

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

var builtinScalars = map[string]bool{
	"String":  true,
	"Int":     true,
	"Float":   true,
	"Boolean": true,
	"ID":      true,
}

// PrintSDL renders s in schema definition language.
func PrintSDL(s graphql.Schema) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchema(toAST(s))
	return buf.String()
}

// ValidateSDL parses and validates a schema document.
func ValidateSDL(sdl string) error {
	if _, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl}); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	return nil
}

// toAST converts a runtime schema to its parser representation.
func toAST(s graphql.Schema) *ast.Schema {
	out := &ast.Schema{
		Types:      make(map[string]*ast.Definition),
		Directives: make(map[string]*ast.DirectiveDefinition),
	}

	names := make([]string, 0, len(s.TypeMap()))
	for name := range s.TypeMap() {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.HasPrefix(name, "__") || builtinScalars[name] {
			continue
		}
		if def := definition(s.TypeMap()[name]); def != nil {
			out.Types[name] = def
		}
	}

	if t := s.QueryType(); t != nil {
		out.Query = out.Types[t.Name()]
	}
	if t := s.MutationType(); t != nil {
		out.Mutation = out.Types[t.Name()]
	}
	if t := s.SubscriptionType(); t != nil {
		out.Subscription = out.Types[t.Name()]
	}
	return out
}

func definition(t graphql.Type) *ast.Definition {
	switch v := t.(type) {
	case *graphql.Object:
		def := &ast.Definition{Kind: ast.Object, Name: v.Name(), Description: v.Description()}
		for _, iface := range v.Interfaces() {
			def.Interfaces = append(def.Interfaces, iface.Name())
		}
		def.Fields = outputFields(v.Fields())
		return def
	case *graphql.Interface:
		return &ast.Definition{Kind: ast.Interface, Name: v.Name(), Description: v.Description(), Fields: outputFields(v.Fields())}
	case *graphql.InputObject:
		def := &ast.Definition{Kind: ast.InputObject, Name: v.Name(), Description: v.Description()}
		fields := v.Fields()
		for _, name := range sortedKeys(fields) {
			f := fields[name]
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:        name,
				Description: f.Description(),
				Type:        astType(f.Type),
			})
		}
		return def
	case *graphql.Enum:
		def := &ast.Definition{Kind: ast.Enum, Name: v.Name(), Description: v.Description()}
		values := v.Values()
		sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
		for _, val := range values {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: val.Name, Description: val.Description})
		}
		return def
	case *graphql.Union:
		def := &ast.Definition{Kind: ast.Union, Name: v.Name(), Description: v.Description()}
		for _, member := range v.Types() {
			def.Types = append(def.Types, member.Name())
		}
		return def
	case *graphql.Scalar:
		return &ast.Definition{Kind: ast.Scalar, Name: v.Name(), Description: v.Description()}
	}
	return nil
}

func outputFields(fields graphql.FieldDefinitionMap) ast.FieldList {
	var out ast.FieldList
	for _, name := range sortedKeys(fields) {
		f := fields[name]
		def := &ast.FieldDefinition{
			Name:        name,
			Description: f.Description,
			Type:        astType(f.Type),
		}
		args := append([]*graphql.Argument(nil), f.Args...)
		sort.Slice(args, func(i, j int) bool { return args[i].Name() < args[j].Name() })
		for _, arg := range args {
			def.Arguments = append(def.Arguments, &ast.ArgumentDefinition{
				Name:        arg.Name(),
				Description: arg.Description(),
				Type:        astType(arg.Type),
			})
		}
		out = append(out, def)
	}
	return out
}

// astType converts wrapping types recursively.
func astType(t graphql.Type) *ast.Type {
	switch v := t.(type) {
	case *graphql.NonNull:
		inner := astType(v.OfType)
		inner.NonNull = true
		return inner
	case *graphql.List:
		return ast.ListType(astType(v.OfType), nil)
	default:
		return ast.NamedType(t.Name(), nil)
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
