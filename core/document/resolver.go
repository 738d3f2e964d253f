package document

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/artpar/docgraph/core/registry"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/graphql-go/graphql"
)

// Context is handed to every resolver factory. Type, Schema and Model are
// the live values of the document under construction.
type Context struct {
	Type   graphql.Type
	Schema *schema.Schema
	Model  *registry.Model

	// Types and Exclude let factories derive argument types consistent
	// with Type.
	Types   *typegen.Generator
	Exclude *regexp.Regexp
}

// ResolverFactory builds one resolver field.
type ResolverFactory interface {
	Build(ctx Context) (*graphql.Field, error)
}

// ResolverFactoryFunc adapts a function to ResolverFactory.
type ResolverFactoryFunc func(ctx Context) (*graphql.Field, error)

// Build calls f(ctx).
func (f ResolverFactoryFunc) Build(ctx Context) (*graphql.Field, error) {
	return f(ctx)
}

// Definitions maps resolver names to fields.
type Definitions map[string]*graphql.Field

// Names returns the definition names.
func (d Definitions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolverFactoryError reports a factory that failed.
type ResolverFactoryError struct {
	Category string
	Name     string
	Err      error
}

func (e *ResolverFactoryError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Category, e.Name, e.Err)
}

func (e *ResolverFactoryError) Unwrap() error {
	return e.Err
}
