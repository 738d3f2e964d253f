// Package document builds documents: a schema bound to a registered model,
// a generated GraphQL type and the query, mutation and subscription
// fields produced by resolver factories.
//
// Construction is eager and all-or-nothing. New either returns a complete
// Document or an error; the only side effect that survives a failure is
// the model registration, which the registry owns.
package document

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"github.com/artpar/docgraph/core/registry"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"
)

// Resolver categories.
const (
	CategoryQuery        = "query"
	CategoryMutation     = "mutation"
	CategorySubscription = "subscription"
)

// Build stages reported to an Observer on failure.
const (
	StageOptions  = "options"
	StageSchema   = "schema"
	StageEnhance  = "enhance"
	StageRegister = "register"
	StageType     = "type"
	StageResolver = "resolver"
)

// TypeOptions configures type generation. A zero Class defaults to
// GraphQLObjectType; a nil Exclude defaults to names starting with "__".
type TypeOptions struct {
	Class   string
	Exclude *regexp.Regexp
}

// Options configures New.
type Options struct {
	// Name is required and unique per registry.
	Name        string
	Description string

	// Schema is the field mapping. Nil means no fields besides _id.
	Schema map[string]schema.Field

	// EnhanceSchema, if set, may mutate the built schema before the model
	// is registered.
	EnhanceSchema func(*schema.Schema) error

	// TypeOptions defaults to DefaultTypeOptions when nil.
	TypeOptions *TypeOptions

	// Nil categories are absent from the built Document.
	Queries       map[string]ResolverFactory
	Mutations     map[string]ResolverFactory
	Subscriptions map[string]ResolverFactory
}

// DefaultTypeOptions returns the type options used when none are given.
func DefaultTypeOptions() TypeOptions {
	return TypeOptions{Class: typegen.ClassObject, Exclude: typegen.DefaultExclude}
}

// Observer is notified of build outcomes.
type Observer interface {
	DocumentBuilt(name string)
	DocumentFailed(name, stage string)
}

// Deps are the collaborators New uses.
type Deps struct {
	Registry *registry.Registry
	Types    *typegen.Generator
	Logger   zerolog.Logger

	// Observer is optional.
	Observer Observer
}

// Document is a built document.
type Document struct {
	Name        string
	Description string
	Schema      *schema.Schema
	Model       *registry.Model
	Type        graphql.Type

	// A nil map means the category was not supplied.
	Queries       Definitions
	Mutations     Definitions
	Subscriptions Definitions
}

// New builds a Document from opts.
func New(opts Options, deps Deps) (*Document, error) {
	doc, stage, err := build(opts, deps)
	if err != nil {
		deps.Logger.Error().
			Err(err).
			Str("document", opts.Name).
			Str("stage", stage).
			Msg("document build failed")
		if deps.Observer != nil {
			deps.Observer.DocumentFailed(opts.Name, stage)
		}
		return nil, err
	}

	deps.Logger.Info().
		Str("document", doc.Name).
		Str("collection", doc.Model.Collection()).
		Int("queries", len(doc.Queries)).
		Int("mutations", len(doc.Mutations)).
		Int("subscriptions", len(doc.Subscriptions)).
		Msg("document built")
	if deps.Observer != nil {
		deps.Observer.DocumentBuilt(doc.Name)
	}
	return doc, nil
}

func build(opts Options, deps Deps) (*Document, string, error) {
	if opts.Name == "" {
		return nil, StageOptions, errors.New("document name is required")
	}
	if deps.Registry == nil {
		return nil, StageOptions, errors.New("document: registry is required")
	}
	if deps.Types == nil {
		return nil, StageOptions, errors.New("document: type generator is required")
	}

	typeOpts := DefaultTypeOptions()
	if opts.TypeOptions != nil {
		if opts.TypeOptions.Class != "" {
			typeOpts.Class = opts.TypeOptions.Class
		}
		if opts.TypeOptions.Exclude != nil {
			typeOpts.Exclude = opts.TypeOptions.Exclude
		}
	}

	s, err := schema.Build(opts.Schema)
	if err != nil {
		return nil, StageSchema, err
	}

	if opts.EnhanceSchema != nil {
		if err := opts.EnhanceSchema(s); err != nil {
			return nil, StageEnhance, fmt.Errorf("enhance schema for %s: %w", opts.Name, err)
		}
	}

	model, err := deps.Registry.Register(opts.Name, s)
	if err != nil {
		return nil, StageRegister, err
	}

	t, err := deps.Types.Generate(typegen.Options{
		Name:        opts.Name,
		Description: opts.Description,
		Class:       typeOpts.Class,
		Schema:      s,
		Exclude:     typeOpts.Exclude,
	})
	if err != nil {
		return nil, StageType, err
	}

	doc := &Document{
		Name:        opts.Name,
		Description: opts.Description,
		Schema:      s,
		Model:       model,
		Type:        t,
	}

	ctx := Context{Type: t, Schema: s, Model: model, Types: deps.Types, Exclude: typeOpts.Exclude}

	for _, c := range []struct {
		category  string
		factories map[string]ResolverFactory
		dst       *Definitions
	}{
		{CategoryQuery, opts.Queries, &doc.Queries},
		{CategoryMutation, opts.Mutations, &doc.Mutations},
		{CategorySubscription, opts.Subscriptions, &doc.Subscriptions},
	} {
		if c.factories == nil {
			continue
		}
		defs, err := buildDefinitions(c.category, c.factories, ctx)
		if err != nil {
			return nil, StageResolver, err
		}
		*c.dst = defs
	}

	return doc, "", nil
}

// buildDefinitions runs each factory in name order.
func buildDefinitions(category string, factories map[string]ResolverFactory, ctx Context) (Definitions, error) {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make(Definitions, len(factories))
	for _, name := range names {
		factory := factories[name]
		if fn, ok := factory.(ResolverFactoryFunc); factory == nil || ok && fn == nil {
			return nil, &ResolverFactoryError{Category: category, Name: name, Err: errors.New("factory is nil")}
		}
		field, err := factory.Build(ctx)
		if err != nil {
			return nil, &ResolverFactoryError{Category: category, Name: name, Err: err}
		}
		if field == nil {
			return nil, &ResolverFactoryError{Category: category, Name: name, Err: errors.New("factory returned no field")}
		}
		if field.Name == "" {
			field.Name = name
		}
		defs[name] = field
	}
	return defs, nil
}
