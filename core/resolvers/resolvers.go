// Package resolvers provides built-in resolver factories backed by the
// document model: list, get, count, create, update and delete fields plus
// created, updated and deleted subscriptions.
package resolvers

import (
	"errors"
	"fmt"

	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/storage"
	"github.com/artpar/docgraph/core/typegen"
	"github.com/graphql-go/graphql"
)

// Argument names used by the built-in fields.
const (
	ArgLimit   = "limit"
	ArgOffset  = "offset"
	ArgOrderBy = "orderBy"
	ArgDesc    = "desc"
	ArgWhere   = "where"
)

// List returns a factory for a paginated list query.
func List() document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		t, err := outputType(ctx)
		if err != nil {
			return nil, err
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t))),
			Description: fmt.Sprintf("List %s documents.", model.Name()),
			Args: graphql.FieldConfigArgument{
				ArgLimit:   {Type: graphql.Int, Description: "Maximum number of documents."},
				ArgOffset:  {Type: graphql.Int, Description: "Number of documents to skip."},
				ArgOrderBy: {Type: graphql.String, Description: "Field to sort by."},
				ArgDesc:    {Type: graphql.Boolean, Description: "Sort descending."},
				ArgWhere:   {Type: ctx.Types.JSON(), Description: "Field equality filters."},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				filters, err := whereArg(p.Args, model.Schema())
				if err != nil {
					return nil, err
				}
				q := storage.Query{Filters: filters}
				if v, ok := p.Args[ArgLimit].(int); ok {
					q.Limit = v
				}
				if v, ok := p.Args[ArgOffset].(int); ok {
					q.Offset = v
				}
				if v, ok := p.Args[ArgOrderBy].(string); ok {
					q.OrderBy = v
				}
				if v, ok := p.Args[ArgDesc].(bool); ok {
					q.Desc = v
				}
				return model.Find(p.Context, q)
			},
		}, nil
	})
}

// Get returns a factory for a lookup by _id. Missing documents resolve
// to null.
func Get() document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		t, err := outputType(ctx)
		if err != nil {
			return nil, err
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        t,
			Description: fmt.Sprintf("Get a %s by id.", model.Name()),
			Args:        idArgs(),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				record, err := model.FindByID(p.Context, idArg(p.Args))
				if errors.Is(err, storage.ErrNotFound) {
					return nil, nil
				}
				if err != nil {
					return nil, err
				}
				return record, nil
			},
		}, nil
	})
}

// Count returns a factory for a document count query.
func Count() document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		if ctx.Model == nil || ctx.Types == nil {
			return nil, errors.New("model and type generator are required")
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        graphql.NewNonNull(graphql.Int),
			Description: fmt.Sprintf("Count %s documents.", model.Name()),
			Args: graphql.FieldConfigArgument{
				ArgWhere: {Type: ctx.Types.JSON(), Description: "Field equality filters."},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				filters, err := whereArg(p.Args, model.Schema())
				if err != nil {
					return nil, err
				}
				return model.Count(p.Context, filters)
			},
		}, nil
	})
}

// Create returns a factory for a create mutation. Arguments are the
// schema fields.
func Create() document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		t, err := outputType(ctx)
		if err != nil {
			return nil, err
		}
		args, err := ctx.Types.Arguments(argOptions(ctx), typegen.ModeCreate)
		if err != nil {
			return nil, err
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        graphql.NewNonNull(t),
			Description: fmt.Sprintf("Create a %s.", model.Name()),
			Args:        args,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return model.Create(p.Context, p.Args)
			},
		}, nil
	})
}

// Update returns a factory for an update mutation taking _id and the
// fields to change.
func Update() document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		t, err := outputType(ctx)
		if err != nil {
			return nil, err
		}
		args, err := ctx.Types.Arguments(argOptions(ctx), typegen.ModeUpdate)
		if err != nil {
			return nil, err
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        t,
			Description: fmt.Sprintf("Update a %s.", model.Name()),
			Args:        args,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				set := make(map[string]any, len(p.Args))
				for k, v := range p.Args {
					if k != schema.IDField {
						set[k] = v
					}
				}
				return model.Update(p.Context, idArg(p.Args), set)
			},
		}, nil
	})
}

// Delete returns a factory for a delete mutation. It resolves to the
// deleted document.
func Delete() document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		t, err := outputType(ctx)
		if err != nil {
			return nil, err
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        t,
			Description: fmt.Sprintf("Delete a %s.", model.Name()),
			Args:        idArgs(),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return model.Delete(p.Context, idArg(p.Args))
			},
		}, nil
	})
}

// outputType returns the document type if it is an object type.
func outputType(ctx document.Context) (*graphql.Object, error) {
	if ctx.Model == nil {
		return nil, errors.New("model is required")
	}
	if ctx.Types == nil {
		return nil, errors.New("type generator is required")
	}
	switch t := ctx.Type.(type) {
	case *graphql.Object:
		return t, nil
	default:
		return nil, fmt.Errorf("type %v is not an object type", ctx.Type)
	}
}

func argOptions(ctx document.Context) typegen.Options {
	return typegen.Options{
		Name:    ctx.Type.Name(),
		Schema:  ctx.Schema,
		Exclude: ctx.Exclude,
	}
}

func idArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		schema.IDField: {Type: graphql.NewNonNull(graphql.ID)},
	}
}

func idArg(args map[string]interface{}) string {
	id, _ := args[schema.IDField].(string)
	return id
}

// whereArg reads the equality filters. Hidden fields cannot be filtered
// on, since that would reveal their values one guess at a time.
func whereArg(args map[string]interface{}, s *schema.Schema) (map[string]any, error) {
	raw, ok := args[ArgWhere]
	if !ok || raw == nil {
		return nil, nil
	}
	filters, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s must be an object", ArgWhere)
	}
	for name, v := range filters {
		if f, ok := s.Field(name); ok && f.IsInternal() {
			return nil, fmt.Errorf("%s: cannot filter on field %q", ArgWhere, name)
		}
		switch v.(type) {
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("%s: field %q takes a single value", ArgWhere, name)
		}
	}
	return filters, nil
}
