// Package stitch merges built documents into one executable GraphQL schema.
package stitch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artpar/docgraph/core/document"
	"github.com/graphql-go/graphql"
)

// Root type names.
const (
	QueryType        = "Query"
	MutationType     = "Mutation"
	SubscriptionType = "Subscription"
)

// DocumentsField is the query added when no document defines one.
const DocumentsField = "_documents"

// ConflictError reports root fields claimed by more than one document.
type ConflictError struct {
	Conflicts []Conflict
}

// Conflict is one root field claimed twice.
type Conflict struct {
	Category  string
	Field     string
	Documents []string
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	msgs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		msgs[i] = fmt.Sprintf("%s field %q defined by %s", c.Category, c.Field, strings.Join(c.Documents, ", "))
	}
	return fmt.Sprintf("root field conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Build stitches the definitions of docs into a schema. Document types
// are always part of the schema even when no root field returns them.
func Build(docs []*document.Document) (graphql.Schema, error) {
	queries := newRoot(document.CategoryQuery)
	mutations := newRoot(document.CategoryMutation)
	subscriptions := newRoot(document.CategorySubscription)

	var types []graphql.Type
	for _, doc := range docs {
		queries.add(doc.Name, doc.Queries)
		mutations.add(doc.Name, doc.Mutations)
		subscriptions.add(doc.Name, doc.Subscriptions)

		if obj, ok := doc.Type.(*graphql.Object); ok {
			types = append(types, obj)
		}
	}

	var conflicts []Conflict
	for _, r := range []*root{queries, mutations, subscriptions} {
		conflicts = append(conflicts, r.conflicts()...)
	}
	if len(conflicts) > 0 {
		return graphql.Schema{}, &ConflictError{Conflicts: conflicts}
	}

	if len(queries.fields) == 0 {
		names := make([]string, len(docs))
		for i, doc := range docs {
			names[i] = doc.Name
		}
		sort.Strings(names)
		queries.fields[DocumentsField] = &graphql.Field{
			Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
			Description: "Names of the documents served by this schema.",
			Resolve: func(graphql.ResolveParams) (interface{}, error) {
				return names, nil
			},
		}
	}

	config := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: QueryType, Fields: queries.fields}),
		Types: types,
	}
	if len(mutations.fields) > 0 {
		config.Mutation = graphql.NewObject(graphql.ObjectConfig{Name: MutationType, Fields: mutations.fields})
	}
	if len(subscriptions.fields) > 0 {
		config.Subscription = graphql.NewObject(graphql.ObjectConfig{Name: SubscriptionType, Fields: subscriptions.fields})
	}

	s, err := graphql.NewSchema(config)
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("build schema: %w", err)
	}
	return s, nil
}

type root struct {
	category string
	fields   graphql.Fields
	owners   map[string][]string
}

func newRoot(category string) *root {
	return &root{
		category: category,
		fields:   graphql.Fields{},
		owners:   make(map[string][]string),
	}
}

func (r *root) add(doc string, defs document.Definitions) {
	for _, name := range defs.Names() {
		r.owners[name] = append(r.owners[name], doc)
		r.fields[name] = defs[name]
	}
}

func (r *root) conflicts() []Conflict {
	var out []Conflict
	names := make([]string, 0, len(r.owners))
	for name := range r.owners {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if owners := r.owners[name]; len(owners) > 1 {
			out = append(out, Conflict{Category: r.category, Field: name, Documents: owners})
		}
	}
	return out
}
