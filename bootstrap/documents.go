package bootstrap

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/resolvers"
	"github.com/artpar/docgraph/core/schema"
	"github.com/artpar/docgraph/core/stitch"
	"github.com/graphql-go/graphql"
)

// Build is the result of compiling a set of definitions.
type Build struct {
	Definitions []schema.Definition
	Documents   []*document.Document
	Schema      graphql.Schema
}

// Compile parses the definitions under dir, builds a document for each and
// stitches them into one schema.
func Compile(dir string, deps document.Deps, catalog resolvers.Catalog) (*Build, error) {
	defs, err := schema.ParseDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("no document definitions found in %s", dir)
	}

	docs, err := BuildDocuments(defs, deps, catalog)
	if err != nil {
		return nil, err
	}

	s, err := stitch.Build(docs)
	if err != nil {
		return nil, err
	}

	return &Build{Definitions: defs, Documents: docs, Schema: s}, nil
}

// BuildDocuments builds one document per definition, in order. Every
// failing definition is reported.
func BuildDocuments(defs []schema.Definition, deps document.Deps, catalog resolvers.Catalog) ([]*document.Document, error) {
	var (
		docs []*document.Document
		errs []error
	)
	for _, def := range defs {
		opts, err := DocumentOptions(def, catalog)
		if err != nil {
			errs = append(errs, fmt.Errorf("document %s: %w", def.Name, err))
			continue
		}
		doc, err := document.New(opts, deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("document %s: %w", def.Name, err))
			continue
		}
		docs = append(docs, doc)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return docs, nil
}

// DocumentOptions converts a definition into builder options. Resolver
// kinds are looked up in catalog.
func DocumentOptions(def schema.Definition, catalog resolvers.Catalog) (document.Options, error) {
	opts := document.Options{
		Name:        def.Name,
		Description: def.Description,
		Schema:      def.Schema,
	}

	enhance, err := schema.Chain(def.Enhance...)
	if err != nil {
		return document.Options{}, err
	}
	if enhance != nil {
		opts.EnhanceSchema = enhance
	}

	if def.Type.Class != "" || def.Type.Exclude != "" {
		opts.TypeOptions = &document.TypeOptions{Class: def.Type.Class}
		if def.Type.Exclude != "" {
			re, err := regexp.Compile(def.Type.Exclude)
			if err != nil {
				return document.Options{}, fmt.Errorf("type exclude: %w", err)
			}
			opts.TypeOptions.Exclude = re
		}
	}

	if opts.Queries, err = catalog.Factories(def.Queries); err != nil {
		return document.Options{}, fmt.Errorf("queries: %w", err)
	}
	if opts.Mutations, err = catalog.Factories(def.Mutations); err != nil {
		return document.Options{}, fmt.Errorf("mutations: %w", err)
	}
	if opts.Subscriptions, err = catalog.Factories(def.Subscriptions); err != nil {
		return document.Options{}, fmt.Errorf("subscriptions: %w", err)
	}

	return opts, nil
}
