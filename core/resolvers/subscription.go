package resolvers

import (
	"fmt"

	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/registry"
	"github.com/graphql-go/graphql"
)

// Created returns a factory for a subscription to created documents.
func Created() document.ResolverFactory { return watch(registry.ActionCreated) }

// Updated returns a factory for a subscription to updated documents.
func Updated() document.ResolverFactory { return watch(registry.ActionUpdated) }

// Deleted returns a factory for a subscription to deleted documents.
func Deleted() document.ResolverFactory { return watch(registry.ActionDeleted) }

func watch(action string) document.ResolverFactory {
	return document.ResolverFactoryFunc(func(ctx document.Context) (*graphql.Field, error) {
		t, err := outputType(ctx)
		if err != nil {
			return nil, err
		}
		model := ctx.Model

		return &graphql.Field{
			Type:        graphql.NewNonNull(t),
			Description: fmt.Sprintf("Emits each %s document when it is %s.", model.Name(), action),
			Subscribe: func(p graphql.ResolveParams) (interface{}, error) {
				records := model.Watch(p.Context, action)
				out := make(chan interface{})
				go func() {
					defer close(out)
					for record := range records {
						select {
						case out <- record:
						case <-p.Context.Done():
							return
						}
					}
				}()
				return out, nil
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source, nil
			},
		}, nil
	})
}
