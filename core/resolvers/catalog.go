package resolvers

import (
	"fmt"
	"sort"

	"github.com/artpar/docgraph/core/document"
)

// Catalog maps resolver kinds, as written in definition files, to
// factories.
type Catalog map[string]document.ResolverFactory

// DefaultCatalog returns the built-in resolver kinds.
func DefaultCatalog() Catalog {
	return Catalog{
		"list":    List(),
		"get":     Get(),
		"count":   Count(),
		"create":  Create(),
		"update":  Update(),
		"delete":  Delete(),
		"created": Created(),
		"updated": Updated(),
		"deleted": Deleted(),
	}
}

// Kinds returns the catalog kinds, sorted.
func (c Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c))
	for k := range c {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Lookup returns the factory for kind.
func (c Catalog) Lookup(kind string) (document.ResolverFactory, error) {
	f, ok := c[kind]
	if !ok {
		return nil, fmt.Errorf("unknown resolver kind %q", kind)
	}
	return f, nil
}

// Factories maps resolver names to factories by kind. A nil mapping
// yields nil so that absent categories stay absent.
func (c Catalog) Factories(kinds map[string]string) (map[string]document.ResolverFactory, error) {
	if kinds == nil {
		return nil, nil
	}
	out := make(map[string]document.ResolverFactory, len(kinds))
	for name, kind := range kinds {
		f, err := c.Lookup(kind)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}
