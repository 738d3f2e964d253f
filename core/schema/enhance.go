package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Enhancer mutates a built schema in place.
type Enhancer func(s *Schema) error

// Timestamp field names added by the timestamps enhancer.
const (
	CreatedAtField = "createdAt"
	UpdatedAtField = "updatedAt"
	DeletedAtField = "deletedAt"
)

var enhancers = map[string]Enhancer{
	"timestamps": Timestamps,
	"softDelete": SoftDelete,
}

// Timestamps adds createdAt and updatedAt fields. Models fill them on write.
func Timestamps(s *Schema) error {
	if err := s.Add(CreatedAtField, Field{Type: FieldTypeTimestamp, Description: "Creation time", Index: true}); err != nil {
		return err
	}
	return s.Add(UpdatedAtField, Field{Type: FieldTypeTimestamp, Description: "Last modification time"})
}

// SoftDelete adds a deletedAt field.
func SoftDelete(s *Schema) error {
	return s.Add(DeletedAtField, Field{Type: FieldTypeTimestamp, Description: "Deletion time", Index: true})
}

// LookupEnhancer returns a named enhancer.
func LookupEnhancer(name string) (Enhancer, bool) {
	e, ok := enhancers[name]
	return e, ok
}

// EnhancerNames lists the registered enhancers.
func EnhancerNames() []string {
	names := make([]string, 0, len(enhancers))
	for name := range enhancers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Chain combines named enhancers into one, applied in order.
func Chain(names ...string) (Enhancer, error) {
	if len(names) == 0 {
		return nil, nil
	}
	chain := make([]Enhancer, 0, len(names))
	for _, name := range names {
		e, ok := LookupEnhancer(name)
		if !ok {
			return nil, fmt.Errorf("unknown enhancer %q (known: %s)", name, strings.Join(EnhancerNames(), ", "))
		}
		chain = append(chain, e)
	}
	return func(s *Schema) error {
		for i, e := range chain {
			if err := e(s); err != nil {
				return fmt.Errorf("enhancer %s: %w", names[i], err)
			}
		}
		return nil
	}, nil
}
