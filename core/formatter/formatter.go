// Package formatter renders document summaries for the command line.
// Formatters convert built documents to table, json or yaml output.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/docgraph/core/document"
	"github.com/artpar/docgraph/core/schema"
)

// Formatter writes document summaries in a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatDocuments writes a list of summaries.
	FormatDocuments(w io.Writer, docs []Summary, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Fields includes one row per schema field.
	Fields bool

	// NoHeader disables the header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (json only).
	Compact bool
}

// Summary describes a built document.
type Summary struct {
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	Collection    string         `json:"collection" yaml:"collection"`
	Type          string         `json:"type" yaml:"type"`
	Fields        []FieldSummary `json:"fields,omitempty" yaml:"fields,omitempty"`
	Queries       []string       `json:"queries" yaml:"queries"`
	Mutations     []string       `json:"mutations" yaml:"mutations"`
	Subscriptions []string       `json:"subscriptions" yaml:"subscriptions"`
}

// FieldSummary describes one schema field.
type FieldSummary struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Unique   bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
	Hidden   bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// Summarize builds summaries for docs, sorted by name.
func Summarize(docs []*document.Document) []Summary {
	out := make([]Summary, 0, len(docs))
	for _, doc := range docs {
		s := Summary{
			Name:          doc.Name,
			Description:   doc.Description,
			Queries:       doc.Queries.Names(),
			Mutations:     doc.Mutations.Names(),
			Subscriptions: doc.Subscriptions.Names(),
		}
		if doc.Model != nil {
			s.Collection = doc.Model.Collection()
		}
		if doc.Type != nil {
			s.Type = doc.Type.Name()
		}
		if doc.Schema != nil {
			for _, f := range doc.Schema.Fields() {
				s.Fields = append(s.Fields, FieldSummary{
					Name:     f.Name,
					Type:     string(f.Type),
					Required: f.Required,
					Unique:   f.Unique,
					Hidden:   f.Internal || f.Type == schema.FieldTypeSecret,
				})
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatters[r.defaultFmt]
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry holds the table, json and yaml formatters.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(NewTableFormatter())
	DefaultRegistry.Register(NewJSONFormatter())
	DefaultRegistry.Register(NewYAMLFormatter())
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
