package formatter

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

// FormatDocuments writes {"count": n, "documents": [...]}.
func (f *JSONFormatter) FormatDocuments(w io.Writer, docs []Summary, opts FormatOptions) error {
	return f.encode(w, map[string]any{
		"count":     len(docs),
		"documents": withFields(docs, opts.Fields),
	}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// withFields drops field listings unless requested.
func withFields(docs []Summary, fields bool) []Summary {
	if fields {
		return docs
	}
	out := make([]Summary, len(docs))
	for i, d := range docs {
		d.Fields = nil
		out[i] = d
	}
	return out
}
