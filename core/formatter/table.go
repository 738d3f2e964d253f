package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatDocuments writes one row per document, followed by a field table
// per document when opts.Fields is set.
func (f *TableFormatter) FormatDocuments(w io.Writer, docs []Summary, opts FormatOptions) error {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !opts.NoHeader {
		fmt.Fprintln(tw, "NAME\tTYPE\tCOLLECTION\tQUERIES\tMUTATIONS\tSUBSCRIPTIONS")
	}
	for _, d := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, orDash(d.Type), orDash(d.Collection),
			list(d.Queries), list(d.Mutations), list(d.Subscriptions))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !opts.Fields {
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(w, "\n%s\n", d.Name)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if !opts.NoHeader {
			fmt.Fprintln(tw, "  FIELD\tTYPE\tFLAGS")
		}
		for _, field := range d.Fields {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", field.Name, field.Type, flags(field))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

func flags(f FieldSummary) string {
	var out []string
	if f.Required {
		out = append(out, "required")
	}
	if f.Unique {
		out = append(out, "unique")
	}
	if f.Hidden {
		out = append(out, "hidden")
	}
	return list(out)
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
