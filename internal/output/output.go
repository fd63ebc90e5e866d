// Package output renders kpx results as aligned text tables or JSON, and
// describes the JSON records with JSON Schema.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/invopop/jsonschema"
)

// Table writes tab-aligned columns. Floats are printed with two decimals,
// matching the millimeter precision of the text reports.
type Table struct {
	tw *tabwriter.Writer
}

// NewTable starts a table on w and writes the header row
func NewTable(w io.Writer, headers ...string) *Table {
	t := &Table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	if len(headers) > 0 {
		fmt.Fprintln(t.tw, strings.Join(headers, "\t"))
	}
	return t
}

// Row appends one row
func (t *Table) Row(cells ...any) {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = formatCell(c)
	}
	fmt.Fprintln(t.tw, strings.Join(parts, "\t"))
}

// Flush writes the buffered rows with their final column widths
func (t *Table) Flush() error {
	return t.tw.Flush()
}

func formatCell(c any) string {
	switch v := c.(type) {
	case float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case nil:
		return "-"
	}
	return fmt.Sprint(c)
}

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Schema returns the JSON Schema describing the JSON form of v
func Schema(v any) ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	s := r.Reflect(v)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	return data, nil
}
