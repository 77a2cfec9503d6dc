// Package export turns a derived product view into downloadable files.
package export

import (
	"strings"

	"github.com/apexpos/admin/internal/product"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypePDF  = "application/pdf"
)

// Column is one exported field.
type Column struct {
	Header string
	Value  func(product.Product) string
}

// Table describes an export: its title, sheet and file naming, and columns.
type Table struct {
	Title    string
	Sheet    string
	FileBase string
	Columns  []Column
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, c.Header)
	}
	return out
}

// Records renders one row per product.
func (t Table) Records(products []product.Product) [][]string {
	out := make([][]string, 0, len(products))
	for _, p := range products {
		row := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			row = append(row, c.Value(p))
		}
		out = append(out, row)
	}
	return out
}

// Filename returns FileBase with ext, e.g. "LowStock_List.xlsx".
func (t Table) Filename(ext string) string {
	base := t.FileBase
	if base == "" {
		base = strings.ReplaceAll(strings.TrimSpace(t.Title), " ", "_")
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}

func (t Table) sheetName() string {
	name := t.Sheet
	if name == "" {
		name = t.Title
	}
	if name == "" {
		name = "Sheet1"
	}
	// Excel caps sheet names at 31 characters.
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// Text returns a Value func for a string field, substituting "N/A" for blanks.
func Text(get func(product.Product) string) func(product.Product) string {
	return func(p product.Product) string {
		if v := strings.TrimSpace(get(p)); v != "" {
			return v
		}
		return "N/A"
	}
}

// TextOr is Text with a custom fallback.
func TextOr(get func(product.Product) string, fallback string) func(product.Product) string {
	return func(p product.Product) string {
		if v := strings.TrimSpace(get(p)); v != "" {
			return v
		}
		return fallback
	}
}
