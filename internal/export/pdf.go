package export

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/apexpos/admin/internal/product"
)

// Renderer converts an HTML document into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var pdfTemplate = template.Must(template.New("table").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;font-size:11px;margin:24px}
h1{font-size:18px;margin:0 0 12px}
table{border-collapse:collapse;width:100%}
th{background:#7c3aed;color:#fff;text-align:left}
th,td{border:1px solid #d4d4d8;padding:4px 6px}
tr:nth-child(even) td{background:#f4f4f5}
</style></head><body>
<h1>{{.Title}}</h1>
<table><thead><tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{else}}<tr><td colspan="{{len .Headers}}">No records</td></tr>{{end}}</tbody>
</table></body></html>`))

// HTML renders the printable table document.
func HTML(t Table, products []product.Product) (string, error) {
	var buf bytes.Buffer
	err := pdfTemplate.Execute(&buf, struct {
		Title   string
		Headers []string
		Rows    [][]string
	}{Title: t.Title, Headers: t.Headers(), Rows: t.Records(products)})
	if err != nil {
		return "", fmt.Errorf("export: pdf html: %w", err)
	}
	return buf.String(), nil
}

// WritePDF renders the table through r and returns the document.
func WritePDF(ctx context.Context, r Renderer, t Table, products []product.Product) ([]byte, error) {
	html, err := HTML(t, products)
	if err != nil {
		return nil, err
	}
	pdf, err := r.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("export: pdf render: %w", err)
	}
	return pdf, nil
}
