package view

import (
	"html/template"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/apexpos/admin/internal/product"
)

// NoImagePath is shown for products without images.
const NoImagePath = "/static/img/no-image.png"

var printer = message.NewPrinter(language.English)

// Money formats an amount with grouping and two decimals, e.g. "$1,234.50".
func Money(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// Quantity formats a count with grouping and no trailing zeros.
func Quantity(v float64) string {
	if v == float64(int64(v)) {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

// Funcs returns the helpers available to every template.
func Funcs(opts Options) template.FuncMap {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	resolve := opts.ImageURL
	return template.FuncMap{
		"money":    func(n product.Number) string { return Money(n.Float64()) },
		"quantity": func(n product.Number) string { return Quantity(n.Float64()) },
		"na": func(s string) string {
			if strings.TrimSpace(s) == "" {
				return "N/A"
			}
			return s
		},
		"fallback": func(s, fallback string) string {
			if strings.TrimSpace(s) == "" {
				return fallback
			}
			return s
		},
		"formatDate": func(raw string) string {
			if strings.TrimSpace(raw) == "" {
				return "N/A"
			}
			t, err := dateparse.ParseIn(raw, loc)
			if err != nil {
				return raw
			}
			return t.Format("02 Jan 2006")
		},
		"imageURL": func(p product.Product) string {
			img := p.Thumbnail()
			if img == "" {
				return NoImagePath
			}
			if resolve != nil {
				return resolve(img)
			}
			return img
		},
		"resolveImage": func(path string) string {
			if resolve != nil {
				return resolve(path)
			}
			return path
		},
		"badgeClass": func(kind string) string {
			switch kind {
			case "danger":
				return "badge badge-danger"
			case "warning":
				return "badge badge-warning"
			default:
				return "badge badge-info"
			}
		},
		"dict": func(kv ...any) map[string]any {
			out := make(map[string]any, len(kv)/2)
			for i := 0; i+1 < len(kv); i += 2 {
				if key, ok := kv[i].(string); ok {
					out[key] = kv[i+1]
				}
			}
			return out
		},
		"add": func(a, b int) int { return a + b },
		"has": func(list []string, v string) bool { return slices.Contains(list, v) },
	}
}
