// Package inventory derives the report views shown by the admin pages from
// the product list: text search, facet filters, low-stock and expiry
// classification, badges and dashboard totals. Every function here is pure
// and runs in a single pass over its input.
package inventory

import (
	"strings"

	"github.com/apexpos/admin/internal/product"
)

// Field names a product attribute the free-text query can match.
type Field string

const (
	FieldName     Field = "name"
	FieldSKU      Field = "sku"
	FieldCategory Field = "category"
	FieldBrand    Field = "brand"
	FieldStore    Field = "store"
)

// DefaultStore is shown, and searched, for products without a store.
const DefaultStore = "Main Store"

// DefaultFields are searched when a page does not narrow the set.
var DefaultFields = []Field{FieldName, FieldSKU, FieldCategory, FieldBrand}

func (f Field) value(p product.Product) string {
	switch f {
	case FieldName:
		return p.ProductName
	case FieldSKU:
		return p.SKU
	case FieldCategory:
		return p.Category
	case FieldBrand:
		return p.Brand
	case FieldStore:
		if strings.TrimSpace(p.Store) == "" {
			return DefaultStore
		}
		return p.Store
	default:
		return ""
	}
}

// Filter keeps, in order, the products whose name, sku, category or brand
// contains q case-insensitively. An empty query returns products as is.
func Filter(products []product.Product, q string) []product.Product {
	return FilterFields(products, q, DefaultFields)
}

// FilterFields is Filter over an explicit field set.
func FilterFields(products []product.Product, q string, fields []Field) []product.Product {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return products
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}
	out := make([]product.Product, 0, len(products))
	for _, p := range products {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f.value(p)), needle) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Criteria combines the free-text query with the per-page facets. Empty
// facets do not filter.
type Criteria struct {
	Query            string
	Fields           []Field
	Category         string
	Brand            string
	Status           string
	ManufacturedDate string
}

// IsZero reports whether no filter is set.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Query) == "" && c.Category == "" && c.Brand == "" &&
		c.Status == "" && c.ManufacturedDate == ""
}

// Apply runs the query and then the case-insensitive facet equality checks.
func Apply(products []product.Product, c Criteria) []product.Product {
	filtered := FilterFields(products, c.Query, c.Fields)
	if c.Category == "" && c.Brand == "" && c.Status == "" && c.ManufacturedDate == "" {
		return filtered
	}
	out := make([]product.Product, 0, len(filtered))
	for _, p := range filtered {
		if c.Category != "" && !strings.EqualFold(p.Category, c.Category) {
			continue
		}
		if c.Brand != "" && !strings.EqualFold(p.Brand, c.Brand) {
			continue
		}
		if c.Status != "" && !strings.EqualFold(strings.TrimSpace(p.Status), c.Status) {
			continue
		}
		if c.ManufacturedDate != "" && !strings.EqualFold(p.Warranty.ManufacturedDate, c.ManufacturedDate) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Facets lists the distinct non-empty values of a product attribute in
// first-seen order, used to populate filter dropdowns.
func Facets(products []product.Product, pick func(product.Product) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, p := range products {
		v := strings.TrimSpace(pick(p))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}
