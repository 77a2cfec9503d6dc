package pages

import (
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/apexpos/admin/internal/inventory"
	"github.com/apexpos/admin/internal/product"
)

// Row is one displayed product.
type Row struct {
	Product product.Product   `json:"product"`
	Cells   []string          `json:"cells"`
	Badges  []inventory.Badge `json:"badges"`
	Link    string            `json:"link"`
	Expired bool              `json:"expired"`
}

// FacetView is a rendered dropdown.
type FacetView struct {
	Param    string   `json:"param"`
	Label    string   `json:"label"`
	Selected string   `json:"selected"`
	Values   []string `json:"values"`
}

// ListView is everything a list page, its exports and its JSON view share.
type ListView struct {
	Page          PageConfig  `json:"-"`
	Key           Key         `json:"page"`
	Query         string      `json:"query"`
	Facets        []FacetView `json:"facets"`
	Headers       []string    `json:"headers"`
	Rows          []Row       `json:"rows"`
	Total         int         `json:"total"`
	Shown         int         `json:"shown"`
	LowStockCount int         `json:"lowStock"`
	ExpiredCount  int         `json:"expired"`
	Error         string      `json:"error,omitempty"`
	// QueryString carries the current filters into export and retry links.
	QueryString template.URL `json:"-"`
}

// Products returns the displayed products in order.
func (v ListView) Products() []product.Product {
	out := make([]product.Product, 0, len(v.Rows))
	for _, r := range v.Rows {
		out = append(out, r.Product)
	}
	return out
}

// CriteriaFrom reads the search box and the page facets from a query string.
func CriteriaFrom(cfg PageConfig, q url.Values) inventory.Criteria {
	c := inventory.Criteria{
		Query:  strings.TrimSpace(q.Get("q")),
		Fields: cfg.Fields,
	}
	for _, f := range cfg.Facets {
		if v := strings.TrimSpace(q.Get(f.Param)); v != "" {
			f.Set(&c, v)
		}
	}
	return c
}

// BuildView derives the page view from the full catalog.
func BuildView(cfg PageConfig, base inventory.Rules, products []product.Product, q url.Values, now time.Time) ListView {
	rules := cfg.Rules(base)
	criteria := CriteriaFrom(cfg, q)
	derived := rules.Derive(products, criteria, now)

	var shown []product.Product
	switch cfg.Source {
	case SourceLowStock:
		shown = derived.LowStock
	case SourceExpired:
		shown = derived.Expired
	default:
		shown = derived.Filtered
	}

	v := ListView{
		Page:          cfg,
		Key:           cfg.Key,
		Query:         criteria.Query,
		Headers:       cfg.Export.Headers(),
		Total:         len(products),
		Shown:         len(shown),
		LowStockCount: len(derived.LowStock),
		ExpiredCount:  len(derived.Expired),
		QueryString:   template.URL(filterQuery(cfg, q)),
	}
	for _, f := range cfg.Facets {
		v.Facets = append(v.Facets, FacetView{
			Param:    f.Param,
			Label:    f.Label,
			Selected: strings.TrimSpace(q.Get(f.Param)),
			Values:   inventory.Facets(products, f.Pick),
		})
	}
	records := cfg.Export.Records(shown)
	v.Rows = make([]Row, 0, len(shown))
	for i, p := range shown {
		v.Rows = append(v.Rows, Row{
			Product: p,
			Cells:   records[i],
			Badges:  rules.Badges(p, now),
			Link:    rules.CardLink(p, now),
			Expired: rules.IsExpired(p, now),
		})
	}
	return v
}

// filterQuery keeps only the parameters the page understands.
func filterQuery(cfg PageConfig, q url.Values) string {
	out := url.Values{}
	if v := strings.TrimSpace(q.Get("q")); v != "" {
		out.Set("q", v)
	}
	for _, f := range cfg.Facets {
		if v := strings.TrimSpace(q.Get(f.Param)); v != "" {
			out.Set(f.Param, v)
		}
	}
	return out.Encode()
}
