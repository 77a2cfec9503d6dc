package inventory

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/apexpos/admin/internal/product"
)

const (
	// DefaultQuantityAlert applies when a product carries no quantityAlert.
	DefaultQuantityAlert = 10
	// DefaultNearExpiryDays is the window for the "days left" badge.
	DefaultNearExpiryDays = 3
)

// Rules holds the thresholds used to classify products.
type Rules struct {
	DefaultQuantityAlert float64
	NearExpiryDays       int
	Location             *time.Location
	// Cutoff, when positive, replaces the per-product alert threshold.
	Cutoff float64
}

// DefaultRules returns the stock alert of 10, a three day expiry window and UTC.
func DefaultRules() Rules {
	return Rules{
		DefaultQuantityAlert: DefaultQuantityAlert,
		NearExpiryDays:       DefaultNearExpiryDays,
		Location:             time.UTC,
	}
}

// WithCutoff returns a copy that flags low stock at a fixed quantity.
func (r Rules) WithCutoff(cutoff float64) Rules {
	r.Cutoff = cutoff
	return r
}

// Threshold returns the quantity at or below which p counts as low stock.
func (r Rules) Threshold(p product.Product) float64 {
	if r.Cutoff > 0 {
		return r.Cutoff
	}
	return p.QuantityAlert.Or(r.DefaultQuantityAlert)
}

// IsLowStock reports quantity <= threshold. The boundary is inclusive.
func (r Rules) IsLowStock(p product.Product) bool {
	return p.Quantity.Float64() <= r.Threshold(p)
}

// LowStock keeps, in order, the products at or below their threshold.
func (r Rules) LowStock(products []product.Product) []product.Product {
	out := make([]product.Product, 0)
	for _, p := range products {
		if r.IsLowStock(p) {
			out = append(out, p)
		}
	}
	return out
}

// ExpiryStatus describes a parsed warranty expiry date relative to now.
type ExpiryStatus struct {
	ExpiresAt     time.Time
	DaysRemaining int
	Expired       bool
	NearExpiry    bool
}

// Expiry parses p's warranty expiry date. ok is false when the date is empty
// or cannot be parsed; such products are never classified as expired.
func (r Rules) Expiry(p product.Product, now time.Time) (ExpiryStatus, bool) {
	raw := strings.TrimSpace(p.Warranty.ExpiryDate)
	if raw == "" {
		return ExpiryStatus{}, false
	}
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	at, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return ExpiryStatus{}, false
	}
	days := int(math.Ceil(at.Sub(now).Hours() / 24))
	status := ExpiryStatus{
		ExpiresAt:     at,
		DaysRemaining: days,
		Expired:       at.Before(now),
	}
	status.NearExpiry = !status.Expired && days > 0 && days <= r.nearExpiryDays()
	return status, true
}

func (r Rules) nearExpiryDays() int {
	if r.NearExpiryDays <= 0 {
		return DefaultNearExpiryDays
	}
	return r.NearExpiryDays
}

// IsExpired reports whether p's expiry date is strictly before now.
func (r Rules) IsExpired(p product.Product, now time.Time) bool {
	status, ok := r.Expiry(p, now)
	return ok && status.Expired
}

// Expired keeps, in order, the products whose expiry date has passed.
func (r Rules) Expired(products []product.Product, now time.Time) []product.Product {
	out := make([]product.Product, 0)
	for _, p := range products {
		if r.IsExpired(p, now) {
			out = append(out, p)
		}
	}
	return out
}

// NearExpiry keeps the products inside the near-expiry window.
func (r Rules) NearExpiry(products []product.Product, now time.Time) []product.Product {
	out := make([]product.Product, 0)
	for _, p := range products {
		if status, ok := r.Expiry(p, now); ok && status.NearExpiry {
			out = append(out, p)
		}
	}
	return out
}

// Badge is a status pill rendered on a product row or card.
type Badge struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

// Badges returns Expired, Low Stock (only when not expired) and "Nd left"
// for products close to expiry.
func (r Rules) Badges(p product.Product, now time.Time) []Badge {
	badges := make([]Badge, 0, 2)
	status, ok := r.Expiry(p, now)
	expired := ok && status.Expired
	if expired {
		badges = append(badges, Badge{Label: "Expired", Kind: "danger"})
	}
	if !expired && r.IsLowStock(p) {
		badges = append(badges, Badge{Label: "Low Stock", Kind: "warning"})
	}
	if ok && status.NearExpiry {
		badges = append(badges, Badge{Label: strconv.Itoa(status.DaysRemaining) + "d left", Kind: "info"})
	}
	return badges
}

// ExpiredReportPath is where expired product cards lead.
const ExpiredReportPath = "/expired"

// CardLink returns the navigation target of a product card.
func (r Rules) CardLink(p product.Product, now time.Time) string {
	if r.IsExpired(p, now) {
		return ExpiredReportPath
	}
	return "/products/" + url.PathEscape(p.SKU) + "/edit"
}

// Derived bundles a filtered list with the two report views computed from it.
type Derived struct {
	Filtered []product.Product
	LowStock []product.Product
	Expired  []product.Product
}

// Derive filters products by c and classifies the result.
func (r Rules) Derive(products []product.Product, c Criteria, now time.Time) Derived {
	filtered := Apply(products, c)
	return Derived{
		Filtered: filtered,
		LowStock: r.LowStock(filtered),
		Expired:  r.Expired(filtered, now),
	}
}

// LowStock applies DefaultRules.
func LowStock(products []product.Product) []product.Product {
	return DefaultRules().LowStock(products)
}

// Expired applies DefaultRules.
func Expired(products []product.Product, now time.Time) []product.Product {
	return DefaultRules().Expired(products, now)
}
