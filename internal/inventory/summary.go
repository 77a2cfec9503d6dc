package inventory

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apexpos/admin/internal/product"
)

// Summary aggregates the dashboard counters.
type Summary struct {
	Total      int             `json:"total"`
	Active     int             `json:"active"`
	Inactive   int             `json:"inactive"`
	LowStock   int             `json:"lowStock"`
	Expired    int             `json:"expired"`
	NearExpiry int             `json:"nearExpiry"`
	Units      decimal.Decimal `json:"units"`
	StockValue decimal.Decimal `json:"stockValue"`
	Categories []CategoryCount `json:"categories"`
}

// CategoryCount is the number of products filed under one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Summarize walks products once. Stock value is sum(price * quantity)
// computed in decimal so totals do not drift.
func (r Rules) Summarize(products []product.Product, now time.Time) Summary {
	s := Summary{Units: decimal.Zero, StockValue: decimal.Zero}
	byCategory := make(map[string]int)
	for _, p := range products {
		s.Total++
		if p.IsActive() {
			s.Active++
		} else {
			s.Inactive++
		}
		status, ok := r.Expiry(p, now)
		if ok && status.Expired {
			s.Expired++
		}
		if ok && status.NearExpiry {
			s.NearExpiry++
		}
		if r.IsLowStock(p) {
			s.LowStock++
		}
		qty := decimal.NewFromFloat(p.Quantity.Float64())
		s.Units = s.Units.Add(qty)
		s.StockValue = s.StockValue.Add(decimal.NewFromFloat(p.Price.Float64()).Mul(qty))
		category := p.Category
		if category == "" {
			category = "General"
		}
		byCategory[category]++
	}
	s.Categories = make([]CategoryCount, 0, len(byCategory))
	for category, count := range byCategory {
		s.Categories = append(s.Categories, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(s.Categories, func(i, j int) bool {
		if s.Categories[i].Count != s.Categories[j].Count {
			return s.Categories[i].Count > s.Categories[j].Count
		}
		return s.Categories[i].Category < s.Categories[j].Category
	})
	return s
}
