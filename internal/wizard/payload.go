package wizard

import (
	"encoding/json"
	"strings"

	"github.com/apexpos/admin/internal/product"
)

// Prepared returns the product exactly as it will be sent.
func Prepared(d Draft) product.Product {
	p := d.Product.Clone()
	p.SKU = strings.TrimSpace(p.SKU)
	if d.IsEdit() {
		p.SKU = d.Editing
	}
	p.ProductName = strings.TrimSpace(p.ProductName)
	if p.Slug == "" {
		p.Slug = product.Slug(p.ProductName)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Mode != product.ModeMultiple {
		p.Variants = nil
	}
	if p.Status == "" {
		p.Status = product.StatusActive
	}
	return p
}

// Payload encodes the request body. Unchanged drafts encode identically.
func Payload(d Draft) ([]byte, error) {
	return json.Marshal(Prepared(d))
}
