package product

import (
	"encoding/json"
	"strings"
)

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"

	ModeSingle   = "single"
	ModeMultiple = "multiple"

	WarrantyYes = "Yes"
	WarrantyNo  = "No"
)

// Product mirrors the backend product document.
type Product struct {
	SKU              string         `json:"sku" validate:"required,routable"`
	ProductName      string         `json:"productName" validate:"required"`
	Slug             string         `json:"slug,omitempty"`
	Barcode          string         `json:"barcode,omitempty"`
	SellingType      string         `json:"sellingType,omitempty"`
	Category         string         `json:"category" validate:"required"`
	Subcategory      string         `json:"subcategory,omitempty"`
	Brand            string         `json:"brand,omitempty"`
	Unit             string         `json:"unit,omitempty"`
	BarcodeSymbology string         `json:"barcodeSymbology,omitempty"`
	Description      string         `json:"description,omitempty"`
	Store            string         `json:"store" validate:"required"`
	Warehouse        string         `json:"warehouse" validate:"required"`
	ProductType      string         `json:"productType,omitempty"`
	Mode             string         `json:"mode,omitempty" validate:"omitempty,oneof=single multiple"`
	Price            Number         `json:"price" validate:"gte=0"`
	Quantity         Number         `json:"quantity" validate:"gte=0"`
	QuantityAlert    OptionalNumber `json:"quantityAlert"`
	TaxType          string         `json:"taxType,omitempty"`
	Tax              Number         `json:"tax" validate:"gte=0"`
	DiscountType     string         `json:"discountType,omitempty"`
	DiscountValue    Number         `json:"discountValue" validate:"gte=0"`
	Status           string         `json:"status,omitempty"`
	CreatedBy        string         `json:"createdBy,omitempty"`
	Images           []string       `json:"images"`
	Warranty         Warranty       `json:"warranty"`
	Variants         []Variant      `json:"variants,omitempty" validate:"dive"`
}

// Warranty is the warranty/custom-fields sub-document.
type Warranty struct {
	Manufacturer     string `json:"manufacturer"`
	ManufacturedDate string `json:"manufacturedDate"`
	ExpiryDate       string `json:"expiryDate"`
	Warranty         string `json:"warranty"`
}

// IsZero reports whether no warranty field has been filled in.
func (w Warranty) IsZero() bool {
	return strings.TrimSpace(w.Manufacturer) == "" &&
		strings.TrimSpace(w.ManufacturedDate) == "" &&
		strings.TrimSpace(w.ExpiryDate) == ""
}

// Variant is one row of a multi-variant product.
type Variant struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	SKU       string `json:"sku"`
	Quantity  Number `json:"quantity" validate:"gte=0"`
	Price     Number `json:"price" validate:"gte=0"`
}

// IsActive compares status case-insensitively.
func (p Product) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(p.Status), StatusActive)
}

// Thumbnail returns the first image path, or "" when there is none.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Clone returns a deep copy so callers may mutate slices freely.
func (p Product) Clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Variants != nil {
		out.Variants = append([]Variant(nil), p.Variants...)
	}
	return out
}

// legacy field names still emitted by older backend builds.
type productAlias Product

type productWire struct {
	productAlias
	Name string  `json:"name"`
	Qty  *Number `json:"qty"`
}

// UnmarshalJSON accepts the canonical document and the older name/qty keys.
func (p *Product) UnmarshalJSON(data []byte) error {
	var wire productWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*p = Product(wire.productAlias)
	if p.ProductName == "" && wire.Name != "" {
		p.ProductName = wire.Name
	}
	if wire.Qty != nil && p.Quantity == 0 {
		p.Quantity = *wire.Qty
	}
	return nil
}
