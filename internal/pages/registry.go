// Package pages serves the admin screens. Every list page is described once
// by a PageConfig and handled by the same generic handlers.
package pages

import (
	"strings"

	"github.com/apexpos/admin/internal/export"
	"github.com/apexpos/admin/internal/inventory"
	"github.com/apexpos/admin/internal/product"
	"github.com/apexpos/admin/internal/view"
)

// Key identifies a page in URLs and the JSON view API.
type Key string

const (
	KeyDashboard  Key = "dashboard"
	KeyGrid       Key = "grid"
	KeyProducts   Key = "products"
	KeyCategories Key = "categories"
	KeyExpired    Key = "expired"
	KeyLowStock   Key = "low-stock"
)

// Source selects which derived list a page shows.
type Source int

const (
	SourceFiltered Source = iota
	SourceLowStock
	SourceExpired
)

// Report defaults for products missing location or category data.
const (
	DefaultStore     = inventory.DefaultStore
	DefaultWarehouse = "Main Warehouse"
	DefaultCategory  = "General"
)

// Facet is an equality filter rendered as a dropdown.
type Facet struct {
	Param string
	Label string
	Pick  func(product.Product) string
	Set   func(*inventory.Criteria, string)
}

// PageConfig is the single description of a list page.
type PageConfig struct {
	Key      Key
	Title    string
	Path     string
	Template string
	Fields   []inventory.Field
	Facets   []Facet
	// Cutoff overrides the per-product low-stock threshold when positive.
	Cutoff     float64
	Source     Source
	Export     export.Table
	EditFields []string
	Deletable  bool
}

// Editable reports whether rows carry an edit form.
func (c PageConfig) Editable() bool {
	return len(c.EditFields) > 0
}

// Rules returns base adjusted for this page.
func (c PageConfig) Rules(base inventory.Rules) inventory.Rules {
	if c.Cutoff > 0 {
		return base.WithCutoff(c.Cutoff)
	}
	return base
}

// Exportable reports whether the page offers downloads.
func (c PageConfig) Exportable() bool {
	return len(c.Export.Columns) > 0
}

var (
	categoryFacet = Facet{
		Param: "category",
		Label: "Category",
		Pick:  func(p product.Product) string { return p.Category },
		Set:   func(c *inventory.Criteria, v string) { c.Category = v },
	}
	brandFacet = Facet{
		Param: "brand",
		Label: "Brand",
		Pick:  func(p product.Product) string { return p.Brand },
		Set:   func(c *inventory.Criteria, v string) { c.Brand = v },
	}
	manufacturedFacet = Facet{
		Param: "manufacturedDate",
		Label: "Manufactured Date",
		Pick:  func(p product.Product) string { return p.Warranty.ManufacturedDate },
		Set:   func(c *inventory.Criteria, v string) { c.ManufacturedDate = v },
	}
	statusFacet = Facet{
		Param: "status",
		Label: "Status",
		Pick:  func(p product.Product) string { return p.Status },
		Set:   func(c *inventory.Criteria, v string) { c.Status = v },
	}
)

func col(header string, get func(product.Product) string) export.Column {
	return export.Column{Header: header, Value: get}
}

var (
	skuCol      = col("SKU", func(p product.Product) string { return p.SKU })
	nameCol     = col("Name", export.Text(func(p product.Product) string { return p.ProductName }))
	categoryCol = col("Category", export.TextOr(func(p product.Product) string { return p.Category }, DefaultCategory))
	brandCol    = col("Brand", export.Text(func(p product.Product) string { return p.Brand }))
	storeCol    = col("Store", export.TextOr(func(p product.Product) string { return p.Store }, DefaultStore))
	houseCol    = col("Warehouse", export.TextOr(func(p product.Product) string { return p.Warehouse }, DefaultWarehouse))
	priceCol    = col("Price", func(p product.Product) string { return view.Money(p.Price.Float64()) })
	qtyCol      = col("Qty", func(p product.Product) string { return view.Quantity(p.Quantity.Float64()) })
	statusCol   = col("Status", export.Text(func(p product.Product) string { return p.Status }))
	mfgCol      = col("Manufactured Date", export.Text(func(p product.Product) string { return p.Warranty.ManufacturedDate }))
	expiryCol   = col("Expiry Date", export.Text(func(p product.Product) string { return p.Warranty.ExpiryDate }))
)

func alertCol(rules inventory.Rules) export.Column {
	return col("Qty Alert", func(p product.Product) string {
		return view.Quantity(rules.Threshold(p))
	})
}

// Registry returns the list pages in navigation order. base supplies the
// configured thresholds for columns that display them.
func Registry(base inventory.Rules) []PageConfig {
	searchNameSKU := []inventory.Field{inventory.FieldName, inventory.FieldSKU}
	searchReports := []inventory.Field{inventory.FieldName, inventory.FieldSKU, inventory.FieldStore, inventory.FieldCategory}
	return []PageConfig{
		{
			Key:      KeyGrid,
			Title:    "All Products",
			Path:     "/products/grid",
			Template: "pages/grid.html",
			Fields:   inventory.DefaultFields,
			Facets:   []Facet{statusFacet},
			Cutoff:   5,
			Source:   SourceFiltered,
			Export: export.Table{
				Title:    "Product List",
				Sheet:    "Products",
				FileBase: "Products",
				Columns: []export.Column{
					skuCol, nameCol, categoryCol, brandCol, priceCol, qtyCol, statusCol,
					col("Expiry", export.Text(func(p product.Product) string { return p.Warranty.ExpiryDate })),
				},
			},
		},
		{
			Key:      KeyProducts,
			Title:    "Product List",
			Path:     "/products",
			Template: "pages/list.html",
			Fields:   searchNameSKU,
			Facets:   []Facet{categoryFacet, brandFacet},
			Source:   SourceFiltered,
			Export: export.Table{
				Title:    "Product List",
				Sheet:    "Products",
				FileBase: "Product_List",
				Columns: []export.Column{
					skuCol, nameCol, categoryCol, brandCol, priceCol,
					col("Unit", export.Text(func(p product.Product) string { return p.Unit })),
					qtyCol,
					col("Created By", export.Text(func(p product.Product) string { return p.CreatedBy })),
					statusCol,
				},
			},
			EditFields: []string{"productName", "category", "brand", "price", "quantity", "status"},
			Deletable:  true,
		},
		{
			Key:      KeyCategories,
			Title:    "Category List",
			Path:     "/categories",
			Template: "pages/list.html",
			Fields:   searchNameSKU,
			Facets:   []Facet{categoryFacet, manufacturedFacet},
			Source:   SourceFiltered,
			Export: export.Table{
				Title:    "Category List",
				Sheet:    "Category List",
				FileBase: "Category_List",
				Columns: []export.Column{
					skuCol, nameCol, categoryCol,
					col("Subcategory", export.Text(func(p product.Product) string { return p.Subcategory })),
					statusCol, mfgCol,
				},
			},
			EditFields: []string{"productName", "category", "subcategory", "status", "manufacturedDate"},
			Deletable:  true,
		},
		{
			Key:      KeyExpired,
			Title:    "Expired Products",
			Path:     "/expired",
			Template: "pages/list.html",
			Fields:   searchReports,
			Source:   SourceExpired,
			Export: export.Table{
				Title:    "Expired Products",
				Sheet:    "ExpiredProducts",
				FileBase: "Expired_Products",
				Columns:  []export.Column{skuCol, nameCol, categoryCol, storeCol, houseCol, qtyCol, mfgCol, expiryCol},
			},
			EditFields: []string{"productName", "category", "store", "warehouse", "quantity", "manufacturedDate", "expiryDate"},
			Deletable:  true,
		},
		{
			Key:      KeyLowStock,
			Title:    "Low Stock Products",
			Path:     "/low-stock",
			Template: "pages/list.html",
			Fields:   searchReports,
			Source:   SourceLowStock,
			Export: export.Table{
				Title:    "Low Stock Products",
				Sheet:    "LowStock",
				FileBase: "LowStock_List",
				Columns:  []export.Column{skuCol, nameCol, categoryCol, storeCol, houseCol, qtyCol, alertCol(base)},
			},
			EditFields: []string{"productName", "category", "store", "warehouse", "quantity", "quantityAlert"},
			Deletable:  true,
		},
	}
}

// Lookup finds a page by key in pages.
func Lookup(pages []PageConfig, key string) (PageConfig, bool) {
	for _, p := range pages {
		if string(p.Key) == strings.TrimSpace(key) {
			return p, true
		}
	}
	return PageConfig{}, false
}

// FieldLabel is the form label of an editable field.
func FieldLabel(name string) string {
	if label, ok := fieldLabels[name]; ok {
		return label
	}
	return name
}

var fieldLabels = map[string]string{
	"productName":      "Product Name",
	"sku":              "SKU",
	"category":         "Category",
	"subcategory":      "Subcategory",
	"brand":            "Brand",
	"store":            "Store",
	"warehouse":        "Warehouse",
	"price":            "Price",
	"quantity":         "Quantity",
	"quantityAlert":    "Quantity Alert",
	"status":           "Status",
	"manufacturedDate": "Manufactured Date",
	"expiryDate":       "Expiry Date",
}
