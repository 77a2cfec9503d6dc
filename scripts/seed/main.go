package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/apexpos/admin/internal/backend"
	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

// seed loads a demo catalog into the product backend so every list page has
// rows: one low stock item, one expired item and one expiring soon.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	baseURL := getenv("BACKEND_URL", "http://127.0.0.1:5000")
	client := backend.NewClient(baseURL, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	today := time.Now()
	created, skipped := 0, 0
	for _, p := range demoProducts(today) {
		err := client.CreateProduct(ctx, p)
		switch {
		case err == nil:
			created++
		case errors.Is(err, httpx.ErrDuplicate):
			skipped++
		default:
			logger.Error("seed product", slog.String("sku", p.SKU), slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("seed complete", slog.String("backend", baseURL), slog.Int("created", created), slog.Int("skipped", skipped))
}

func demoProducts(today time.Time) []product.Product {
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format("2006-01-02") }
	base := func(sku, name, category, brand string, price, qty float64) product.Product {
		return product.Product{
			SKU:         sku,
			ProductName: name,
			Slug:        product.Slug(name),
			Barcode:     product.Barcode(name, len(sku)*7919),
			SellingType: "POS",
			Category:    category,
			Brand:       brand,
			Unit:        "Pcs",
			Store:       "Electro Mart",
			Warehouse:   "Quaint Warehouse",
			ProductType: "Physical",
			Mode:        "single",
			Price:       product.Number(price),
			Quantity:    product.Number(qty),
			Status:      "Active",
			CreatedBy:   "seed",
			Images:      []string{},
		}
	}
	laptop := base("PT001", "Lenovo IdeaPad 3", "Computer", "Lenovo", 600, 100)
	laptop.Subcategory = "Laptop"
	shoes := base("PT002", "Nike Jordan", "Shoe", "Nike", 110, 4)
	shoes.Subcategory = "Sneakers"
	shoes.QuantityAlert = product.Some(5)
	watch := base("PT003", "Apple Series 5 Watch", "Electronics", "Apple", 120, 30)
	watch.Subcategory = "Wearables"
	watch.Warranty = product.Warranty{Manufacturer: "Apple", ManufacturedDate: day(-400), ExpiryDate: day(-2), Warranty: "Yes"}
	lotion := base("PT004", "Body Lotion", "Cosmetic", "Amazon", 15, 60)
	lotion.Unit = "bx"
	lotion.Warranty = product.Warranty{Manufacturer: "Amazon", ManufacturedDate: day(-90), ExpiryDate: day(2), Warranty: "No"}
	return []product.Product{laptop, shoes, watch, lotion}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
