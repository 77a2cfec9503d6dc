package export

import (
	"encoding/csv"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/apexpos/admin/internal/product"
)

// WriteCSV writes the header and one record per product.
func WriteCSV(w io.Writer, t Table, products []product.Product) error {
	writer := gocsv.NewSafeCSVWriter(csv.NewWriter(w))
	if err := writer.Write(t.Headers()); err != nil {
		return err
	}
	for _, record := range t.Records(products) {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
