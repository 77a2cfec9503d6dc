package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

// ErrEmptySheet is returned when an import file has no data rows.
var ErrEmptySheet = fmt.Errorf("%w: import file has no rows", httpx.ErrValidation)

// importRow holds one sheet row before lenient conversion. Tags are the
// normalised header names.
type importRow struct {
	SKU              string `csv:"sku"`
	ProductName      string `csv:"productname"`
	Category         string `csv:"category"`
	Subcategory      string `csv:"subcategory"`
	Brand            string `csv:"brand"`
	Unit             string `csv:"unit"`
	Store            string `csv:"store"`
	Warehouse        string `csv:"warehouse"`
	SellingType      string `csv:"sellingtype"`
	ProductType      string `csv:"producttype"`
	BarcodeSymbology string `csv:"barcodesymbology"`
	Description      string `csv:"description"`
	Price            string `csv:"price"`
	Quantity         string `csv:"quantity"`
	QuantityAlert    string `csv:"quantityalert"`
	TaxType          string `csv:"taxtype"`
	Tax              string `csv:"tax"`
	DiscountType     string `csv:"discounttype"`
	DiscountValue    string `csv:"discountvalue"`
	Status           string `csv:"status"`
	Manufacturer     string `csv:"manufacturer"`
	ManufacturedDate string `csv:"manufactureddate"`
	ExpiryDate       string `csv:"expirydate"`
}

var headerAliases = map[string]string{
	"name":      "productname",
	"product":   "productname",
	"qty":       "quantity",
	"alert":     "quantityalert",
	"discount":  "discountvalue",
	"symbology": "barcodesymbology",
}

// normalizeHeader lowercases, strips the required-column marker and drops
// separators, so "Product Name *" becomes "productname".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSpace(strings.TrimSuffix(h, "*"))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	return h
}

// ImportError reports one rejected row; Row is 1-based and counts the header.
type ImportError struct {
	Row int
	SKU string
	Err error
}

func (e ImportError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.SKU, e.Err)
}

// ImportResult carries the valid products and the rejected rows.
type ImportResult struct {
	Products []product.Product
	Errors   []ImportError
}

// ReadXLSX parses the first sheet of an uploaded workbook.
func ReadXLSX(r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: open workbook: %v", httpx.ErrValidation, err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return ImportResult{}, fmt.Errorf("export: read sheet: %w", err)
	}
	return decode(&sliceReader{rows: rows})
}

// ReadCSV parses an uploaded CSV file with the same headers as ReadXLSX.
func ReadCSV(r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: read csv: %v", httpx.ErrValidation, err)
	}
	return decode(&sliceReader{rows: rows})
}

func decode(in *sliceReader) (ImportResult, error) {
	if len(in.rows) < 2 {
		return ImportResult{}, ErrEmptySheet
	}
	width := len(in.rows[0])
	for i, h := range in.rows[0] {
		in.rows[0][i] = normalizeHeader(h)
	}
	// excelize trims trailing empty cells, gocsv wants rectangular rows.
	for i, row := range in.rows {
		for len(row) < width {
			row = append(row, "")
		}
		in.rows[i] = row[:width]
	}

	var raw []importRow
	if err := gocsv.UnmarshalCSV(in, &raw); err != nil {
		return ImportResult{}, fmt.Errorf("%w: decode rows: %v", httpx.ErrValidation, err)
	}

	var result ImportResult
	for i, row := range raw {
		p := row.product()
		if err := product.Validate(p); err != nil {
			result.Errors = append(result.Errors, ImportError{Row: i + 2, SKU: p.SKU, Err: err})
			continue
		}
		result.Products = append(result.Products, p)
	}
	return result, nil
}

func (r importRow) product() product.Product {
	name := strings.TrimSpace(r.ProductName)
	p := product.Product{
		SKU:              strings.TrimSpace(r.SKU),
		ProductName:      name,
		Slug:             product.Slug(name),
		Category:         strings.TrimSpace(r.Category),
		Subcategory:      strings.TrimSpace(r.Subcategory),
		Brand:            strings.TrimSpace(r.Brand),
		Unit:             strings.TrimSpace(r.Unit),
		Store:            strings.TrimSpace(r.Store),
		Warehouse:        strings.TrimSpace(r.Warehouse),
		SellingType:      strings.TrimSpace(r.SellingType),
		ProductType:      strings.TrimSpace(r.ProductType),
		BarcodeSymbology: strings.TrimSpace(r.BarcodeSymbology),
		Description:      r.Description,
		Mode:             product.ModeSingle,
		Price:            product.ParseNumber(r.Price),
		Quantity:         product.ParseNumber(r.Quantity),
		QuantityAlert:    product.ParseOptionalNumber(r.QuantityAlert),
		TaxType:          strings.TrimSpace(r.TaxType),
		Tax:              product.ParseNumber(r.Tax),
		DiscountType:     strings.TrimSpace(r.DiscountType),
		DiscountValue:    product.ParseNumber(r.DiscountValue),
		Status:           strings.TrimSpace(r.Status),
		Images:           []string{},
		Warranty: product.Warranty{
			Manufacturer:     strings.TrimSpace(r.Manufacturer),
			ManufacturedDate: strings.TrimSpace(r.ManufacturedDate),
			ExpiryDate:       strings.TrimSpace(r.ExpiryDate),
			Warranty:         product.WarrantyNo,
		},
	}
	if p.Status == "" {
		p.Status = product.StatusActive
	}
	if !p.Warranty.IsZero() {
		p.Warranty.Warranty = product.WarrantyYes
	}
	return p
}

// sliceReader feeds pre-read rows to gocsv.
type sliceReader struct {
	rows [][]string
	pos  int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceReader) ReadAll() ([][]string, error) {
	out := s.rows[s.pos:]
	s.pos = len(s.rows)
	return out, nil
}
