package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

func lowStockTable() Table {
	return Table{
		Title:    "Low Stock Products",
		FileBase: "LowStock_List",
		Columns: []Column{
			{Header: "SKU", Value: func(p product.Product) string { return p.SKU }},
			{Header: "Product", Value: Text(func(p product.Product) string { return p.ProductName })},
			{Header: "Store", Value: TextOr(func(p product.Product) string { return p.Store }, "Main Store")},
			{Header: "Qty", Value: func(p product.Product) string { return p.Quantity.String() }},
		},
	}
}

func rows() []product.Product {
	return []product.Product{
		{SKU: "A1", ProductName: "Lamp", Store: "Prime Mart", Quantity: 3},
		{SKU: "A2", Quantity: 5},
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "LowStock_List.xlsx", lowStockTable().Filename("xlsx"))
	assert.Equal(t, "Category_List.pdf", Table{Title: "Category List"}.Filename(".pdf"))
}

func readSheet(t *testing.T, data []byte) (string, [][]string) {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	name := f.GetSheetName(0)
	got, err := f.GetRows(name)
	require.NoError(t, err)
	return name, got
}

func TestWriteXLSXRowsMatchView(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, lowStockTable(), rows()))

	sheet, got := readSheet(t, buf.Bytes())
	assert.Equal(t, "Low Stock Products", sheet)
	assert.Equal(t, [][]string{
		{"SKU", "Product", "Store", "Qty"},
		{"A1", "Lamp", "Prime Mart", "3"},
		{"A2", "N/A", "Main Store", "5"},
	}, got)
}

func TestWriteXLSXIsRepeatable(t *testing.T) {
	var first, second bytes.Buffer
	require.NoError(t, WriteXLSX(&first, lowStockTable(), rows()))
	require.NoError(t, WriteXLSX(&second, lowStockTable(), rows()))
	_, a := readSheet(t, first.Bytes())
	_, b := readSheet(t, second.Bytes())
	assert.Equal(t, a, b)
}

func TestWriteXLSXEmptyViewHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, lowStockTable(), nil))
	_, got := readSheet(t, buf.Bytes())
	assert.Len(t, got, 1)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, lowStockTable(), rows()))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"SKU", "Product", "Store", "Qty"}, records[0])
	assert.Equal(t, []string{"A2", "N/A", "Main Store", "5"}, records[2])
}

type fakeRenderer struct {
	html string
	err  error
}

func (f *fakeRenderer) RenderHTML(_ context.Context, html string) ([]byte, error) {
	f.html = html
	return []byte("%PDF-1.4"), f.err
}

func TestWritePDFEscapesCells(t *testing.T) {
	r := &fakeRenderer{}
	products := []product.Product{{SKU: "<b>X</b>", ProductName: "Lamp", Quantity: 1}}
	pdf, err := WritePDF(context.Background(), r, lowStockTable(), products)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(pdf))
	assert.Contains(t, r.html, "<h1>Low Stock Products</h1>")
	assert.Contains(t, r.html, "&lt;b&gt;X&lt;/b&gt;")

	r.err = errors.New("down")
	_, err = WritePDF(context.Background(), r, lowStockTable(), nil)
	assert.Error(t, err)
}

func TestHTMLEmptyView(t *testing.T) {
	html, err := HTML(lowStockTable(), nil)
	require.NoError(t, err)
	assert.Contains(t, html, `colspan="4"`)
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadXLSXNormalisesHeaders(t *testing.T) {
	data := workbook(t, [][]any{
		{"SKU *", "Product Name *", "Category *", "Store", "Warehouse", "Price", "Qty", "Quantity Alert", "Expiry Date"},
		{"PT1", "Desk Lamp", "Electronics", "Prime Mart", "Cool Warehouse", "19.5", "4", "", "2025-01-01"},
		{"", "No Sku", "Electronics", "Prime Mart", "Cool Warehouse", "1", "1"},
	})
	result, err := ReadXLSX(bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	p := result.Products[0]
	assert.Equal(t, "PT1", p.SKU)
	assert.Equal(t, "desk-lamp", p.Slug)
	assert.Equal(t, product.Number(19.5), p.Price)
	assert.Equal(t, product.Number(4), p.Quantity)
	assert.False(t, p.QuantityAlert.Valid)
	assert.Equal(t, product.StatusActive, p.Status)
	assert.Equal(t, product.WarrantyYes, p.Warranty.Warranty)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.ErrorIs(t, result.Errors[0].Err, httpx.ErrValidation)
}

func TestReadCSVAndEmptyFile(t *testing.T) {
	result, err := ReadCSV(strings.NewReader("sku,name,category,store,warehouse,quantity\nB2,Chair,Furniture,Prime Mart,Hub,2\n"))
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, "Chair", result.Products[0].ProductName)

	_, err = ReadCSV(strings.NewReader("sku,name\n"))
	assert.ErrorIs(t, err, ErrEmptySheet)

	_, err = ReadXLSX(strings.NewReader("not a workbook"))
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "productname", normalizeHeader(" Product Name *"))
	assert.Equal(t, "quantity", normalizeHeader("QTY"))
	assert.Equal(t, "expirydate", normalizeHeader("expiry_date"))
}
