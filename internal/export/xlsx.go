package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/apexpos/admin/internal/product"
)

// WriteXLSX writes a single-sheet workbook with a styled header row.
func WriteXLSX(w io.Writer, t Table, products []product.Product) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := t.sheetName()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("export: xlsx sheet: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: t.Title, Creator: "ApexPOS"}); err != nil {
		return fmt.Errorf("export: xlsx props: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"7C3AED"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("export: xlsx style: %w", err)
	}

	for i, header := range t.Headers() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, 20); err != nil {
			return err
		}
	}

	for r, record := range t.Records(products) {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("export: xlsx row %d: %w", r+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: xlsx write: %w", err)
	}
	return nil
}
