package pages

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/apexpos/admin/internal/export"
	"github.com/apexpos/admin/internal/shared"
)

// importProducts creates one product per valid row of an uploaded sheet.
// Rows the backend rejects are counted, not retried.
func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	back := backTo(r, "/products")
	if err := h.parseForm(w, r); err != nil {
		h.redirectWithFlash(w, r, back, shared.FlashError, "The upload could not be read. It may be too large.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirectWithFlash(w, r, back, shared.FlashError, "Choose an .xlsx or .csv file to import.")
		return
	}
	defer func() { _ = file.Close() }()

	var result export.ImportResult
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		result, err = export.ReadXLSX(file)
	case ".csv":
		result, err = export.ReadCSV(file)
	default:
		h.redirectWithFlash(w, r, back, shared.FlashError, "Only .xlsx and .csv files can be imported.")
		return
	}
	if err != nil {
		h.logger.Warn("import parse failed", slog.String("file", header.Filename), slog.Any("error", err))
		h.redirectWithFlash(w, r, back, shared.FlashError, userMessage(err))
		return
	}

	created, failed := 0, len(result.Errors)
	for _, p := range result.Products {
		if err := h.catalog.CreateProduct(ctx, p); err != nil {
			failed++
			h.logger.Warn("import row rejected", slog.String("sku", p.SKU), slog.Any("error", err))
			continue
		}
		created++
	}
	for _, rowErr := range result.Errors {
		h.logger.Info("import row skipped", slog.Int("row", rowErr.Row), slog.String("sku", rowErr.SKU), slog.Any("error", rowErr.Err))
	}
	h.record(ctx, "product.import", header.Filename, map[string]any{"created": created, "failed": failed})

	kind := shared.FlashSuccess
	if created == 0 && failed > 0 {
		kind = shared.FlashError
	}
	h.redirectWithFlash(w, r, back, kind, fmt.Sprintf("Imported %d products, %d rows failed.", created, failed))
}
