package pages

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/apexpos/admin/internal/export"
	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
	"github.com/apexpos/admin/internal/shared"
	"github.com/apexpos/admin/internal/wizard"
	"github.com/apexpos/admin/report"
)

type format string

var emailCheck = validator.New()

const (
	formatXLSX format = "xlsx"
	formatCSV  format = "csv"
	formatPDF  format = "pdf"
)

// listPage is the template data of a list page.
type listPage struct {
	ListView
	Editing     *editState
	FieldLabels map[string]string
	Statuses    []string
	CanEmail    bool
	MailTo      string
}

// IsEditing reports whether the edit form of sku should reopen.
func (l listPage) IsEditing(sku string) bool {
	return l.Editing != nil && l.Editing.SKU == sku
}

// EditValue is the edit form value of field, preferring a rejected submission.
func (l listPage) EditValue(row Row, field string) string {
	if l.IsEditing(row.Product.SKU) {
		if v, ok := l.Editing.Values[field]; ok {
			return v
		}
	}
	return fieldValue(row.Product, field)
}

// EditError is the validation message of a rejected edit.
func (l listPage) EditError(sku, field string) string {
	if !l.IsEditing(sku) {
		return ""
	}
	return l.Editing.Errors[field]
}

func fieldValue(p product.Product, field string) string {
	switch field {
	case "productName":
		return p.ProductName
	case "sku":
		return p.SKU
	case "category":
		return p.Category
	case "subcategory":
		return p.Subcategory
	case "brand":
		return p.Brand
	case "store":
		return p.Store
	case "warehouse":
		return p.Warehouse
	case "price":
		return p.Price.String()
	case "quantity":
		return p.Quantity.String()
	case "quantityAlert":
		return p.QuantityAlert.String()
	case "status":
		return p.Status
	case "manufacturedDate":
		return p.Warranty.ManufacturedDate
	case "expiryDate":
		return p.Warranty.ExpiryDate
	default:
		return ""
	}
}

func (h *Handler) list(cfg PageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := listPage{
			Editing:     popEdit(shared.SessionFromContext(r.Context()), cfg),
			FieldLabels: fieldLabels,
			Statuses:    []string{"Active", "Inactive"},
			CanEmail:    h.exports != nil && cfg.Exportable(),
			MailTo:      h.mailTo,
		}
		products, err := h.catalog.ListProducts(r.Context())
		status := http.StatusOK
		if err != nil {
			h.logger.Error("list products failed", slog.String("page", string(cfg.Key)), slog.Any("error", err))
			data.ListView = BuildView(cfg, h.rules, nil, r.URL.Query(), h.now())
			data.Error = userMessage(err)
			status = http.StatusBadGateway
		} else {
			data.ListView = BuildView(cfg, h.rules, products, r.URL.Query(), h.now())
		}
		h.render(w, r, status, cfg.Template, cfg.Title, data)
	}
}

func (h *Handler) export(cfg PageConfig, f format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := h.catalog.ListProducts(r.Context())
		if err != nil {
			h.logger.Error("export list failed", slog.String("page", string(cfg.Key)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		rows := BuildView(cfg, h.rules, products, r.URL.Query(), h.now()).Products()
		table := cfg.Export

		var buf bytes.Buffer
		var contentType string
		switch f {
		case formatXLSX:
			contentType = export.ContentTypeXLSX
			err = export.WriteXLSX(&buf, table, rows)
		case formatCSV:
			contentType = export.ContentTypeCSV
			err = export.WriteCSV(&buf, table, rows)
		case formatPDF:
			if h.pdf == nil {
				err = report.ErrDisabled
				break
			}
			contentType = export.ContentTypePDF
			var pdf []byte
			pdf, err = export.WritePDF(r.Context(), h.pdf, table, rows)
			buf.Write(pdf)
		}
		if err != nil {
			h.logger.Error("export failed", slog.String("page", string(cfg.Key)), slog.String("format", string(f)), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.Attachment(w, contentType, table.Filename(string(f)))
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}

// emailExport queues the filtered export for delivery by the worker.
func (h *Handler) emailExport(cfg PageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		back := h.returnTo(cfg, r)
		to := strings.TrimSpace(r.PostFormValue("email"))
		if to == "" {
			to = h.mailTo
		}
		if err := emailCheck.Var(to, "required,email"); err != nil {
			h.redirectWithFlash(w, r, back, shared.FlashError, "Please enter a valid email address.")
			return
		}
		query := ""
		if q := r.PostFormValue("return"); q != "" {
			if _, err := url.ParseQuery(q); err == nil {
				query = q
			}
		}
		if err := h.exports.EnqueueExportEmail(r.Context(), string(cfg.Key), query, to); err != nil {
			h.logger.Error("enqueue export email", slog.String("page", string(cfg.Key)), slog.Any("error", err))
			h.redirectWithFlash(w, r, back, shared.FlashError, "The export could not be queued. Please retry.")
			return
		}
		h.redirectWithFlash(w, r, back, shared.FlashSuccess, fmt.Sprintf("%s will be emailed to %s.", cfg.Export.Title, to))
	}
}

func (h *Handler) returnTo(cfg PageConfig, r *http.Request) string {
	if q := r.PostFormValue("return"); q != "" {
		if _, err := url.ParseQuery(q); err == nil {
			return cfg.Path + "?" + q
		}
	}
	return cfg.Path
}

// editActions maps the edit form of cfg onto draft actions.
func editActions(cfg PageConfig, r *http.Request) ([]wizard.Action, map[string]string) {
	values := make(map[string]string, len(cfg.EditFields))
	actions := make([]wizard.Action, 0, len(cfg.EditFields))
	for _, field := range cfg.EditFields {
		if _, ok := r.PostForm[field]; !ok {
			continue
		}
		v := r.PostFormValue(field)
		values[field] = v
		switch field {
		case "manufacturedDate", "expiryDate":
			actions = append(actions, wizard.SetWarranty{Field: field, Value: v})
		default:
			actions = append(actions, wizard.SetField{Name: field, Value: v})
		}
	}
	return actions, values
}

// editErrors keeps the validation messages of the fields cfg lets users edit.
func editErrors(cfg PageConfig, d wizard.Draft) map[string]string {
	var verrs wizard.ValidationErrors
	err := wizard.Validate(d)
	if err == nil || !errors.As(err, &verrs) {
		return nil
	}
	out := map[string]string{}
	for _, field := range cfg.EditFields {
		if msg, ok := verrs[field]; ok {
			out[field] = msg
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (h *Handler) saveRow(cfg PageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sku := chi.URLParam(r, "sku")
		if err := r.ParseForm(); err != nil {
			h.redirectWithFlash(w, r, cfg.Path, shared.FlashError, "The form could not be read.")
			return
		}
		back := h.returnTo(cfg, r)
		actions, values := editActions(cfg, r)
		sess := shared.SessionFromContext(ctx)

		current, err := h.catalog.GetProduct(ctx, sku)
		if err != nil {
			h.logger.Error("load product for edit failed", slog.String("sku", sku), slog.Any("error", err))
			stashEdit(sess, cfg, editState{SKU: sku, Values: values})
			h.redirectWithFlash(w, r, back, shared.FlashError, userMessage(err))
			return
		}
		// modal edits keep the stored barcode
		d, err := wizard.Reducer{}.ApplyAll(wizard.EditDraft(sku, current), actions...)
		if err != nil {
			stashEdit(sess, cfg, editState{SKU: sku, Values: values})
			h.redirectWithFlash(w, r, back, shared.FlashError, userMessage(err))
			return
		}
		if errs := editErrors(cfg, d); errs != nil {
			stashEdit(sess, cfg, editState{SKU: sku, Values: values, Errors: errs})
			h.redirectWithFlash(w, r, back, shared.FlashError, "Please correct the highlighted fields.")
			return
		}
		if err := h.catalog.UpdateProduct(ctx, sku, wizard.Prepared(d)); err != nil {
			h.logger.Error("update product failed", slog.String("sku", sku), slog.Any("error", err))
			stashEdit(sess, cfg, editState{SKU: sku, Values: values})
			h.redirectWithFlash(w, r, back, shared.FlashError, userMessage(err))
			return
		}
		h.record(ctx, "product.update", sku, map[string]any{"page": string(cfg.Key), "fields": keys(values)})
		h.redirectWithFlash(w, r, back, shared.FlashSuccess, "Product updated successfully!")
	}
}

func (h *Handler) deleteRow(cfg PageConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sku := chi.URLParam(r, "sku")
		back := h.returnTo(cfg, r)
		if !strings.EqualFold(r.PostFormValue("confirm"), "yes") {
			h.redirectWithFlash(w, r, back, shared.FlashError, "Deletion was not confirmed.")
			return
		}
		if err := h.catalog.DeleteProduct(ctx, sku); err != nil {
			h.logger.Error("delete product failed", slog.String("sku", sku), slog.Any("error", err))
			h.redirectWithFlash(w, r, back, shared.FlashError, userMessage(err))
			return
		}
		h.record(ctx, "product.delete", sku, map[string]any{"page": string(cfg.Key)})
		h.redirectWithFlash(w, r, back, shared.FlashSuccess, fmt.Sprintf("Product %s deleted.", sku))
	}
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
