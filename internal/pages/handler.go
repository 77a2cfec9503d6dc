package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apexpos/admin/internal/backend"
	"github.com/apexpos/admin/internal/export"
	"github.com/apexpos/admin/internal/inventory"
	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
	"github.com/apexpos/admin/internal/refdata"
	"github.com/apexpos/admin/internal/shared"
	"github.com/apexpos/admin/internal/view"
	"github.com/apexpos/admin/internal/wizard"
)

// Catalog is the product store the pages read and write.
type Catalog interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
	GetProduct(ctx context.Context, sku string) (product.Product, error)
	CreateProduct(ctx context.Context, p product.Product) error
	UpdateProduct(ctx context.Context, sku string, p product.Product) error
	DeleteProduct(ctx context.Context, sku string) error
}

// OptionSource supplies and extends the form dropdowns.
type OptionSource interface {
	Catalog(ctx context.Context) (map[refdata.Kind][]string, error)
	Add(ctx context.Context, kind refdata.Kind, value string) (refdata.Option, error)
}

// Submitter sends a finished wizard draft.
type Submitter interface {
	Submit(ctx context.Context, d wizard.Draft) (wizard.Draft, error)
}

// ExportQueue schedules emailed exports.
type ExportQueue interface {
	EnqueueExportEmail(ctx context.Context, page, query, to string) error
}

// Params groups the handler dependencies.
type Params struct {
	Logger         *slog.Logger
	Templates      *view.Engine
	CSRF           *shared.CSRFManager
	Catalog        Catalog
	Options        OptionSource
	Drafts         wizard.DraftStore
	Submitter      Submitter
	PDF            export.Renderer
	Exports        ExportQueue
	AlertEmail     string
	Audit          *shared.AuditLogger
	Rules          inventory.Rules
	Now            func() time.Time
	MaxUploadBytes int64
}

// Handler serves the dashboard, list pages, exports and the product wizard.
type Handler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
	catalog   Catalog
	options   OptionSource
	drafts    wizard.DraftStore
	submitter Submitter
	pdf       export.Renderer
	exports   ExportQueue
	mailTo    string
	audit     *shared.AuditLogger
	rules     inventory.Rules
	pages     []PageConfig
	now       func() time.Time
	maxUpload int64
}

// NewHandler constructs the handler.
func NewHandler(p Params) *Handler {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.MaxUploadBytes <= 0 {
		p.MaxUploadBytes = 10 << 20
	}
	if p.Rules.Location == nil {
		p.Rules = inventory.DefaultRules()
	}
	return &Handler{
		logger:    p.Logger,
		templates: p.Templates,
		csrf:      p.CSRF,
		catalog:   p.Catalog,
		options:   p.Options,
		drafts:    p.Drafts,
		submitter: p.Submitter,
		pdf:       p.PDF,
		exports:   p.Exports,
		mailTo:    p.AlertEmail,
		audit:     p.Audit,
		rules:     p.Rules,
		pages:     Registry(p.Rules),
		now:       p.Now,
		maxUpload: p.MaxUploadBytes,
	}
}

// MountRoutes registers every page route on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.dashboard)
	r.Post("/shell/toggle", h.toggleShell)
	r.Get("/api/views/{page}", h.apiView)

	newScope := func(*http.Request) scope { return scope{key: "wizard:new", base: "/products/new"} }
	editScope := func(r *http.Request) scope {
		sku := chi.URLParam(r, "sku")
		return scope{key: "wizard:edit:" + sku, sku: sku, base: "/products/" + url.PathEscape(sku) + "/edit"}
	}
	r.Get("/products/new", h.wizardPage(newScope))
	r.Post("/products/new", h.wizardPost(newScope))
	r.Post("/products/new/images", h.stageImages(newScope))
	r.Post("/products/new/images/{index}/delete", h.removeImage(newScope))
	r.Post("/products/new/variants", h.addVariant(newScope))
	r.Get("/products/{sku}/edit", h.wizardPage(editScope))
	r.Post("/products/{sku}/edit", h.wizardPost(editScope))
	r.Post("/products/{sku}/edit/images", h.stageImages(editScope))
	r.Post("/products/{sku}/edit/images/{index}/delete", h.removeImage(editScope))
	r.Post("/products/{sku}/edit/variants", h.addVariant(editScope))
	r.Post("/products/import", h.importProducts)

	for _, cfg := range h.pages {
		r.Get(cfg.Path, h.list(cfg))
		if cfg.Exportable() {
			r.Get(cfg.Path+"/export.xlsx", h.export(cfg, formatXLSX))
			r.Get(cfg.Path+"/export.csv", h.export(cfg, formatCSV))
			r.Get(cfg.Path+"/export.pdf", h.export(cfg, formatPDF))
			if h.exports != nil {
				r.Post(cfg.Path+"/export/email", h.emailExport(cfg))
			}
		}
		if cfg.Editable() {
			r.Post(cfg.Path+"/{sku}", h.saveRow(cfg))
		}
		if cfg.Deletable {
			r.Post(cfg.Path+"/{sku}/delete", h.deleteRow(cfg))
		}
	}
}

// Pages exposes the registry the handler serves.
func (h *Handler) Pages() []PageConfig {
	return h.pages
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   h.csrf.EnsureToken(sess),
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		SidebarOpen: sess.SidebarOpen(),
		Data:        data,
	}
	if err := h.templates.Render(w, status, name, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) record(ctx context.Context, action, sku string, meta map[string]any) {
	if h.audit == nil {
		return
	}
	err := h.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "product",
		EntityID: sku,
		Meta:     meta,
	})
	if err != nil {
		h.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// userMessage turns an error into text fit for a flash alert.
func userMessage(err error) string {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, httpx.ErrNotFound):
		return "The product no longer exists."
	case errors.Is(err, httpx.ErrDuplicate):
		return "A product with this SKU already exists."
	case errors.Is(err, httpx.ErrValidation):
		return "Some values are invalid: " + err.Error()
	case errors.Is(err, httpx.ErrUnsupported):
		return "Only JPEG, PNG and WebP images can be uploaded."
	case errors.Is(err, context.DeadlineExceeded):
		return "The product service did not answer in time. Please retry."
	case errors.As(err, &statusErr):
		return fmt.Sprintf("The product service answered with status %d. Please retry.", statusErr.Code)
	case errors.Is(err, httpx.ErrUpstream):
		return "The product service is unavailable. Please retry."
	default:
		return "Something went wrong. Please retry."
	}
}

func (h *Handler) toggleShell(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	open := true
	if sess != nil {
		open = sess.ToggleSidebar()
	}
	if wantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]bool{"open": open})
		return
	}
	http.Redirect(w, r, backTo(r, "/"), http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// backTo returns the same-origin path the request came from.
func backTo(r *http.Request, fallback string) string {
	if next := r.PostFormValue("next"); strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		return next
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return fallback
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

func (h *Handler) apiView(w http.ResponseWriter, r *http.Request) {
	cfg, ok := Lookup(h.pages, chi.URLParam(r, "page"))
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: page %q", httpx.ErrNotFound, chi.URLParam(r, "page")))
		return
	}
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products failed", slog.String("page", string(cfg.Key)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, BuildView(cfg, h.rules, products, r.URL.Query(), h.now()))
}

// editState carries a rejected edit back to the list page.
type editState struct {
	SKU    string            `json:"sku"`
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
}

func editKey(cfg PageConfig) string {
	return "edit:" + string(cfg.Key)
}

func stashEdit(sess *shared.Session, cfg PageConfig, st editState) {
	if sess == nil {
		return
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return
	}
	sess.Set(editKey(cfg), string(raw))
}

func popEdit(sess *shared.Session, cfg PageConfig) *editState {
	if sess == nil {
		return nil
	}
	raw := sess.Get(editKey(cfg))
	if raw == "" {
		return nil
	}
	sess.Delete(editKey(cfg))
	var st editState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil
	}
	return &st
}
