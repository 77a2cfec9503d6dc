package pages

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
	"github.com/apexpos/admin/internal/refdata"
	"github.com/apexpos/admin/internal/shared"
	"github.com/apexpos/admin/internal/wizard"
)

// scope ties a wizard URL to the session key of its draft.
type scope struct {
	key  string
	sku  string
	base string
}

// wizardFields are the top-level product inputs of the form, in form order.
var wizardFields = []string{
	"store", "warehouse", "productName", "slug", "sku", "sellingType",
	"category", "subcategory", "brand", "unit", "barcodeSymbology", "barcode",
	"description", "productType", "price", "quantity", "quantityAlert",
	"taxType", "tax", "discountType", "discountValue", "status", "createdBy",
}

var warrantyFields = []string{"manufacturer", "manufacturedDate", "expiryDate", "warranty"}

// optionFields maps an extendable option list onto the input it fills.
var optionFields = map[refdata.Kind]string{
	refdata.KindCategory:    "category",
	refdata.KindSubcategory: "subcategory",
	refdata.KindBrand:       "brand",
	refdata.KindUnit:        "unit",
	refdata.KindStore:       "store",
	refdata.KindWarehouse:   "warehouse",
	refdata.KindSymbology:   "barcodeSymbology",
}

var variantInput = regexp.MustCompile(`^variants\[(\d+)\]\.(\w+)$`)

// wizardView is the template data of the create and edit form.
type wizardView struct {
	Draft    wizard.Draft
	Product  product.Product
	Options  map[string][]string
	Errors   map[string]string
	Sections []wizard.Section
	Action   string
	Staged   []string
	Extend   []refdata.Kind
}

func (h *Handler) loadDraft(r *http.Request, sc scope) (wizard.Draft, error) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	if id := sess.Get(sc.key); id != "" {
		d, err := h.drafts.Load(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, wizard.ErrDraftNotFound) {
			return wizard.Draft{}, err
		}
	}

	var d wizard.Draft
	if sc.sku == "" {
		d = wizard.NewDraft(wizard.NewDraftID())
	} else {
		p, err := h.catalog.GetProduct(ctx, sc.sku)
		if err != nil {
			return wizard.Draft{}, err
		}
		d = wizard.EditDraft(wizard.NewDraftID(), p)
	}
	d.UpdatedAt = h.now()
	if err := h.drafts.Save(ctx, d); err != nil {
		return wizard.Draft{}, err
	}
	if sess != nil {
		sess.Set(sc.key, d.ID)
	}
	return d, nil
}

func (h *Handler) saveDraft(r *http.Request, d wizard.Draft) {
	d.UpdatedAt = h.now()
	if err := h.drafts.Save(r.Context(), d); err != nil {
		h.logger.Error("save wizard draft failed", slog.String("draft", d.ID), slog.Any("error", err))
	}
}

func (h *Handler) dropDraft(r *http.Request, sc scope, d wizard.Draft) {
	if err := h.drafts.Delete(r.Context(), d.ID); err != nil {
		h.logger.Warn("delete wizard draft failed", slog.String("draft", d.ID), slog.Any("error", err))
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.Delete(sc.key)
	}
}

func (h *Handler) showWizard(w http.ResponseWriter, r *http.Request, sc scope, status int, d wizard.Draft, errs map[string]string) {
	options := map[string][]string{}
	if h.options != nil {
		catalog, err := h.options.Catalog(r.Context())
		if err != nil {
			h.logger.Warn("load form options failed", slog.Any("error", err))
		}
		for kind, values := range catalog {
			options[string(kind)] = values
		}
	}
	staged := make([]string, 0, len(d.Staged))
	for _, img := range d.Staged {
		staged = append(staged, img.Name)
	}
	title := "Create Product"
	if d.IsEdit() {
		title = "Edit Product"
	}
	h.render(w, r, status, "pages/wizard.html", title, wizardView{
		Draft:    d,
		Product:  d.Product,
		Options:  options,
		Errors:   errs,
		Sections: wizard.Sections,
		Action:   sc.base,
		Staged:   staged,
		Extend:   extendKinds(),
	})
}

func extendKinds() []refdata.Kind {
	out := make([]refdata.Kind, 0, len(optionFields))
	for _, k := range refdata.Kinds() {
		if _, ok := optionFields[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func (h *Handler) wizardPage(scopeOf func(*http.Request) scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := scopeOf(r)
		d, err := h.loadDraft(r, sc)
		if err != nil {
			h.logger.Error("open wizard failed", slog.String("sku", sc.sku), slog.Any("error", err))
			h.redirectWithFlash(w, r, "/products", shared.FlashError, userMessage(err))
			return
		}
		h.showWizard(w, r, sc, http.StatusOK, d, nil)
	}
}

// parseForm reads url-encoded or multipart bodies up to the upload limit.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if r.MultipartForm == nil {
			r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
		}
		return r.ParseMultipartForm(h.maxUpload)
	}
	return r.ParseForm()
}

// formActions turns the submitted inputs into draft actions. Values equal to
// the draft are no-ops, so only edited fields mark a section dirty.
func formActions(r *http.Request) []wizard.Action {
	var actions []wizard.Action
	if mode := r.PostFormValue("mode"); mode != "" {
		actions = append(actions, wizard.SetMode{Mode: mode})
	}
	for _, name := range wizardFields {
		if _, ok := r.PostForm[name]; ok {
			actions = append(actions, wizard.SetField{Name: name, Value: r.PostFormValue(name)})
		}
	}
	for _, name := range warrantyFields {
		if _, ok := r.PostForm["warranty."+name]; ok {
			actions = append(actions, wizard.SetWarranty{Field: name, Value: r.PostFormValue("warranty." + name)})
		}
	}
	var variantKeys []string
	for key := range r.PostForm {
		if variantInput.MatchString(key) {
			variantKeys = append(variantKeys, key)
		}
	}
	slices.Sort(variantKeys)
	for _, key := range variantKeys {
		m := variantInput.FindStringSubmatch(key)
		idx, _ := strconv.Atoi(m[1])
		actions = append(actions, wizard.UpdateVariant{Index: idx, Field: m[2], Value: r.PostFormValue(key)})
	}
	return actions
}

func stagedUploads(r *http.Request) ([]wizard.Action, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var actions []wizard.Action
	for _, fh := range r.MultipartForm.File["images"] {
		a, err := stageFile(fh)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func stageFile(fh *multipart.FileHeader) (wizard.Action, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return wizard.StageImage{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}

func (h *Handler) wizardPost(scopeOf func(*http.Request) scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := scopeOf(r)
		if err := h.parseForm(w, r); err != nil {
			h.redirectWithFlash(w, r, sc.base, shared.FlashError, "The form could not be read. Images may be too large.")
			return
		}
		d, err := h.loadDraft(r, sc)
		if err != nil {
			h.logger.Error("open wizard failed", slog.String("sku", sc.sku), slog.Any("error", err))
			h.redirectWithFlash(w, r, "/products", shared.FlashError, userMessage(err))
			return
		}

		uploads, err := stagedUploads(r)
		if err != nil {
			h.redirectWithFlash(w, r, sc.base, shared.FlashError, "The images could not be read.")
			return
		}
		actions := append(formActions(r), uploads...)
		d, err = wizard.DefaultReducer.ApplyAll(d, actions...)
		if err != nil {
			h.saveDraft(r, d)
			h.redirectWithFlash(w, r, sc.base, shared.FlashError, userMessage(err))
			return
		}

		action := r.PostFormValue("action")
		switch {
		case action == "" || action == "save":
			h.submitDraft(w, r, sc, d)
			return
		case action == "discard":
			h.dropDraft(r, sc, d)
			h.redirectWithFlash(w, r, "/products", shared.FlashSuccess, "Changes discarded.")
			return
		case action == "add-option":
			d = h.addOption(r, d)
		default:
			next, err := h.applyControl(d, action)
			if err != nil {
				h.saveDraft(r, d)
				h.redirectWithFlash(w, r, sc.base, shared.FlashError, userMessage(err))
				return
			}
			d = next
		}
		h.saveDraft(r, d)
		http.Redirect(w, r, sc.base+anchor(d), http.StatusSeeOther)
	}
}

func anchor(d wizard.Draft) string {
	if d.Open == "" {
		return ""
	}
	return "#" + string(d.Open)
}

// applyControl handles the in-form buttons that change the form layout.
func (h *Handler) applyControl(d wizard.Draft, action string) (wizard.Draft, error) {
	name, arg, _ := strings.Cut(action, ":")
	switch name {
	case "toggle":
		return wizard.DefaultReducer.Apply(d, wizard.ToggleSection{Section: wizard.Section(arg)})
	case "add-variant":
		return wizard.DefaultReducer.Apply(d, wizard.AddVariant{})
	case "remove-variant", "remove-image":
		idx, err := strconv.Atoi(arg)
		if err != nil {
			return d, fmt.Errorf("%w: index %q", wizard.ErrIndexOutOfRange, arg)
		}
		if name == "remove-variant" {
			return wizard.DefaultReducer.Apply(d, wizard.RemoveVariant{Index: idx})
		}
		return wizard.DefaultReducer.Apply(d, wizard.RemoveImage{Index: idx})
	default:
		return d, fmt.Errorf("%w: action %q", wizard.ErrUnknownField, action)
	}
}

// addOption extends a dropdown list and selects the new value in the draft.
func (h *Handler) addOption(r *http.Request, d wizard.Draft) wizard.Draft {
	sess := shared.SessionFromContext(r.Context())
	flash := func(kind, msg string) {
		if sess != nil {
			sess.AddFlash(shared.FlashMessage{Kind: kind, Message: msg})
		}
	}
	kind, err := refdata.ParseKind(r.PostFormValue("optionKind"))
	if err != nil {
		flash(shared.FlashError, "Unknown option list.")
		return d
	}
	if h.options == nil {
		flash(shared.FlashError, "Options cannot be added right now.")
		return d
	}
	opt, err := h.options.Add(r.Context(), kind, r.PostFormValue("optionValue"))
	switch {
	case errors.Is(err, httpx.ErrDuplicate):
		flash(shared.FlashError, "That option already exists.")
		return d
	case errors.Is(err, httpx.ErrValidation):
		flash(shared.FlashError, "Please enter a value for the new option.")
		return d
	case err != nil:
		h.logger.Error("add option failed", slog.String("kind", string(kind)), slog.Any("error", err))
		flash(shared.FlashError, userMessage(err))
		return d
	}
	if field, ok := optionFields[kind]; ok {
		if next, err := wizard.DefaultReducer.Apply(d, wizard.SetField{Name: field, Value: opt.Value}); err == nil {
			d = next
		}
	}
	flash(shared.FlashSuccess, fmt.Sprintf("Added %q.", opt.Value))
	return d
}

func (h *Handler) submitDraft(w http.ResponseWriter, r *http.Request, sc scope, d wizard.Draft) {
	ctx := r.Context()
	saved, err := h.submitter.Submit(ctx, d)
	if err == nil {
		h.dropDraft(r, sc, saved)
		action, message := "product.create", "Product created successfully!"
		if d.IsEdit() {
			action, message = "product.update", "Product updated successfully!"
		}
		h.record(ctx, action, saved.Editing, map[string]any{"images": len(saved.Product.Images)})
		h.redirectWithFlash(w, r, "/products", shared.FlashSuccess, message)
		return
	}

	var stepErr *wizard.StepError
	if errors.As(err, &stepErr) && stepErr.Step == wizard.StepValidate {
		h.saveDraft(r, saved)
		h.showWizard(w, r, sc, http.StatusBadRequest, saved, fieldErrors(err))
		return
	}
	h.logger.Error("submit wizard failed", slog.String("draft", d.ID), slog.Any("error", err))
	h.saveDraft(r, saved)
	h.redirectWithFlash(w, r, sc.base, shared.FlashError, userMessage(err))
}

func fieldErrors(err error) map[string]string {
	var verrs wizard.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	if errors.Is(err, wizard.ErrWarrantyMissing) {
		return map[string]string{"warranty": "details are required"}
	}
	return map[string]string{"form": err.Error()}
}

// mutate applies a to the scope draft and answers with JSON or a redirect.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, sc scope, actions ...wizard.Action) {
	d, err := h.loadDraft(r, sc)
	if err != nil {
		h.logger.Error("open wizard failed", slog.String("sku", sc.sku), slog.Any("error", err))
		if wantsJSON(r) {
			httpx.RespondError(w, err)
			return
		}
		h.redirectWithFlash(w, r, "/products", shared.FlashError, userMessage(err))
		return
	}
	d, err = wizard.DefaultReducer.ApplyAll(d, actions...)
	h.saveDraft(r, d)
	if wantsJSON(r) {
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]int{
			"images":   d.ImageCount(),
			"staged":   len(d.Staged),
			"variants": len(d.Product.Variants),
		})
		return
	}
	if err != nil {
		h.redirectWithFlash(w, r, sc.base, shared.FlashError, userMessage(err))
		return
	}
	http.Redirect(w, r, sc.base+anchor(d), http.StatusSeeOther)
}

func (h *Handler) stageImages(scopeOf func(*http.Request) scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := scopeOf(r)
		if err := h.parseForm(w, r); err != nil {
			h.redirectWithFlash(w, r, sc.base, shared.FlashError, "The images could not be read. They may be too large.")
			return
		}
		actions, err := stagedUploads(r)
		if err != nil {
			h.redirectWithFlash(w, r, sc.base, shared.FlashError, "The images could not be read.")
			return
		}
		h.mutate(w, r, sc, actions...)
	}
}

func (h *Handler) removeImage(scopeOf func(*http.Request) scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := scopeOf(r)
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			idx = -1
		}
		h.mutate(w, r, sc, wizard.RemoveImage{Index: idx})
	}
}

func (h *Handler) addVariant(scopeOf func(*http.Request) scope) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mutate(w, r, scopeOf(r), wizard.AddVariant{})
	}
}
