package refdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/apexpos/admin/internal/platform/httpx"
)

// Handler exposes option lists as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers GET and POST /{kind} on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{kind}", h.list)
	r.Post("/{kind}", h.add)
}

type listResponse struct {
	Kind       Kind     `json:"kind"`
	Extendable bool     `json:"extendable"`
	Options    []string `json:"options"`
}

type addRequest struct {
	Value string `json:"value"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	options, err := h.service.List(r.Context(), kind)
	if err != nil {
		h.logger.Error("list options failed", slog.String("kind", string(kind)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Kind: kind, Extendable: kind.Extendable(), Options: Values(options)})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req addRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	} else {
		req.Value = r.PostFormValue("value")
	}
	created, err := h.service.Add(r.Context(), kind, req.Value)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrDuplicate) {
			h.logger.Error("add option failed", slog.String("kind", string(kind)), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}
