package pages

import (
	"log/slog"
	"net/http"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/apexpos/admin/internal/inventory"
	"github.com/apexpos/admin/internal/product"
	"github.com/apexpos/admin/internal/refdata"
)

const dashboardTop = 5

// dashboardView is the template data of the landing page.
type dashboardView struct {
	Summary    inventory.Summary
	LowStock   []product.Product
	Expired    []product.Product
	NearExpiry []product.Product
	Recent     []product.Product
	Options    int
	Error      string
}

func top(products []product.Product) []product.Product {
	if len(products) > dashboardTop {
		return products[:dashboardTop]
	}
	return products
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		products []product.Product
		options  map[refdata.Kind][]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = h.catalog.ListProducts(gctx)
		return err
	})
	if h.options != nil {
		g.Go(func() error {
			var err error
			if options, err = h.options.Catalog(gctx); err != nil {
				h.logger.Warn("dashboard options failed", slog.Any("error", err))
			}
			return nil
		})
	}

	now := h.now()
	status := http.StatusOK
	var data dashboardView
	if err := g.Wait(); err != nil {
		h.logger.Error("dashboard list failed", slog.Any("error", err))
		data.Error = userMessage(err)
		status = http.StatusBadGateway
	}
	data.Summary = h.rules.Summarize(products, now)
	data.LowStock = top(h.rules.LowStock(products))
	data.Expired = top(h.rules.Expired(products, now))
	data.NearExpiry = top(h.rules.NearExpiry(products, now))
	recent := slices.Clone(products)
	slices.Reverse(recent)
	data.Recent = top(recent)
	for _, values := range options {
		data.Options += len(values)
	}
	h.render(w, r, status, "pages/dashboard.html", "Dashboard", data)
}
