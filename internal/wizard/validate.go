package wizard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

// ErrWarrantyMissing is returned when warranty data must be persisted
// separately but the warranty panel is empty.
var ErrWarrantyMissing = fmt.Errorf("%w: warranty details are required", httpx.ErrValidation)

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	keys := slices.Sorted(maps.Keys(e))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e[k])
	}
	return "wizard: " + strings.Join(parts, "; ")
}

func (e ValidationErrors) Unwrap() error {
	return httpx.ErrValidation
}

// Validate checks the fields the form marks as required.
func Validate(d Draft) error {
	errs := ValidationErrors{}
	if err := product.Validate(d.Product); err != nil {
		var fields product.FieldErrors
		if !errors.As(err, &fields) {
			return err
		}
		maps.Copy(errs, fields)
	}
	if d.Product.Mode == product.ModeMultiple {
		if len(d.Product.Variants) == 0 {
			errs["variants"] = "at least one variant is required"
		}
		for i, v := range d.Product.Variants {
			if strings.TrimSpace(v.Attribute) == "" || strings.TrimSpace(v.Value) == "" {
				errs[fmt.Sprintf("variants[%d]", i)] = "attribute and value are required"
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// RequireWarranty returns ErrWarrantyMissing when the warranty sub-document
// is empty.
func RequireWarranty(d Draft) error {
	if d.Product.Warranty.IsZero() {
		return ErrWarrantyMissing
	}
	return nil
}
