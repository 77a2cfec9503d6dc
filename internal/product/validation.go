package product

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/apexpos/admin/internal/platform/httpx"
)

// ReservedSKUs are path segments of fixed routes under /products/. A product
// keyed by one of them could not be reached by its edit or delete URL.
var ReservedSKUs = []string{"new", "import", "grid", "export", "export.xlsx", "export.csv", "export.pdf"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("routable", func(fl validator.FieldLevel) bool {
		sku := strings.TrimSpace(fl.Field().String())
		for _, reserved := range ReservedSKUs {
			if strings.EqualFold(sku, reserved) {
				return false
			}
		}
		return true
	})
	return v
}

// FieldErrors maps a JSON field name to a human readable message.
type FieldErrors map[string]string

// Error implements error.
func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "product: invalid " + strings.Join(parts, ", ")
}

// Unwrap lets callers match httpx.ErrValidation.
func (e FieldErrors) Unwrap() error {
	return httpx.ErrValidation
}

// Validate checks the required fields and non-negative numbers.
func Validate(p Product) error {
	errs := FieldErrors{}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("product: validate: %w", err)
		}
		for _, fe := range verrs {
			errs[jsonName(fe.StructNamespace())] = message(fe)
		}
	}
	if p.QuantityAlert.Valid && p.QuantityAlert.Value < 0 {
		errs["quantityAlert"] = "must not be negative"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must not be negative"
	case "routable":
		return "is reserved, choose another SKU"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

var jsonNames = map[string]string{
	"SKU": "sku",
}

// jsonName turns "Product.Variants[1].Quantity" into "variants[1].quantity".
func jsonName(ns string) string {
	ns = strings.TrimPrefix(ns, "Product.")
	segments := strings.Split(ns, ".")
	for i, seg := range segments {
		name, index := seg, ""
		if open := strings.IndexByte(seg, '['); open >= 0 {
			name, index = seg[:open], seg[open:]
		}
		if mapped, ok := jsonNames[name]; ok {
			name = mapped
		} else if name != "" {
			name = strings.ToLower(name[:1]) + name[1:]
		}
		segments[i] = name + index
	}
	return strings.Join(segments, ".")
}
