package refdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apexpos/admin/internal/platform/httpx"
)

// Kind names one option list shown in the product forms.
type Kind string

const (
	KindCategory         Kind = "category"
	KindSubcategory      Kind = "subcategory"
	KindBrand            Kind = "brand"
	KindUnit             Kind = "unit"
	KindStore            Kind = "store"
	KindWarehouse        Kind = "warehouse"
	KindSymbology        Kind = "symbology"
	KindSellingType      Kind = "sellingType"
	KindProductType      Kind = "productType"
	KindTaxType          Kind = "taxType"
	KindDiscountType     Kind = "discountType"
	KindVariantAttribute Kind = "variantAttribute"
	KindWarranty         Kind = "warranty"
	KindStatus           Kind = "status"
)

var (
	// ErrEmptyOption rejects blank option values.
	ErrEmptyOption = fmt.Errorf("%w: option value is empty", httpx.ErrValidation)
	// ErrFixedKind rejects additions to lists that are not user-extendable.
	ErrFixedKind = fmt.Errorf("%w: option list is fixed", httpx.ErrValidation)
	// ErrUnknownKind is returned for kinds that do not exist.
	ErrUnknownKind = fmt.Errorf("%w: unknown option list", httpx.ErrNotFound)
	// ErrDuplicateOption matches httpx.ErrDuplicate.
	ErrDuplicateOption = fmt.Errorf("%w: option already exists", httpx.ErrDuplicate)
)

// Option is one stored value of a list.
type Option struct {
	ID       int64  `json:"id,omitempty"`
	Kind     Kind   `json:"kind"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

// extendable lists live in ref_options and accept ad hoc additions.
var extendable = []Kind{
	KindCategory, KindSubcategory, KindBrand, KindUnit,
	KindStore, KindWarehouse, KindSymbology,
}

// fixed lists are closed enumerations the backend understands.
var fixed = map[Kind][]string{
	KindSellingType:      {"Online", "POS"},
	KindProductType:      {"Physical", "Digital", "Service"},
	KindTaxType:          {"Percentage", "Fixed"},
	KindDiscountType:     {"Percentage", "Fixed"},
	KindVariantAttribute: {"color", "size", "material"},
	KindWarranty:         {"Yes", "No"},
	KindStatus:           {"Active", "Inactive"},
}

// Kinds lists every known kind, extendable ones first.
func Kinds() []Kind {
	out := append([]Kind(nil), extendable...)
	return append(out, KindSellingType, KindProductType, KindTaxType,
		KindDiscountType, KindVariantAttribute, KindWarranty, KindStatus)
}

// ParseKind resolves a kind name as it appears in URLs.
func ParseKind(raw string) (Kind, error) {
	raw = strings.TrimSpace(raw)
	for _, k := range Kinds() {
		if strings.EqualFold(string(k), raw) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

// Extendable reports whether users may add values to the kind.
func (k Kind) Extendable() bool {
	for _, e := range extendable {
		if e == k {
			return true
		}
	}
	return false
}

func fixedOptions(k Kind) []Option {
	values := fixed[k]
	out := make([]Option, 0, len(values))
	for i, v := range values {
		out = append(out, Option{Kind: k, Value: v, Position: i + 1})
	}
	return out
}

// Values projects options onto their display values.
func Values(options []Option) []string {
	out := make([]string, 0, len(options))
	for _, o := range options {
		out = append(out, o.Value)
	}
	return out
}

func containsFold(options []Option, value string) bool {
	for _, o := range options {
		if strings.EqualFold(o.Value, value) {
			return true
		}
	}
	return false
}

func isDuplicate(err error) bool {
	return errors.Is(err, httpx.ErrDuplicate)
}
