package wizard

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"strings"

	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

var (
	// ErrUnsupportedImage rejects files that are not jpeg, png or webp.
	ErrUnsupportedImage = fmt.Errorf("%w: only JPEG, PNG and WebP images are accepted", httpx.ErrUnsupported)
	// ErrUnknownField is returned for form fields the draft does not have.
	ErrUnknownField = fmt.Errorf("%w: unknown field", httpx.ErrValidation)
	// ErrSKUImmutable rejects a new sku on a draft that edits a stored product.
	ErrSKUImmutable = fmt.Errorf("%w: sku cannot change once the product exists", httpx.ErrValidation)
	// ErrIndexOutOfRange is returned for variant or image rows that do not exist.
	ErrIndexOutOfRange = fmt.Errorf("%w: row does not exist", httpx.ErrValidation)
)

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// AcceptsImage reports whether contentType may be staged.
func AcceptsImage(contentType string) bool {
	return imageTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// Action is one change to a draft.
type Action interface {
	apply(r Reducer, d *Draft) error
}

// Reducer applies actions. Suffix supplies the barcode digits; a nil Suffix
// leaves the barcode untouched when the name changes.
type Reducer struct {
	Suffix func() int
}

// DefaultReducer draws barcode suffixes at random.
var DefaultReducer = Reducer{Suffix: func() int { return 10000 + rand.IntN(90000) }}

// Apply runs a with DefaultReducer.
func Apply(d Draft, a Action) (Draft, error) {
	return DefaultReducer.Apply(d, a)
}

// Apply returns a new draft with a applied. d is never modified, and on
// error the input draft is returned unchanged. Edits that leave the product
// as it was do not mark any section dirty.
func (r Reducer) Apply(d Draft, a Action) (Draft, error) {
	next := d.clone()
	if err := a.apply(r, &next); err != nil {
		return d, err
	}
	if _, toggle := a.(ToggleSection); !toggle && unchanged(d, next) {
		return d, nil
	}
	return next, nil
}

func unchanged(before, after Draft) bool {
	return len(before.Staged) == len(after.Staged) && reflect.DeepEqual(before.Product, after.Product)
}

// ApplyAll applies actions in order and stops at the first failure.
func (r Reducer) ApplyAll(d Draft, actions ...Action) (Draft, error) {
	for _, a := range actions {
		var err error
		if d, err = r.Apply(d, a); err != nil {
			return d, err
		}
	}
	return d, nil
}

// SetField sets a top-level product field from its form value.
type SetField struct {
	Name  string
	Value string
}

func (a SetField) apply(r Reducer, d *Draft) error {
	p := &d.Product
	section := SectionInfo
	switch a.Name {
	case "productName":
		if a.Value == p.ProductName {
			return nil
		}
		p.ProductName = a.Value
		r.setSlug(p, a.Value)
	case "slug":
		if product.Slug(a.Value) == p.Slug {
			return nil
		}
		r.setSlug(p, a.Value)
	case "sku":
		sku := strings.TrimSpace(a.Value)
		if d.IsEdit() && sku != d.Editing {
			return ErrSKUImmutable
		}
		p.SKU = sku
	case "barcode":
		p.Barcode = a.Value
	case "sellingType":
		p.SellingType = a.Value
	case "category":
		p.Category = a.Value
	case "subcategory":
		p.Subcategory = a.Value
	case "brand":
		p.Brand = a.Value
	case "unit":
		p.Unit = a.Value
	case "barcodeSymbology":
		p.BarcodeSymbology = a.Value
	case "description":
		p.Description = a.Value
	case "store":
		p.Store = a.Value
	case "warehouse":
		p.Warehouse = a.Value
	case "productType":
		p.ProductType = a.Value
	case "status":
		p.Status = a.Value
	case "createdBy":
		p.CreatedBy = a.Value
	default:
		section = SectionPricing
		if err := setPricing(p, a.Name, a.Value); err != nil {
			return err
		}
	}
	d.touch(section)
	return nil
}

func (r Reducer) setSlug(p *product.Product, value string) {
	p.Slug = product.Slug(value)
	if r.Suffix != nil {
		p.Barcode = product.Barcode(p.Slug, r.Suffix())
	}
}

func setPricing(p *product.Product, name, value string) error {
	switch name {
	case "price":
		p.Price = product.ParseNumber(value)
	case "quantity":
		p.Quantity = product.ParseNumber(value)
	case "quantityAlert":
		p.QuantityAlert = product.ParseOptionalNumber(value)
	case "taxType":
		p.TaxType = value
	case "tax":
		p.Tax = product.ParseNumber(value)
	case "discountType":
		p.DiscountType = value
	case "discountValue":
		p.DiscountValue = product.ParseNumber(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// SetMode switches between single and multiple variant pricing.
type SetMode struct {
	Mode string
}

func (a SetMode) apply(_ Reducer, d *Draft) error {
	switch a.Mode {
	case product.ModeSingle, product.ModeMultiple:
	default:
		return fmt.Errorf("%w: mode %q", ErrUnknownField, a.Mode)
	}
	d.Product.Mode = a.Mode
	if a.Mode == product.ModeMultiple && len(d.Product.Variants) == 0 {
		d.Product.Variants = []product.Variant{{}}
	}
	d.touch(SectionPricing)
	return nil
}

// AddVariant appends an empty variant row.
type AddVariant struct{}

func (AddVariant) apply(_ Reducer, d *Draft) error {
	d.Product.Variants = append(d.Product.Variants, product.Variant{})
	d.touch(SectionPricing)
	return nil
}

// RemoveVariant drops the variant row at Index.
type RemoveVariant struct {
	Index int
}

func (a RemoveVariant) apply(_ Reducer, d *Draft) error {
	if a.Index < 0 || a.Index >= len(d.Product.Variants) {
		return fmt.Errorf("%w: variant %d", ErrIndexOutOfRange, a.Index)
	}
	d.Product.Variants = append(d.Product.Variants[:a.Index], d.Product.Variants[a.Index+1:]...)
	d.touch(SectionPricing)
	return nil
}

// UpdateVariant sets one column of the variant row at Index.
type UpdateVariant struct {
	Index int
	Field string
	Value string
}

func (a UpdateVariant) apply(_ Reducer, d *Draft) error {
	if a.Index < 0 || a.Index >= len(d.Product.Variants) {
		return fmt.Errorf("%w: variant %d", ErrIndexOutOfRange, a.Index)
	}
	v := &d.Product.Variants[a.Index]
	switch a.Field {
	case "attribute":
		v.Attribute = a.Value
	case "value":
		v.Value = a.Value
	case "sku":
		v.SKU = strings.TrimSpace(a.Value)
	case "quantity":
		v.Quantity = product.ParseNumber(a.Value)
	case "price":
		v.Price = product.ParseNumber(a.Value)
	default:
		return fmt.Errorf("%w: variant field %q", ErrUnknownField, a.Field)
	}
	d.touch(SectionPricing)
	return nil
}

// StageImage queues a file for upload on the next submit.
type StageImage struct {
	Name        string
	ContentType string
	Data        []byte
}

func (a StageImage) apply(_ Reducer, d *Draft) error {
	if !AcceptsImage(a.ContentType) {
		return fmt.Errorf("%w: %s (%s)", ErrUnsupportedImage, a.Name, a.ContentType)
	}
	if len(a.Data) == 0 {
		return errors.New("wizard: empty image file")
	}
	d.Staged = append(d.Staged, StagedImage{
		Name:        a.Name,
		ContentType: strings.ToLower(strings.TrimSpace(a.ContentType)),
		Data:        a.Data,
	})
	d.touch(SectionImages)
	return nil
}

// RemoveImage drops an image by its position in the gallery, where uploaded
// images come before staged ones.
type RemoveImage struct {
	Index int
}

func (a RemoveImage) apply(_ Reducer, d *Draft) error {
	uploaded := len(d.Product.Images)
	switch {
	case a.Index < 0 || a.Index >= d.ImageCount():
		return fmt.Errorf("%w: image %d", ErrIndexOutOfRange, a.Index)
	case a.Index < uploaded:
		d.Product.Images = append(d.Product.Images[:a.Index], d.Product.Images[a.Index+1:]...)
	default:
		i := a.Index - uploaded
		d.Staged = append(d.Staged[:i], d.Staged[i+1:]...)
	}
	d.touch(SectionImages)
	return nil
}

// SetWarranty sets one field of the warranty sub-document.
type SetWarranty struct {
	Field string
	Value string
}

func (a SetWarranty) apply(_ Reducer, d *Draft) error {
	w := &d.Product.Warranty
	switch a.Field {
	case "manufacturer":
		w.Manufacturer = a.Value
	case "manufacturedDate":
		w.ManufacturedDate = a.Value
	case "expiryDate":
		w.ExpiryDate = a.Value
	case "warranty":
		w.Warranty = a.Value
	default:
		return fmt.Errorf("%w: warranty field %q", ErrUnknownField, a.Field)
	}
	d.touch(SectionWarranty)
	return nil
}

// ToggleSection opens Section, or closes it when it is already open.
type ToggleSection struct {
	Section Section
}

func (a ToggleSection) apply(_ Reducer, d *Draft) error {
	if !a.Section.valid() {
		return fmt.Errorf("%w: section %q", ErrUnknownField, a.Section)
	}
	if d.Open == a.Section {
		d.Open = ""
		return nil
	}
	d.Open = a.Section
	return nil
}
