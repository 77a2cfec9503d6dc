// Package wizard holds the create/edit product form as a single draft record
// and the ordered submission that turns it into backend calls.
package wizard

import (
	"maps"
	"slices"
	"time"

	"github.com/apexpos/admin/internal/product"
)

// Section is one accordion panel of the form.
type Section string

const (
	SectionInfo     Section = "info"
	SectionPricing  Section = "pricing"
	SectionImages   Section = "images"
	SectionWarranty Section = "warranty"
)

// Sections lists the panels in display order.
var Sections = []Section{SectionInfo, SectionPricing, SectionImages, SectionWarranty}

func (s Section) valid() bool {
	return slices.Contains(Sections, s)
}

// StagedImage is an image accepted by the form but not yet uploaded.
type StagedImage struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
}

// Draft is the whole state of one create or edit session.
type Draft struct {
	ID        string           `json:"id"`
	Editing   string           `json:"editing,omitempty"`
	Product   product.Product  `json:"product"`
	Staged    []StagedImage    `json:"staged,omitempty"`
	Open      Section          `json:"open"`
	Dirty     map[Section]bool `json:"dirty,omitempty"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// NewDraft starts an empty create form.
func NewDraft(id string) Draft {
	return Draft{
		ID: id,
		Product: product.Product{
			Mode:     product.ModeSingle,
			Status:   product.StatusActive,
			Images:   []string{},
			Warranty: product.Warranty{Warranty: product.WarrantyNo},
		},
		Open: SectionInfo,
	}
}

// EditDraft starts an edit form seeded from an existing product.
func EditDraft(id string, p product.Product) Draft {
	d := Draft{ID: id, Editing: p.SKU, Product: p.Clone(), Open: SectionInfo}
	if d.Product.Images == nil {
		d.Product.Images = []string{}
	}
	if d.Product.Mode == "" {
		d.Product.Mode = product.ModeSingle
	}
	return d
}

// IsEdit reports whether the draft updates an existing product.
func (d Draft) IsEdit() bool {
	return d.Editing != ""
}

// IsDirty reports whether section has unsaved changes.
func (d Draft) IsDirty(s Section) bool {
	return d.Dirty[s]
}

// Changed reports whether any section has unsaved changes.
func (d Draft) Changed() bool {
	return len(d.Dirty) > 0
}

// ImageCount counts uploaded plus staged images.
func (d Draft) ImageCount() int {
	return len(d.Product.Images) + len(d.Staged)
}

func (d Draft) clone() Draft {
	out := d
	out.Product = d.Product.Clone()
	out.Staged = slices.Clone(d.Staged)
	out.Dirty = maps.Clone(d.Dirty)
	return out
}

func (d *Draft) touch(s Section) {
	if d.Dirty == nil {
		d.Dirty = make(map[Section]bool)
	}
	d.Dirty[s] = true
}
