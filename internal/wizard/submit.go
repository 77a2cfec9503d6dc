package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/apexpos/admin/internal/backend"
	"github.com/apexpos/admin/internal/product"
)

// Step names one stage of a submission.
type Step string

const (
	StepValidate Step = "validate"
	StepUpload   Step = "upload"
	StepWarranty Step = "warranty"
	StepSave     Step = "save"
)

// StepError reports which stage of a submission failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("wizard: %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// WarrantyMode selects how warranty data reaches the backend.
type WarrantyMode string

const (
	// WarrantyNested sends warranty inside the product document.
	WarrantyNested WarrantyMode = "nested"
	// WarrantySeparate also posts it to the warranty endpoint first.
	WarrantySeparate WarrantyMode = "separate"
)

// Backend is the subset of the backend client a submission uses.
type Backend interface {
	UploadImages(ctx context.Context, files []backend.Upload) ([]string, error)
	SaveWarranty(ctx context.Context, sku string, w product.Warranty) error
	CreateProduct(ctx context.Context, p product.Product) error
	UpdateProduct(ctx context.Context, sku string, p product.Product) error
}

// Submitter runs the upload, warranty and save calls in order.
type Submitter struct {
	backend Backend
	mode    WarrantyMode
	logger  *slog.Logger
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(b Backend, mode WarrantyMode, logger *slog.Logger) *Submitter {
	if mode == "" {
		mode = WarrantyNested
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{backend: b, mode: mode, logger: logger}
}

// Submit sends the draft. On failure the returned draft keeps every value
// and any URLs already uploaded, so a retry does not upload twice. On
// success staged images and dirty sections are cleared.
func (s *Submitter) Submit(ctx context.Context, d Draft) (Draft, error) {
	if err := Validate(d); err != nil {
		return d, &StepError{Step: StepValidate, Err: err}
	}
	if s.mode == WarrantySeparate {
		if err := RequireWarranty(d); err != nil {
			return d, &StepError{Step: StepValidate, Err: err}
		}
	}

	if len(d.Staged) > 0 {
		files := make([]backend.Upload, 0, len(d.Staged))
		for _, img := range d.Staged {
			files = append(files, backend.Upload{Name: img.Name, ContentType: img.ContentType, Data: img.Data})
		}
		urls, err := s.backend.UploadImages(ctx, files)
		if err != nil {
			return d, &StepError{Step: StepUpload, Err: err}
		}
		d = d.clone()
		d.Product.Images = append(d.Product.Images, urls...)
		d.Staged = nil
		s.logger.Info("wizard images uploaded", slog.String("draft", d.ID), slog.Int("count", len(urls)))
	}

	p := Prepared(d)
	if s.mode == WarrantySeparate {
		if err := s.backend.SaveWarranty(ctx, p.SKU, p.Warranty); err != nil {
			return d, &StepError{Step: StepWarranty, Err: err}
		}
	}

	var err error
	if d.IsEdit() {
		err = s.backend.UpdateProduct(ctx, d.Editing, p)
	} else {
		err = s.backend.CreateProduct(ctx, p)
	}
	if err != nil {
		return d, &StepError{Step: StepSave, Err: err}
	}

	d = d.clone()
	d.Dirty = nil
	if !d.IsEdit() {
		d.Editing = p.SKU
	}
	return d, nil
}
