package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexpos/admin/internal/backend"
	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

var fixed = Reducer{Suffix: func() int { return 12345 }}

func completeDraft(t *testing.T) Draft {
	t.Helper()
	d, err := fixed.ApplyAll(NewDraft("d1"),
		SetField{Name: "store", Value: "Electro Mart"},
		SetField{Name: "warehouse", Value: "Cool Warehouse"},
		SetField{Name: "productName", Value: "Nike Air Max"},
		SetField{Name: "sku", Value: "PT100"},
		SetField{Name: "category", Value: "Shoe"},
		SetField{Name: "price", Value: "120"},
		SetField{Name: "quantity", Value: "8"},
	)
	require.NoError(t, err)
	return d
}

func TestProductNameRegeneratesSlugAndBarcode(t *testing.T) {
	d, err := fixed.Apply(NewDraft("d1"), SetField{Name: "productName", Value: "Nike Air Max"})
	require.NoError(t, err)
	assert.Equal(t, "nike-air-max", d.Product.Slug)
	assert.Equal(t, "nike-air-max-12345", d.Product.Barcode)
	assert.True(t, d.IsDirty(SectionInfo))
	assert.False(t, d.IsDirty(SectionPricing))

	d, err = Reducer{Suffix: func() int { return 54321 }}.Apply(d, SetField{Name: "slug", Value: "Air Max"})
	require.NoError(t, err)
	assert.Equal(t, "air-max-54321", d.Product.Barcode)
}

func TestUnchangedValueDoesNotDirtyOrRegenerate(t *testing.T) {
	d := completeDraft(t)
	d.Dirty = nil
	again, err := Reducer{Suffix: func() int { return 99999 }}.ApplyAll(d,
		SetField{Name: "productName", Value: "Nike Air Max"},
		SetField{Name: "price", Value: "120.0"},
	)
	require.NoError(t, err)
	assert.Equal(t, "nike-air-max-12345", again.Product.Barcode)
	assert.False(t, again.Changed())
}

func TestNilSuffixKeepsBarcode(t *testing.T) {
	d, err := Reducer{}.Apply(completeDraft(t), SetField{Name: "productName", Value: "Court Vision"})
	require.NoError(t, err)
	assert.Equal(t, "court-vision", d.Product.Slug)
	assert.Equal(t, "nike-air-max-12345", d.Product.Barcode)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	base := completeDraft(t)
	next, err := fixed.Apply(base, SetMode{Mode: product.ModeMultiple})
	require.NoError(t, err)
	assert.Len(t, next.Product.Variants, 1)
	assert.Empty(t, base.Product.Variants)
	assert.Equal(t, product.ModeSingle, base.Product.Mode)
}

func TestVariantRows(t *testing.T) {
	d, err := fixed.ApplyAll(completeDraft(t),
		SetMode{Mode: product.ModeMultiple},
		AddVariant{},
		UpdateVariant{Index: 1, Field: "attribute", Value: "color"},
		UpdateVariant{Index: 1, Field: "value", Value: "Red"},
		UpdateVariant{Index: 1, Field: "quantity", Value: "4"},
		RemoveVariant{Index: 0},
	)
	require.NoError(t, err)
	require.Len(t, d.Product.Variants, 1)
	assert.Equal(t, product.Variant{Attribute: "color", Value: "Red", Quantity: 4}, d.Product.Variants[0])

	_, err = fixed.Apply(d, RemoveVariant{Index: 3})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = fixed.Apply(d, UpdateVariant{Index: 0, Field: "colour"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestStageImageRejectsUnsupportedTypes(t *testing.T) {
	d := NewDraft("d1")
	_, err := Apply(d, StageImage{Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("x")})
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.ErrorIs(t, err, httpx.ErrUnsupported)

	for _, ct := range []string{"image/jpeg", "image/png", "IMAGE/WEBP"} {
		d, err = Apply(d, StageImage{Name: "a", ContentType: ct, Data: []byte("x")})
		require.NoError(t, err)
	}
	assert.Len(t, d.Staged, 3)
	assert.True(t, d.IsDirty(SectionImages))
}

func TestRemoveImageSpansUploadedAndStaged(t *testing.T) {
	d := NewDraft("d1")
	d.Product.Images = []string{"/u/1.png"}
	d, err := Apply(d, StageImage{Name: "new.png", ContentType: "image/png", Data: []byte("x")})
	require.NoError(t, err)

	after, err := Apply(d, RemoveImage{Index: 1})
	require.NoError(t, err)
	assert.Empty(t, after.Staged)
	assert.Equal(t, []string{"/u/1.png"}, after.Product.Images)

	after, err = Apply(d, RemoveImage{Index: 0})
	require.NoError(t, err)
	assert.Empty(t, after.Product.Images)
	assert.Len(t, after.Staged, 1)
}

func TestToggleSectionKeepsOnePanelOpen(t *testing.T) {
	d := NewDraft("d1")
	assert.Equal(t, SectionInfo, d.Open)

	d, err := Apply(d, ToggleSection{Section: SectionPricing})
	require.NoError(t, err)
	assert.Equal(t, SectionPricing, d.Open)

	d, err = Apply(d, ToggleSection{Section: SectionPricing})
	require.NoError(t, err)
	assert.Equal(t, Section(""), d.Open)
	assert.False(t, d.Changed())

	_, err = Apply(d, ToggleSection{Section: "extras"})
	assert.Error(t, err)
}

func TestValidateReportsRequiredFields(t *testing.T) {
	err := Validate(NewDraft("d1"))
	var fields ValidationErrors
	require.True(t, errors.As(err, &fields))
	for _, key := range []string{"store", "warehouse", "productName", "sku", "category"} {
		assert.Contains(t, fields, key)
	}
	assert.ErrorIs(t, err, httpx.ErrValidation)

	d, err := Apply(completeDraft(t), SetField{Name: "quantity", Value: "-2"})
	require.NoError(t, err)
	fields = nil
	require.True(t, errors.As(Validate(d), &fields))
	assert.Equal(t, ValidationErrors{"quantity": "must not be negative"}, fields)

	assert.NoError(t, Validate(completeDraft(t)))
}

func TestValidateMultipleModeNeedsVariantValues(t *testing.T) {
	d, err := Apply(completeDraft(t), SetMode{Mode: product.ModeMultiple})
	require.NoError(t, err)
	var fields ValidationErrors
	require.True(t, errors.As(Validate(d), &fields))
	assert.Contains(t, fields, "variants[0]")
}

func TestPayloadIsDeterministic(t *testing.T) {
	d := completeDraft(t)
	first, err := Payload(d)
	require.NoError(t, err)
	d, err = Apply(d, ToggleSection{Section: SectionWarranty})
	require.NoError(t, err)
	second, err := Payload(d)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(first, &decoded))
	assert.Equal(t, []any{}, decoded["images"])
	assert.Nil(t, decoded["variants"])
}

type fakeBackend struct {
	calls     []string
	uploadErr error
	saveErr   error
	urls      []string
	saved     product.Product
	savedSKU  string
}

func (f *fakeBackend) UploadImages(_ context.Context, files []backend.Upload) ([]string, error) {
	f.calls = append(f.calls, "upload")
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.urls[:len(files)], nil
}

func (f *fakeBackend) SaveWarranty(_ context.Context, sku string, _ product.Warranty) error {
	f.calls = append(f.calls, "warranty:"+sku)
	return nil
}

func (f *fakeBackend) CreateProduct(_ context.Context, p product.Product) error {
	f.calls = append(f.calls, "create")
	f.saved = p
	return f.saveErr
}

func (f *fakeBackend) UpdateProduct(_ context.Context, sku string, p product.Product) error {
	f.calls = append(f.calls, "update:"+sku)
	f.saved, f.savedSKU = p, sku
	return f.saveErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitRunsStepsInOrder(t *testing.T) {
	fb := &fakeBackend{urls: []string{"/uploads/a.png"}}
	sub := NewSubmitter(fb, WarrantySeparate, quietLogger())

	d, err := fixed.ApplyAll(completeDraft(t),
		StageImage{Name: "a.png", ContentType: "image/png", Data: []byte("png")},
		SetWarranty{Field: "expiryDate", Value: "2025-01-01"},
	)
	require.NoError(t, err)

	out, err := sub.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"upload", "warranty:PT100", "create"}, fb.calls)
	assert.Equal(t, []string{"/uploads/a.png"}, fb.saved.Images)
	assert.Empty(t, out.Staged)
	assert.False(t, out.Changed())
	assert.Equal(t, "PT100", out.Editing)
}

func TestSubmitUploadFailureKeepsDraft(t *testing.T) {
	fb := &fakeBackend{uploadErr: httpx.ErrUpstream}
	sub := NewSubmitter(fb, WarrantyNested, quietLogger())
	d, err := Apply(completeDraft(t), StageImage{Name: "a.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)

	out, err := sub.Submit(context.Background(), d)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepUpload, stepErr.Step)
	assert.Equal(t, []string{"upload"}, fb.calls)
	assert.Equal(t, d, out)
}

func TestSubmitSaveFailureKeepsUploadedURLs(t *testing.T) {
	fb := &fakeBackend{urls: []string{"/uploads/a.png"}, saveErr: httpx.ErrUpstream}
	sub := NewSubmitter(fb, WarrantyNested, quietLogger())
	d, err := Apply(completeDraft(t), StageImage{Name: "a.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)

	out, err := sub.Submit(context.Background(), d)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepSave, stepErr.Step)
	assert.Equal(t, []string{"/uploads/a.png"}, out.Product.Images)
	assert.Empty(t, out.Staged)
	assert.True(t, out.Changed())

	fb.saveErr, fb.calls = nil, nil
	_, err = sub.Submit(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, []string{"create"}, fb.calls)
}

func TestSubmitSeparateWarrantyRequiresData(t *testing.T) {
	fb := &fakeBackend{}
	sub := NewSubmitter(fb, WarrantySeparate, quietLogger())
	_, err := sub.Submit(context.Background(), completeDraft(t))
	assert.ErrorIs(t, err, ErrWarrantyMissing)
	assert.Empty(t, fb.calls)
}

func TestEditDraftRejectsNewSKU(t *testing.T) {
	d := EditDraft("d2", Prepared(completeDraft(t)))

	out, err := Apply(d, SetField{Name: "sku", Value: "PT200"})
	require.ErrorIs(t, err, ErrSKUImmutable)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Equal(t, "PT100", out.Product.SKU)

	out, err = Apply(d, SetField{Name: "sku", Value: " PT100 "})
	require.NoError(t, err)
	assert.False(t, out.Changed())
}

func TestSubmitEditSendsBodySKUEqualToKey(t *testing.T) {
	fb := &fakeBackend{}
	sub := NewSubmitter(fb, WarrantyNested, quietLogger())
	d := EditDraft("d2", Prepared(completeDraft(t)))
	d.Product.SKU = "PT200"

	_, err := sub.Submit(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, []string{"update:PT100"}, fb.calls)
	assert.Equal(t, "PT100", fb.saved.SKU)
}

func TestResubmitUnchangedDraftSendsSameBody(t *testing.T) {
	fb := &fakeBackend{}
	sub := NewSubmitter(fb, WarrantyNested, quietLogger())
	d := EditDraft("d2", Prepared(completeDraft(t)))

	_, err := sub.Submit(context.Background(), d)
	require.NoError(t, err)
	first, err := json.Marshal(fb.saved)
	require.NoError(t, err)
	_, err = sub.Submit(context.Background(), d)
	require.NoError(t, err)
	second, err := json.Marshal(fb.saved)
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	d := completeDraft(t)
	require.NoError(t, store.Save(ctx, d))
	loaded, err := store.Load(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Product, loaded.Product)

	require.NoError(t, store.Delete(ctx, d.ID))
	_, err = store.Load(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestPGStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPGStore(mock)
	at := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }
	ctx := context.Background()

	d := completeDraft(t)
	d.ID = NewDraftID()
	mock.ExpectExec(`INSERT INTO wizard_drafts`).
		WithArgs(d.ID, pgxmock.AnyArg(), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.Save(ctx, d))

	d.UpdatedAt = at
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT payload FROM wizard_drafts`).WithArgs(d.ID).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(raw))
	loaded, err := store.Load(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.Product, loaded.Product)

	missing := NewDraftID()
	mock.ExpectQuery(`SELECT payload FROM wizard_drafts`).WithArgs(missing).WillReturnError(pgx.ErrNoRows)
	_, err = store.Load(ctx, missing)
	assert.ErrorIs(t, err, ErrDraftNotFound)

	_, err = store.Load(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	mock.ExpectExec(`DELETE FROM wizard_drafts WHERE updated_at`).WithArgs(at).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := store.Purge(ctx, at)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	assert.NoError(t, mock.ExpectationsWereMet())
}
