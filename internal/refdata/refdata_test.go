package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexpos/admin/internal/platform/cache"
	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/shared"
)

const (
	listSQL   = `SELECT id, kind, value, position FROM ref_options`
	insertSQL = `INSERT INTO ref_options`
	auditSQL  = `INSERT INTO audit_logs`
)

var optionColumns = []string{"id", "kind", "value", "position"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func newCache(t *testing.T) *cache.Versioned {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewVersioned(client, "refdata", time.Minute)
}

func unitRows(values ...string) *pgxmock.Rows {
	rows := pgxmock.NewRows(optionColumns)
	for i, v := range values {
		rows.AddRow(int64(i+1), "unit", v, i+1)
	}
	return rows
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("SellingType")
	require.NoError(t, err)
	assert.Equal(t, KindSellingType, k)

	_, err = ParseKind("colour")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestListFixedKindSkipsDatabase(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewRepository(mock), nil, nil, quietLogger())

	options, err := svc.List(context.Background(), KindProductType)
	require.NoError(t, err)
	assert.Equal(t, []string{"Physical", "Digital", "Service"}, Values(options))
}

func TestListIsCachedUntilAdd(t *testing.T) {
	mock := newMock(t)
	c := newCache(t)
	svc := NewService(NewRepository(mock), c, shared.NewAuditLogger(mock), quietLogger())
	ctx := context.Background()

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG", "Pcs"))

	first, err := svc.List(ctx, KindUnit)
	require.NoError(t, err)
	second, err := svc.List(ctx, KindUnit)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"KG", "Pcs"}, Values(second))

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG", "Pcs"))
	mock.ExpectQuery(insertSQL).WithArgs("unit", "Box").
		WillReturnRows(pgxmock.NewRows([]string{"id", "position"}).AddRow(int64(3), 3))
	mock.ExpectExec(auditSQL).
		WithArgs("system", "option.add", "unit", "3", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	created, err := svc.Add(ctx, KindUnit, "  Box ")
	require.NoError(t, err)
	assert.Equal(t, Option{ID: 3, Kind: KindUnit, Value: "Box", Position: 3}, created)

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG", "Pcs", "Box"))
	third, err := svc.List(ctx, KindUnit)
	require.NoError(t, err)
	assert.Equal(t, []string{"KG", "Pcs", "Box"}, Values(third))
}

func TestAddRejectsEmptyAndFixed(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewRepository(mock), nil, nil, quietLogger())
	ctx := context.Background()

	_, err := svc.Add(ctx, KindBrand, "   ")
	assert.ErrorIs(t, err, ErrEmptyOption)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Add(ctx, KindTaxType, "Compound")
	assert.ErrorIs(t, err, ErrFixedKind)

	_, err = svc.Add(ctx, Kind("nope"), "x")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestAddRejectsCaseInsensitiveDuplicate(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewRepository(mock), nil, nil, quietLogger())

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG", "Pcs"))

	_, err := svc.Add(context.Background(), KindUnit, "pcs")
	assert.ErrorIs(t, err, ErrDuplicateOption)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestInsertMapsUniqueViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewRepository(mock)

	mock.ExpectQuery(insertSQL).WithArgs("brand", "Nike").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Insert(context.Background(), KindBrand, "Nike")
	assert.True(t, errors.Is(err, httpx.ErrDuplicate))
}

func TestCatalogLoadsAllKinds(t *testing.T) {
	mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	for _, k := range extendable {
		mock.ExpectQuery(listSQL).WithArgs(string(k)).
			WillReturnRows(pgxmock.NewRows(optionColumns).AddRow(int64(1), string(k), "v-"+string(k), 1))
	}
	svc := NewService(NewRepository(mock), nil, nil, quietLogger())

	catalog, err := svc.Catalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, catalog, len(Kinds()))
	assert.Equal(t, []string{"v-store"}, catalog[KindStore])
	assert.Equal(t, []string{"Yes", "No"}, catalog[KindWarranty])
}

func TestWatchMemoizesCatalogUntilAnotherInstanceBumps(t *testing.T) {
	mock := newMock(t)
	mock.MatchExpectationsInOrder(false)
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewVersioned(client, "refdata", time.Minute)
	other := cache.NewVersioned(client, "refdata", time.Minute)

	svc := NewService(NewRepository(mock), c, nil, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Watch(ctx))

	expectAll := func(prefix string) {
		for _, k := range extendable {
			mock.ExpectQuery(listSQL).WithArgs(string(k)).
				WillReturnRows(pgxmock.NewRows(optionColumns).AddRow(int64(1), string(k), prefix+string(k), 1))
		}
	}
	expectAll("v-")
	first, err := svc.Catalog(ctx)
	require.NoError(t, err)
	first[KindStore][0] = "mutated"

	second, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"v-store"}, second[KindStore])

	require.NoError(t, other.Bump(ctx))
	assert.Eventually(t, func() bool {
		_, ok := svc.memoized()
		return !ok
	}, 2*time.Second, 10*time.Millisecond)

	expectAll("w-")
	third, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"w-store"}, third[KindStore])
}

func newRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/options", NewHandler(quietLogger(), svc).MountRoutes)
	return r
}

func TestHandlerListAndAdd(t *testing.T) {
	mock := newMock(t)
	svc := NewService(NewRepository(mock), nil, nil, quietLogger())
	router := newRouter(svc)

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/options/unit", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body listResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"KG"}, body.Options)
	assert.True(t, body.Extendable)

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG"))
	mock.ExpectQuery(insertSQL).WithArgs("unit", "L").
		WillReturnRows(pgxmock.NewRows([]string{"id", "position"}).AddRow(int64(2), 2))
	req := httptest.NewRequest(http.MethodPost, "/api/options/unit", strings.NewReader(`{"value":"L"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)

	mock.ExpectQuery(listSQL).WithArgs("unit").WillReturnRows(unitRows("KG", "L"))
	req = httptest.NewRequest(http.MethodPost, "/api/options/unit", strings.NewReader("value=kg"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/options/planet", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
