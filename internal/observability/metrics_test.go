package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apexpos/admin/internal/backend"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "apexpos_jobs_total") {
		t.Fatalf("expected body to contain apexpos_jobs_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "apexpos_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "apexpos_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestBackendCallsShareRegistry(t *testing.T) {
	metrics := NewMetrics()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/products/GONE" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[{"sku":"PT001"}]`))
	}))
	defer srv.Close()

	client := backend.NewClient(srv.URL, time.Second, backend.WithMetrics(backend.NewMetrics(metrics.Registerer())))
	if _, err := client.ListProducts(context.Background()); err != nil {
		t.Fatalf("list products: %v", err)
	}
	if _, err := client.GetProduct(context.Background(), "GONE"); err == nil {
		t.Fatal("expected not found error")
	}

	body := scrape(t, metrics)
	for _, want := range []string{
		`apexpos_backend_requests_total{code="200",op="list products"} 1`,
		`apexpos_backend_requests_total{code="404",op="get product"} 1`,
		`apexpos_backend_request_duration_seconds_count{op="list products"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestStockScanMetricsExposed(t *testing.T) {
	metrics := NewMetrics()
	jobs := metrics.Jobs()
	jobs.SetStockAlerts("low_stock", 4)
	jobs.SetStockAlerts("expired", 2)
	_ = jobs.Track("stock_scan").End(errors.New("backend down"))
	_ = jobs.Track("stock_scan").End(nil)

	body := scrape(t, metrics)
	for _, want := range []string{
		`apexpos_stock_alerts{kind="low_stock"} 4`,
		`apexpos_stock_alerts{kind="expired"} 2`,
		`apexpos_jobs_failures_total{job="stock_scan"} 1`,
		`apexpos_jobs_total{job="stock_scan",status="failure"} 1`,
		`apexpos_jobs_total{job="stock_scan",status="success"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestUnroutedRequestsShareOneLabel(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	for _, path := range []string{"/a", "/b/c"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `apexpos_http_requests_total{code="404",route="unknown"} 2`) {
		t.Fatalf("expected unrouted requests under one label, got: %s", body)
	}
}
