// Package backend is the single HTTP client for the product REST backend.
// The base URL is injected once at startup; no page builds backend URLs
// itself.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/apexpos/admin/internal/platform/httpx"
	"github.com/apexpos/admin/internal/product"
)

const maxErrorBody = 4 << 10

// Upload is an image staged for multipart upload.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Client talks to the product backend.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *Metrics
	group      singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The timeout given to
// NewClient still bounds shared list fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMetrics records call counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ImageURL resolves a server-relative image path against the backend.
func (c *Client) ImageURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// ListProducts fetches the whole catalog. Concurrent callers share one
// in-flight request.
func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	ch := c.group.DoChan("products", func() (interface{}, error) {
		// outlives any single waiter
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		var products []product.Product
		if err := c.do(callCtx, "list products", http.MethodGet, "/products", nil, "", &products); err != nil {
			return nil, err
		}
		if products == nil {
			products = []product.Product{}
		}
		return products, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]product.Product)
		out := make([]product.Product, len(shared))
		for i, p := range shared {
			out[i] = p.Clone()
		}
		return out, nil
	}
}

// GetProduct fetches one product for edit prefill.
func (c *Client) GetProduct(ctx context.Context, sku string) (product.Product, error) {
	var p product.Product
	if err := c.do(ctx, "get product", http.MethodGet, productPath(sku), nil, "", &p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// CreateProduct posts a full product document.
func (c *Client) CreateProduct(ctx context.Context, p product.Product) error {
	return c.sendJSON(ctx, "create product", http.MethodPost, "/products", p)
}

// UpdateProduct replaces the product keyed by sku.
func (c *Client) UpdateProduct(ctx context.Context, sku string, p product.Product) error {
	return c.sendJSON(ctx, "update product", http.MethodPut, productPath(sku), p)
}

// DeleteProduct removes the product keyed by sku.
func (c *Client) DeleteProduct(ctx context.Context, sku string) error {
	return c.do(ctx, "delete product", http.MethodDelete, productPath(sku), nil, "", nil)
}

// WarrantyRecord is the body of POST /warranty.
type WarrantyRecord struct {
	SKU string `json:"sku"`
	product.Warranty
}

// SaveWarranty persists the warranty sub-document on its own.
func (c *Client) SaveWarranty(ctx context.Context, sku string, w product.Warranty) error {
	return c.sendJSON(ctx, "save warranty", http.MethodPost, "/warranty", WarrantyRecord{SKU: sku, Warranty: w})
}

type uploadResponse struct {
	URLs []string `json:"urls"`
}

// UploadImages sends files as multipart field "images" and returns the
// stored paths in upload order.
func (c *Client) UploadImages(ctx context.Context, files []Upload) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, f.Name))
		header.Set("Content-Type", f.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("backend: upload images: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("backend: upload images: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("backend: upload images: %w", err)
	}
	var resp uploadResponse
	if err := c.do(ctx, "upload images", http.MethodPost, "/upload", body, writer.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return resp.URLs, nil
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("backend: %s: encode: %w", op, err)
	}
	return c.do(ctx, op, method, path, bytes.NewReader(data), "application/json", nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(op, 0, start)
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("backend: %s: %w", op, err)
		}
		return fmt.Errorf("backend: %s: %w: %w", op, httpx.ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.metrics.observe(op, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: %s: decode: %w: %w", op, httpx.ErrUpstream, err)
	}
	return nil
}

func productPath(sku string) string {
	return "/products/" + url.PathEscape(sku)
}
