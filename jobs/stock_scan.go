package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/apexpos/admin/internal/inventory"
	jobmetrics "github.com/apexpos/admin/internal/jobs"
	"github.com/apexpos/admin/internal/product"
)

// digestLimit caps the products listed per section of the digest.
const digestLimit = 10

// ProductLister reads the catalog from the backend.
type ProductLister interface {
	ListProducts(ctx context.Context) ([]product.Product, error)
}

// Enqueuer submits follow-up tasks; *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// StockScanJob classifies the catalog, publishes alert gauges and queues a
// digest email when anything needs attention.
type StockScanJob struct {
	Catalog   ProductLister
	Rules     inventory.Rules
	Queue     Enqueuer
	Recipient string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// StockScanResult is the outcome of one scan.
type StockScanResult struct {
	Summary    inventory.Summary
	LowStock   []product.Product
	Expired    []product.Product
	NearExpiry []product.Product
}

// Attention reports whether the digest is worth sending.
func (r StockScanResult) Attention() bool {
	return len(r.LowStock)+len(r.Expired)+len(r.NearExpiry) > 0
}

// Handle executes the scan.
func (j *StockScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Catalog == nil {
		return errors.New("stock scan: handler not configured")
	}
	var payload StockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("stock scan payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskStockScan)
	defer func() { err = tracker.End(err) }()

	logger := j.logger()
	result, err := j.Scan(ctx)
	if err != nil {
		logger.Error("stock scan failed", slog.Any("error", err))
		return err
	}
	j.Metrics.SetStockAlerts("low_stock", len(result.LowStock))
	j.Metrics.SetStockAlerts("expired", len(result.Expired))
	j.Metrics.SetStockAlerts("near_expiry", len(result.NearExpiry))
	logger.Info("stock scan completed",
		slog.Int("products", result.Summary.Total),
		slog.Int("low_stock", len(result.LowStock)),
		slog.Int("expired", len(result.Expired)),
		slog.Int("near_expiry", len(result.NearExpiry)),
	)

	if !result.Attention() || j.Recipient == "" || j.Queue == nil {
		return nil
	}
	task, err := NewSendEmailTask(SendEmailPayload{
		To:      j.Recipient,
		Subject: digestSubject(result),
		Body:    Digest(result, j.now()),
	})
	if err != nil {
		return err
	}
	if _, err := j.Queue.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("stock scan: enqueue digest: %w", err)
	}
	return nil
}

// Scan loads the catalog and classifies it.
func (j *StockScanJob) Scan(ctx context.Context) (StockScanResult, error) {
	products, err := j.Catalog.ListProducts(ctx)
	if err != nil {
		return StockScanResult{}, err
	}
	rules := j.rules()
	now := j.now()
	return StockScanResult{
		Summary:    rules.Summarize(products, now),
		LowStock:   rules.LowStock(products),
		Expired:    rules.Expired(products, now),
		NearExpiry: rules.NearExpiry(products, now),
	}, nil
}

func digestSubject(r StockScanResult) string {
	return fmt.Sprintf("Stock alert: %d low stock, %d expired", len(r.LowStock), len(r.Expired))
}

// Digest renders the plain-text alert email.
func Digest(r StockScanResult, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock report for %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "Products: %d (%d active)\n", r.Summary.Total, r.Summary.Active)
	fmt.Fprintf(&b, "Stock value: $%s\n", r.Summary.StockValue.StringFixed(2))
	section(&b, "Low stock", r.LowStock, func(p product.Product) string {
		return "qty " + p.Quantity.String()
	})
	section(&b, "Expired", r.Expired, func(p product.Product) string {
		return "expired " + p.Warranty.ExpiryDate
	})
	section(&b, "Expiring soon", r.NearExpiry, func(p product.Product) string {
		return "expires " + p.Warranty.ExpiryDate
	})
	return b.String()
}

func section(b *strings.Builder, title string, products []product.Product, detail func(product.Product) string) {
	if len(products) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s (%d)\n", title, len(products))
	for i, p := range products {
		if i == digestLimit {
			fmt.Fprintf(b, "  ... and %d more\n", len(products)-digestLimit)
			break
		}
		fmt.Fprintf(b, "  %s  %s  %s\n", p.SKU, p.ProductName, detail(p))
	}
}

func (j *StockScanJob) rules() inventory.Rules {
	if j.Rules.Location == nil {
		return inventory.DefaultRules()
	}
	return j.Rules
}

func (j *StockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStockScan))
	}
	return slog.Default().With(slog.String("job", TaskStockScan))
}

func (j *StockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now()
}
