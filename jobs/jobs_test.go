package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/apexpos/admin/internal/export"
	"github.com/apexpos/admin/internal/inventory"
	jobmetrics "github.com/apexpos/admin/internal/jobs"
	"github.com/apexpos/admin/internal/product"
	"github.com/apexpos/admin/internal/wizard"
)

var now = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

type fakeLister struct {
	products []product.Product
	err      error
}

func (f fakeLister) ListProducts(context.Context) ([]product.Product, error) {
	return f.products, f.err
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

type fakeSender struct {
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func catalog() []product.Product {
	return []product.Product{
		{SKU: "PT001", ProductName: "Lenovo IdeaPad", Category: "Computers", Quantity: 12, Price: 600},
		{SKU: "PT002", ProductName: "Nike Jordan", Category: "Shoe", Quantity: 3, Price: 110},
		{SKU: "PT003", ProductName: "Milk", Category: "Grocery", Quantity: 40, Price: 2,
			Warranty: product.Warranty{ExpiryDate: "2024-06-01"}},
		{SKU: "PT004", ProductName: "Yogurt", Category: "Grocery", Quantity: 40, Price: 1,
			Warranty: product.Warranty{ExpiryDate: "2024-06-17"}},
	}
}

func metrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestStockScanQueuesDigest(t *testing.T) {
	queue := &fakeQueue{}
	job := &StockScanJob{
		Catalog:   fakeLister{products: catalog()},
		Rules:     inventory.DefaultRules(),
		Queue:     queue,
		Recipient: "ops@example.com",
		Metrics:   metrics(),
		clock:     func() time.Time { return now },
	}
	task, err := NewStockScanTask(now)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskTypeSendEmail, queue.tasks[0].Type())
	var payload SendEmailPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, "ops@example.com", payload.To)
	assert.Equal(t, "Stock alert: 1 low stock, 1 expired", payload.Subject)
	assert.Contains(t, payload.Body, "Stock report for 2024-06-15")
	assert.Contains(t, payload.Body, "PT002  Nike Jordan  qty 3")
	assert.Contains(t, payload.Body, "PT003  Milk  expired 2024-06-01")
	assert.Contains(t, payload.Body, "PT004  Yogurt  expires 2024-06-17")
	assert.Contains(t, payload.Body, "Stock value: $7650.00")
}

func TestStockScanSkipsDigestWithoutRecipientOrAlerts(t *testing.T) {
	queue := &fakeQueue{}
	job := &StockScanJob{Catalog: fakeLister{products: catalog()}, Queue: queue, clock: func() time.Time { return now }}
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskStockScan, nil)))
	assert.Empty(t, queue.tasks)

	job.Recipient = "ops@example.com"
	job.Catalog = fakeLister{products: []product.Product{{SKU: "OK", Quantity: 500}}}
	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskStockScan, nil)))
	assert.Empty(t, queue.tasks)
}

func TestStockScanPropagatesBackendFailure(t *testing.T) {
	boom := errors.New("backend down")
	job := &StockScanJob{Catalog: fakeLister{err: boom}, Metrics: metrics()}
	err := job.Handle(context.Background(), asynq.NewTask(TaskStockScan, nil))
	assert.ErrorIs(t, err, boom)

	err = job.Handle(context.Background(), asynq.NewTask(TaskStockScan, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDigestTruncatesLongSections(t *testing.T) {
	var low []product.Product
	for i := 0; i < digestLimit+3; i++ {
		low = append(low, product.Product{SKU: "L", ProductName: "Low", Quantity: 1})
	}
	body := Digest(StockScanResult{LowStock: low}, now)
	assert.Contains(t, body, "Low stock (13)")
	assert.Contains(t, body, "... and 3 more")
	assert.NotContains(t, body, "Expired")
}

func TestSendEmailJob(t *testing.T) {
	sender := &fakeSender{}
	job := &SendEmailJob{Sender: sender, Metrics: metrics()}
	task, err := NewSendEmailTask(SendEmailPayload{To: "a@example.com", Subject: "Hi", Body: "there"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"a@example.com"}, sender.sent[0].To)

	task, err = NewSendEmailTask(SendEmailPayload{Subject: "no one"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	sender.err = errors.New("relay refused")
	task, _ = NewSendEmailTask(SendEmailPayload{To: "a@example.com"})
	assert.ErrorContains(t, job.Handle(context.Background(), task), "relay refused")
}

func TestExportEmailJobAttachesWorkbook(t *testing.T) {
	sender := &fakeSender{}
	job := &ExportEmailJob{
		Catalog: fakeLister{products: catalog()},
		Rules:   inventory.DefaultRules(),
		Sender:  sender,
		Metrics: metrics(),
		clock:   func() time.Time { return now },
	}
	task, err := NewExportEmailTask(ExportEmailPayload{Page: "low-stock", To: "ops@example.com"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "Low Stock Products", msg.Subject)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "LowStock_List.xlsx", msg.Attachments[0].Name)

	book, err := excelize.OpenReader(bytes.NewReader(msg.Attachments[0].Data))
	require.NoError(t, err)
	rows, err := book.GetRows("LowStock")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PT002", rows[1][0])
}

func TestExportEmailJobRejectsUnknownPage(t *testing.T) {
	job := &ExportEmailJob{Catalog: fakeLister{}, Sender: &fakeSender{}}
	task, err := NewExportEmailTask(ExportEmailPayload{Page: "ledger", To: "ops@example.com"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	_, err = NewExportEmailTask(ExportEmailPayload{Page: "products"})
	assert.Error(t, err)
}

func TestDraftPurgeJobDeletesOldDrafts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	job := &DraftPurgeJob{Store: wizard.NewPGStore(mock), Metrics: metrics(), clock: func() time.Time { return now }}
	mock.ExpectExec(`DELETE FROM wizard_drafts WHERE updated_at`).WithArgs(now.Add(-48 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	task, err := NewDraftPurgeTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSMTPMailerFormatsAttachments(t *testing.T) {
	var gotTo []string
	var raw []byte
	m := NewSMTPMailer("mail.local", 1025, "no-reply@apexpos.local", nil)
	m.now = func() time.Time { return now }
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "mail.local:1025", addr)
		assert.Equal(t, "no-reply@apexpos.local", from)
		gotTo, raw = to, msg
		return nil
	}

	err := m.Send(context.Background(), Message{
		To:          []string{"ops@example.com"},
		Subject:     "Low Stock Products",
		Body:        "see attached",
		Attachments: []Attachment{{Name: "LowStock_List.xlsx", ContentType: export.ContentTypeXLSX, Data: bytes.Repeat([]byte("x"), 100)}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	text := string(raw)
	assert.Contains(t, text, "Subject: Low Stock Products\r\n")
	assert.Contains(t, text, "Content-Type: multipart/mixed; boundary=")
	assert.Contains(t, text, `Content-Disposition: attachment; filename=LowStock_List.xlsx`)
	for _, line := range strings.Split(text, "\r\n") {
		assert.LessOrEqual(t, len(line), 998)
	}

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
}

type fakeInspector struct {
	err error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.QueueInfo{Queue: queue, Pending: 2, Failed: 1}, nil
}

func TestHandlerHealthAndScanTrigger(t *testing.T) {
	h := NewHandler(fakeInspector{}, &Client{queue: &fakeQueue{}}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /stock-scan", h.stockScan)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"queue":"default","pending":2,"failed":1},{"queue":"mail","pending":2,"failed":1}]`, rr.Body.String())

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/stock-scan", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)

	dup := NewHandler(fakeInspector{err: errors.New("redis gone")}, &Client{queue: &fakeQueue{err: asynq.ErrDuplicateTask}}, nil)
	rr = httptest.NewRecorder()
	dup.stockScan(rr, httptest.NewRequest(http.MethodPost, "/stock-scan", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	dup.health(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
