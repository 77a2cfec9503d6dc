package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/hibiken/asynq"

	"github.com/apexpos/admin/internal/export"
	"github.com/apexpos/admin/internal/inventory"
	jobmetrics "github.com/apexpos/admin/internal/jobs"
	"github.com/apexpos/admin/internal/pages"
)

// SendEmailJob delivers TaskTypeSendEmail tasks.
type SendEmailJob struct {
	Sender  Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle sends one email.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("send email payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("%w: %w", ErrNoRecipient, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskTypeSendEmail)
	defer func() { err = tracker.End(err) }()

	if err := j.Sender.Send(ctx, Message{To: []string{payload.To}, Subject: payload.Subject, Body: payload.Body}); err != nil {
		jobLogger(j.Logger, TaskTypeSendEmail).Warn("send email failed", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	return nil
}

// ExportEmailJob renders a list page export as xlsx and mails it.
type ExportEmailJob struct {
	Catalog ProductLister
	Rules   inventory.Rules
	Sender  Sender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// Handle builds and sends the export.
func (j *ExportEmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	var payload ExportEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("export email payload: %v: %w", err, asynq.SkipRetry)
	}
	rules := j.Rules
	if rules.Location == nil {
		rules = inventory.DefaultRules()
	}
	cfg, ok := pages.Lookup(pages.Registry(rules), payload.Page)
	if !ok || !cfg.Exportable() {
		return fmt.Errorf("export email: page %q cannot be exported: %w", payload.Page, asynq.SkipRetry)
	}
	query, err := url.ParseQuery(payload.Query)
	if err != nil {
		return fmt.Errorf("export email query: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskExportEmail)
	defer func() { err = tracker.End(err) }()

	products, err := j.Catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	if j.clock != nil {
		now = j.clock()
	}
	rows := pages.BuildView(cfg, rules, products, query, now).Products()
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, cfg.Export, rows); err != nil {
		return err
	}
	msg := Message{
		To:      []string{payload.To},
		Subject: cfg.Export.Title,
		Body:    fmt.Sprintf("%s: %d products, exported %s.\n", cfg.Export.Title, len(rows), now.Format("2006-01-02 15:04")),
		Attachments: []Attachment{{
			Name:        cfg.Export.Filename("xlsx"),
			ContentType: export.ContentTypeXLSX,
			Data:        buf.Bytes(),
		}},
	}
	if err := j.Sender.Send(ctx, msg); err != nil {
		return err
	}
	jobLogger(j.Logger, TaskExportEmail).Info("export emailed",
		slog.String("page", payload.Page),
		slog.String("to", payload.To),
		slog.Int("rows", len(rows)),
	)
	return nil
}

// DraftPurger deletes drafts not touched since before.
type DraftPurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// DraftPurgeJob removes abandoned wizard drafts.
type DraftPurgeJob struct {
	Store   DraftPurger
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// Handle runs the purge.
func (j *DraftPurgeJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("draft purge: handler not configured")
	}
	var payload DraftPurgePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("draft purge payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.MaxAge <= 0 {
		payload.MaxAge = 7 * 24 * time.Hour
	}
	tracker := j.Metrics.Track(TaskDraftPurge)
	defer func() { err = tracker.End(err) }()

	now := time.Now()
	if j.clock != nil {
		now = j.clock()
	}
	n, err := j.Store.Purge(ctx, now.Add(-payload.MaxAge))
	if err != nil {
		return err
	}
	j.Metrics.AddPurgedDrafts(n)
	jobLogger(j.Logger, TaskDraftPurge).Info("purged wizard drafts", slog.Int64("deleted", n))
	return nil
}

func jobLogger(logger *slog.Logger, job string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("job", job))
}
