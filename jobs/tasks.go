package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueMail carries outgoing email so slow SMTP never blocks scans.
	QueueMail = "mail"

	// TaskTypeSendEmail sends a plain email.
	TaskTypeSendEmail = "mail:send"
	// TaskStockScan classifies the catalog and emails the alert digest.
	TaskStockScan = "inventory:stock_scan"
	// TaskExportEmail renders a list page export and emails it.
	TaskExportEmail = "export:email"
	// TaskDraftPurge deletes abandoned product wizard drafts.
	TaskDraftPurge = "wizard:draft_purge"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// StockScanPayload carries scheduling metadata.
type StockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// ExportEmailPayload names the page and filter to export.
type ExportEmailPayload struct {
	Page  string `json:"page"`
	Query string `json:"query"`
	To    string `json:"to"`
}

// DraftPurgePayload bounds the age of drafts kept.
type DraftPurgePayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	return newTask(TaskTypeSendEmail, payload, asynq.Queue(QueueMail), asynq.MaxRetry(5))
}

// NewStockScanTask constructs the scheduled scan task.
func NewStockScanTask(at time.Time) (*asynq.Task, error) {
	return newTask(TaskStockScan, StockScanPayload{ScheduledFor: at}, asynq.Queue(QueueDefault))
}

// NewExportEmailTask constructs an export-to-email task.
func NewExportEmailTask(payload ExportEmailPayload) (*asynq.Task, error) {
	if payload.Page == "" || payload.To == "" {
		return nil, fmt.Errorf("jobs: export email needs a page and a recipient")
	}
	return newTask(TaskExportEmail, payload, asynq.Queue(QueueMail), asynq.MaxRetry(3))
}

// NewDraftPurgeTask constructs the draft cleanup task.
func NewDraftPurgeTask(maxAge time.Duration) (*asynq.Task, error) {
	return newTask(TaskDraftPurge, DraftPurgePayload{MaxAge: maxAge}, asynq.Queue(QueueDefault))
}

func newTask(typ string, payload any, opts ...asynq.Option) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(typ, body, opts...), nil
}
