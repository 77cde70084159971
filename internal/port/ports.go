package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payflow/internal/domain"
)

// ERPGateway exposes purchase order, goods receipt, exchange rate and payment
// operations backed by the company ERP system.
type ERPGateway interface {
	GetPurchaseOrder(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error)
	GetGoodsReceipt(ctx context.Context, poNumber string) (*domain.GoodsReceipt, error)
	GetExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error)
	SchedulePayment(ctx context.Context, invoice *domain.Invoice) (string, error)
}

// DocumentProcessor extracts structured invoice fields from a raw document.
type DocumentProcessor interface {
	Extract(ctx context.Context, filePath string) (*domain.ExtractedFields, error)
}

// SourceManager lists and acknowledges incoming invoice documents.
type SourceManager interface {
	ListPending(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, ref string) (*domain.Invoice, error)
	MarkProcessed(ctx context.Context, ref string) error
}

// WorkflowRepository persists workflow records and their step logs.
type WorkflowRepository interface {
	Create(ctx context.Context, record *domain.WorkflowRecord) error
	Update(ctx context.Context, record *domain.WorkflowRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowRecord, error)
	GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.WorkflowRecord, error)
	List(ctx context.Context, status domain.InvoiceStatus, limit, offset int) ([]domain.WorkflowRecord, error)
	AppendLog(ctx context.Context, id uuid.UUID, entry domain.StepLogEntry) error
}

// HistoryFilter narrows a processing-history query. Zero fields are
// unconstrained.
type HistoryFilter struct {
	InvoiceNumber string
	Status        string
	From          time.Time
	To            time.Time
}

// HistoryRepository persists the per-invoice processing history used for
// reporting and CSV export.
type HistoryRepository interface {
	Record(ctx context.Context, entry *domain.HistoryEntry) error
	List(ctx context.Context, filter HistoryFilter, limit, offset int) ([]domain.HistoryEntry, error)
}

// AuditSink records audit events. Implementations must not fail the calling
// operation; errors are logged and swallowed.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent)
}

// NotificationSink delivers workflow event notifications.
type NotificationSink interface {
	Notify(ctx context.Context, event domain.NotificationEventType, invoice *domain.Invoice, detail string) error
}

// InvoiceCache caches invoice snapshots keyed by invoice number and answers
// duplicate checks.
type InvoiceCache interface {
	Seen(ctx context.Context, invoiceNumber string) (bool, error)
	Put(ctx context.Context, invoice *domain.Invoice) error
	Get(ctx context.Context, invoiceNumber string) (map[string]any, error)
}

// MetricsCollector records processing metrics.
type MetricsCollector interface {
	SetQueueSize(n int)
	IncActiveWorkers()
	DecActiveWorkers()
	RecordInvoiceProcessed(status domain.InvoiceStatus)
	RecordError(kind domain.ErrorKind)
	ObserveProcessingTime(d time.Duration)
	ObserveAmount(amount float64)
	ObserveConfidence(score float64)
}

// RateLimiter throttles calls to slow external sources.
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}
