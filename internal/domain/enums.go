package domain

// InvoiceStatus represents the workflow state of an invoice.
type InvoiceStatus string

const (
	StatusNew        InvoiceStatus = "new"
	StatusProcessing InvoiceStatus = "processing"
	StatusMatched    InvoiceStatus = "matched"
	StatusScheduled  InvoiceStatus = "scheduled"
	StatusPaid       InvoiceStatus = "paid"
	StatusException  InvoiceStatus = "exception"
	StatusRejected   InvoiceStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
// Exception is terminal only once retries are exhausted; the workflow
// manager tracks that separately.
func (s InvoiceStatus) Terminal() bool {
	return s == StatusPaid || s == StatusRejected
}

// POStatus represents the lifecycle state of a purchase order in the ERP.
type POStatus string

const (
	POStatusPending   POStatus = "pending"
	POStatusCompleted POStatus = "completed"
	POStatusCancelled POStatus = "cancelled"
)

// MatchClassification buckets a match result by discrepancy count.
type MatchClassification string

const (
	MatchFull    MatchClassification = "full_match"
	MatchPartial MatchClassification = "partial_match"
	MatchFailed  MatchClassification = "match_failed"
)

// ErrorKind labels a processing failure for metrics and retry decisions.
type ErrorKind string

const (
	ErrKindValidation   ErrorKind = "validation_error"
	ErrKindProcessing   ErrorKind = "processing_error"
	ErrKindDuplicate    ErrorKind = "duplicate_invoice"
	ErrKindExchangeRate ErrorKind = "exchange_rate_error"
	ErrKindTimeout      ErrorKind = "timeout_error"
	ErrKindMatchFailure ErrorKind = "po_mismatch"
	ErrKindPayment      ErrorKind = "payment_error"
	ErrKindMaxRetries   ErrorKind = "max_retries_exceeded"
)

// AuditEventType identifies the kind of audit trail entry.
type AuditEventType string

const (
	AuditStatusChange     AuditEventType = "invoice_status_change"
	AuditInvoiceException AuditEventType = "invoice_exception"
	AuditInvoiceMatched   AuditEventType = "invoice_matched"
	AuditPaymentScheduled AuditEventType = "payment_scheduled"
	AuditWorkflowCreated  AuditEventType = "workflow_created"
)

// NotificationEventType identifies outbound notification events.
type NotificationEventType string

const (
	NotifyInvoiceMatched   NotificationEventType = "invoice_matched"
	NotifyInvoiceException NotificationEventType = "invoice_exception"
)
