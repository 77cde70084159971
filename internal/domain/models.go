package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItem is a single billed line on an invoice or purchase order.
type LineItem struct {
	SKU         string          `db:"sku" json:"sku"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Total       decimal.Decimal `db:"total" json:"total"`
}

// Invoice represents a vendor invoice moving through the workflow.
// Terminal statuses are immutable snapshots; the orchestrator and matcher
// are the only mutators.
type Invoice struct {
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	VendorID      string          `db:"vendor_id" json:"vendor_id"`
	VendorName    string          `db:"vendor_name" json:"vendor_name"`
	VendorEmail   string          `db:"vendor_email" json:"vendor_email,omitempty"`
	PONumber      string          `db:"po_number" json:"po_number,omitempty"`
	Currency      string          `db:"currency" json:"currency"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	LineItems     []LineItem      `db:"-" json:"line_items"`
	Status        InvoiceStatus   `db:"status" json:"status"`
	// GRExempt marks invoices that settle on vendor+amount alone, with no
	// goods-receipt requirement even against a completed PO.
	GRExempt   bool      `db:"gr_exempt" json:"gr_exempt,omitempty"`
	FilePath   string    `db:"file_path" json:"file_path,omitempty"`
	RetryCount int       `db:"retry_count" json:"retry_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PurchaseOrder is the ERP-side order record an invoice is validated against.
// Read-only to the core.
type PurchaseOrder struct {
	PONumber    string          `json:"po_number"`
	VendorID    string          `json:"vendor_id"`
	VendorTaxID string          `json:"vendor_tax_id,omitempty"`
	Currency    string          `json:"currency"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      POStatus        `json:"status"`
	LineItems   []LineItem      `json:"line_items"`
}

// GoodsReceiptItem records quantities received for one SKU.
type GoodsReceiptItem struct {
	SKU              string `json:"sku"`
	ReceivedQuantity int    `json:"received_quantity"`
}

// GoodsReceipt is the ERP-side receipt record for a purchase order.
// Read-only to the core.
type GoodsReceipt struct {
	GRNumber  string             `json:"gr_number"`
	PONumber  string             `json:"po_number"`
	LineItems []GoodsReceiptItem `json:"line_items"`
}

// ReceivedQuantity sums the received quantity across receipt entries for sku.
func (gr *GoodsReceipt) ReceivedQuantity(sku string) int {
	total := 0
	for _, item := range gr.LineItems {
		if item.SKU == sku {
			total += item.ReceivedQuantity
		}
	}
	return total
}

// MatchDetails breaks a match result down by field.
type MatchDetails struct {
	MatchedFields    []string           `json:"matched_fields"`
	MismatchedFields []string           `json:"mismatched_fields"`
	MissingFields    []string           `json:"missing_fields"`
	SubScores        map[string]float64 `json:"confidence_scores"`
}

// Discrepancies counts mismatched plus missing fields.
func (d *MatchDetails) Discrepancies() int {
	return len(d.MismatchedFields) + len(d.MissingFields)
}

// MatchResult is the outcome of a three-way match attempt. Produced fresh
// per attempt and never mutated afterwards.
type MatchResult struct {
	Matched         bool                `json:"matched"`
	ConfidenceScore float64             `json:"confidence_score"`
	Classification  MatchClassification `json:"classification"`
	Details         MatchDetails        `json:"match_details"`
	Errors          []string            `json:"errors"`
}

// StepLogEntry is one immutable entry in a workflow's processing log.
type StepLogEntry struct {
	Timestamp time.Time     `db:"created_at" json:"timestamp"`
	Status    InvoiceStatus `db:"status" json:"status"`
	Message   string        `db:"message" json:"message"`
	Error     string        `db:"error" json:"error,omitempty"`
}

// WorkflowRecord tracks one invoice's passage through the pipeline.
// The processing log is append-only.
type WorkflowRecord struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	Status        InvoiceStatus   `db:"status" json:"status"`
	ProcessingLog []StepLogEntry  `db:"-" json:"processing_log"`
	MatchResult   json.RawMessage `db:"match_result" json:"match_result,omitempty"`
	RetryCount    int             `db:"retry_count" json:"retry_count"`
	Error         string          `db:"error" json:"error,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is a flattened record of one completed processing run.
type HistoryEntry struct {
	ID             int64           `db:"id" json:"id"`
	InvoiceNumber  string          `db:"invoice_number" json:"invoice_number"`
	Status         InvoiceStatus   `db:"status" json:"status"`
	ConfidenceScore float64        `db:"confidence_score" json:"confidence_score"`
	MatchDetails   json.RawMessage `db:"match_details" json:"match_details"`
	ProcessingSecs float64         `db:"processing_secs" json:"processing_time"`
	CreatedAt      time.Time       `db:"created_at" json:"timestamp"`
}

// AuditEvent is one append-only audit trail entry.
type AuditEvent struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	EventType     AuditEventType  `db:"event_type" json:"event_type"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	Details       json.RawMessage `db:"details" json:"details"`
	User          string          `db:"event_user" json:"user,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
