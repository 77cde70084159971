package noop

import (
	"context"
	"log"

	"payflow/internal/domain"
	"payflow/internal/port"
)

type noopSink struct{}

// NewSink creates a no-op NotificationSink that logs events to stdout.
func NewSink() port.NotificationSink {
	return &noopSink{}
}

func (s *noopSink) Notify(_ context.Context, event domain.NotificationEventType, invoice *domain.Invoice, detail string) error {
	log.Printf("[NOOP NOTIFY] %s for invoice %s (%s %s): %s",
		event, invoice.InvoiceNumber, invoice.TotalAmount.StringFixed(2), invoice.Currency, detail)
	return nil
}
