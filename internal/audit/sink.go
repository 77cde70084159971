// Package audit provides the append-only audit trail sink. Audit failures
// are self-logged and never surface to the calling operation.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"payflow/internal/domain"
	"payflow/internal/port"
)

// Store persists audit events.
type Store interface {
	Insert(ctx context.Context, event *domain.AuditEvent) error
}

type sink struct {
	store Store
}

// NewSink wraps a store with the never-fail recording policy.
func NewSink(store Store) port.AuditSink {
	return &sink{store: store}
}

func (s *sink) Record(ctx context.Context, event domain.AuditEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := s.store.Insert(ctx, &event); err != nil {
		log.Printf("audit.Sink.Record: failed to record %s for invoice %s: %v",
			event.EventType, event.InvoiceNumber, err)
	}
}

// NewLogSink returns a sink that only writes audit events to the process
// log, for development setups without a database.
func NewLogSink() port.AuditSink {
	return &logSink{}
}

type logSink struct{}

func (*logSink) Record(_ context.Context, event domain.AuditEvent) {
	log.Printf("[AUDIT] %s invoice=%s details=%s", event.EventType, event.InvoiceNumber, string(event.Details))
}
