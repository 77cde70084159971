package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"payflow/internal/audit"
	"payflow/internal/domain"
)

type auditRepo struct {
	db *sqlx.DB
}

// NewAuditRepo creates a new PostgreSQL-backed audit store.
func NewAuditRepo(db *sqlx.DB) audit.Store {
	return &auditRepo{db: db}
}

func (r *auditRepo) Insert(ctx context.Context, event *domain.AuditEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, event_type, invoice_number, details, event_user, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, event.EventType, event.InvoiceNumber, event.Details, event.User, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("auditRepo.Insert: %w", err)
	}
	return nil
}
