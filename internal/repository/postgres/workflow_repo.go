package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
	"payflow/internal/port"
)

type workflowRepo struct {
	db *sqlx.DB
}

// NewWorkflowRepo creates a new PostgreSQL-backed WorkflowRepository.
func NewWorkflowRepo(db *sqlx.DB) port.WorkflowRepository {
	return &workflowRepo{db: db}
}

func (r *workflowRepo) Create(ctx context.Context, record *domain.WorkflowRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workflow_records (id, invoice_number, status, match_result, retry_count, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.InvoiceNumber, record.Status, record.MatchResult,
		record.RetryCount, record.Error, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("workflowRepo.Create: %w", err)
	}
	for _, entry := range record.ProcessingLog {
		if err := r.AppendLog(ctx, record.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *workflowRepo) Update(ctx context.Context, record *domain.WorkflowRecord) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflow_records
		 SET status = $2, match_result = $3, retry_count = $4, error = $5, updated_at = $6
		 WHERE id = $1`,
		record.ID, record.Status, record.MatchResult, record.RetryCount,
		record.Error, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("workflowRepo.Update: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("workflowRepo.Update rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("workflowRepo.Update: %w: workflow %s", domain.ErrNotFound, record.ID)
	}
	return nil
}

func (r *workflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowRecord, error) {
	var record domain.WorkflowRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT id, invoice_number, status, match_result, retry_count, error, created_at, updated_at
		 FROM workflow_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflowRepo.GetByID: %w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("workflowRepo.GetByID: %w", err)
	}
	if err := r.loadLog(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *workflowRepo) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.WorkflowRecord, error) {
	var record domain.WorkflowRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT id, invoice_number, status, match_result, retry_count, error, created_at, updated_at
		 FROM workflow_records WHERE invoice_number = $1
		 ORDER BY created_at DESC LIMIT 1`, invoiceNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workflowRepo.GetByInvoiceNumber: %w: %s", domain.ErrNotFound, invoiceNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("workflowRepo.GetByInvoiceNumber: %w", err)
	}
	if err := r.loadLog(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *workflowRepo) List(ctx context.Context, status domain.InvoiceStatus, limit, offset int) ([]domain.WorkflowRecord, error) {
	query := `SELECT id, invoice_number, status, match_result, retry_count, error, created_at, updated_at
		 FROM workflow_records`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	var records []domain.WorkflowRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("workflowRepo.List: %w", err)
	}
	return records, nil
}

func (r *workflowRepo) AppendLog(ctx context.Context, id uuid.UUID, entry domain.StepLogEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workflow_log (workflow_id, status, message, error, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, entry.Status, entry.Message, entry.Error, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("workflowRepo.AppendLog: %w", err)
	}
	return nil
}

func (r *workflowRepo) loadLog(ctx context.Context, record *domain.WorkflowRecord) error {
	err := r.db.SelectContext(ctx, &record.ProcessingLog,
		`SELECT status, message, error, created_at
		 FROM workflow_log WHERE workflow_id = $1 ORDER BY created_at ASC, id ASC`,
		record.ID)
	if err != nil {
		return fmt.Errorf("workflowRepo.loadLog: %w", err)
	}
	return nil
}
