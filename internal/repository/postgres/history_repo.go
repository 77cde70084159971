package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"payflow/internal/domain"
	"payflow/internal/port"
)

type historyRepo struct {
	db *sqlx.DB
}

// NewHistoryRepo creates a new PostgreSQL-backed HistoryRepository.
func NewHistoryRepo(db *sqlx.DB) port.HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO processing_history (invoice_number, status, confidence_score, match_details, processing_secs, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.InvoiceNumber, entry.Status, entry.ConfidenceScore,
		entry.MatchDetails, entry.ProcessingSecs, entry.CreatedAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("historyRepo.Record: %w", err)
	}
	return nil
}

func (r *historyRepo) List(ctx context.Context, filter port.HistoryFilter, limit, offset int) ([]domain.HistoryEntry, error) {
	to := filter.To
	if to.IsZero() {
		to = time.Now().UTC()
	}

	query := `SELECT id, invoice_number, status, confidence_score, match_details, processing_secs, created_at
		 FROM processing_history
		 WHERE created_at >= $1 AND created_at <= $2`
	args := []any{filter.From, to}
	if filter.InvoiceNumber != "" {
		args = append(args, filter.InvoiceNumber)
		query += fmt.Sprintf(" AND invoice_number = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var entries []domain.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("historyRepo.List: %w", err)
	}
	return entries, nil
}
