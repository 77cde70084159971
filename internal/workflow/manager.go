package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"payflow/internal/domain"
	"payflow/internal/port"
)

// Manager drives workflow records through the state machine and keeps the
// append-only processing log in sync.
type Manager struct {
	repo port.WorkflowRepository
}

func NewManager(repo port.WorkflowRepository) *Manager {
	return &Manager{repo: repo}
}

// Start creates a workflow record in the new state for an invoice.
func (m *Manager) Start(ctx context.Context, invoiceNumber string) (*domain.WorkflowRecord, error) {
	now := time.Now().UTC()
	record := &domain.WorkflowRecord{
		ID:            uuid.New(),
		InvoiceNumber: invoiceNumber,
		Status:        domain.StatusNew,
		ProcessingLog: []domain.StepLogEntry{
			{Timestamp: now, Status: domain.StatusNew, Message: "workflow created"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("creating workflow for invoice %s: %w", invoiceNumber, err)
	}
	log.Printf("workflow.Manager.Start: created workflow %s for invoice %s", record.ID, invoiceNumber)
	return record, nil
}

// Transition moves a workflow record to the target status, appending a log
// entry. Disallowed edges fail with ErrInvalidTransition and leave the
// record untouched.
func (m *Manager) Transition(ctx context.Context, record *domain.WorkflowRecord, to domain.InvoiceStatus, message string) error {
	if err := CheckTransition(record.Status, to); err != nil {
		return err
	}

	entry := domain.StepLogEntry{
		Timestamp: time.Now().UTC(),
		Status:    to,
		Message:   message,
	}
	record.Status = to
	record.ProcessingLog = append(record.ProcessingLog, entry)
	record.UpdatedAt = entry.Timestamp

	if err := m.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("updating workflow %s: %w", record.ID, err)
	}
	if err := m.repo.AppendLog(ctx, record.ID, entry); err != nil {
		return fmt.Errorf("appending log for workflow %s: %w", record.ID, err)
	}
	log.Printf("workflow.Manager.Transition: workflow %s (invoice %s) -> %s", record.ID, record.InvoiceNumber, to)
	return nil
}

// Fail moves a workflow record into the exception state and records the
// failure message on the record.
func (m *Manager) Fail(ctx context.Context, record *domain.WorkflowRecord, cause string) error {
	record.Error = cause
	return m.Transition(ctx, record, domain.StatusException, cause)
}

// RecordMatchResult stores the serialized match result on the record.
func (m *Manager) RecordMatchResult(ctx context.Context, record *domain.WorkflowRecord, result domain.MatchResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling match result for workflow %s: %w", record.ID, err)
	}
	record.MatchResult = raw
	record.UpdatedAt = time.Now().UTC()
	if err := m.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("updating workflow %s: %w", record.ID, err)
	}
	return nil
}

// IncrementRetry bumps the retry counter on the record and persists it.
func (m *Manager) IncrementRetry(ctx context.Context, record *domain.WorkflowRecord) error {
	record.RetryCount++
	record.UpdatedAt = time.Now().UTC()
	if err := m.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("updating workflow %s: %w", record.ID, err)
	}
	return nil
}

// Get returns a workflow record by id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*domain.WorkflowRecord, error) {
	return m.repo.GetByID(ctx, id)
}

// GetByInvoice returns the workflow record for an invoice number.
func (m *Manager) GetByInvoice(ctx context.Context, invoiceNumber string) (*domain.WorkflowRecord, error) {
	return m.repo.GetByInvoiceNumber(ctx, invoiceNumber)
}

// List returns workflow records filtered by status.
func (m *Manager) List(ctx context.Context, status domain.InvoiceStatus, limit, offset int) ([]domain.WorkflowRecord, error) {
	return m.repo.List(ctx, status, limit, offset)
}
