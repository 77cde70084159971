package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"payflow/internal/domain"
)

// MockWorkflowRepo is a mock implementation of port.WorkflowRepository.
type MockWorkflowRepo struct {
	mock.Mock
}

func (m *MockWorkflowRepo) Create(ctx context.Context, record *domain.WorkflowRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockWorkflowRepo) Update(ctx context.Context, record *domain.WorkflowRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockWorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkflowRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowRepo) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*domain.WorkflowRecord, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowRepo) List(ctx context.Context, status domain.InvoiceStatus, limit, offset int) ([]domain.WorkflowRecord, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WorkflowRecord), args.Error(1)
}

func (m *MockWorkflowRepo) AppendLog(ctx context.Context, id uuid.UUID, entry domain.StepLogEntry) error {
	args := m.Called(ctx, id, entry)
	return args.Error(0)
}
