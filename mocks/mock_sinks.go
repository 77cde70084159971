package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"payflow/internal/domain"
	"payflow/internal/port"
)

// MockSourceManager is a mock implementation of port.SourceManager.
type MockSourceManager struct {
	mock.Mock
}

func (m *MockSourceManager) ListPending(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSourceManager) Fetch(ctx context.Context, ref string) (*domain.Invoice, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invoice), args.Error(1)
}

func (m *MockSourceManager) MarkProcessed(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockDocumentProcessor is a mock implementation of port.DocumentProcessor.
type MockDocumentProcessor struct {
	mock.Mock
}

func (m *MockDocumentProcessor) Extract(ctx context.Context, filePath string) (*domain.ExtractedFields, error) {
	args := m.Called(ctx, filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedFields), args.Error(1)
}

// MockAuditSink is a mock implementation of port.AuditSink.
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Record(ctx context.Context, event domain.AuditEvent) {
	m.Called(ctx, event)
}

// MockNotificationSink is a mock implementation of port.NotificationSink.
type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) Notify(ctx context.Context, event domain.NotificationEventType, invoice *domain.Invoice, detail string) error {
	args := m.Called(ctx, event, invoice, detail)
	return args.Error(0)
}

// MockInvoiceCache is a mock implementation of port.InvoiceCache.
type MockInvoiceCache struct {
	mock.Mock
}

func (m *MockInvoiceCache) Seen(ctx context.Context, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceCache) Put(ctx context.Context, invoice *domain.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceCache) Get(ctx context.Context, invoiceNumber string) (map[string]any, error) {
	args := m.Called(ctx, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// MockHistoryRepo is a mock implementation of port.HistoryRepository.
type MockHistoryRepo struct {
	mock.Mock
}

func (m *MockHistoryRepo) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryRepo) List(ctx context.Context, filter port.HistoryFilter, limit, offset int) ([]domain.HistoryEntry, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HistoryEntry), args.Error(1)
}

// MockMetrics is a mock implementation of port.MetricsCollector. Calls are
// recorded but never asserted by default.
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) SetQueueSize(n int)                                  { m.Called(n) }
func (m *MockMetrics) IncActiveWorkers()                                   { m.Called() }
func (m *MockMetrics) DecActiveWorkers()                                   { m.Called() }
func (m *MockMetrics) RecordInvoiceProcessed(status domain.InvoiceStatus)  { m.Called(status) }
func (m *MockMetrics) RecordError(kind domain.ErrorKind)                   { m.Called(kind) }
func (m *MockMetrics) ObserveProcessingTime(d time.Duration)               { m.Called(d) }
func (m *MockMetrics) ObserveAmount(amount float64)                        { m.Called(amount) }
func (m *MockMetrics) ObserveConfidence(score float64)                     { m.Called(score) }
