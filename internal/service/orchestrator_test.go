package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payflow/internal/config"
	"payflow/internal/domain"
	"payflow/internal/matcher"
	"payflow/internal/workflow"
	"payflow/mocks"
)

type orchestratorFixture struct {
	erp      *mocks.MockERPGateway
	source   *mocks.MockSourceManager
	repo     *mocks.MockWorkflowRepo
	history  *mocks.MockHistoryRepo
	audit    *mocks.MockAuditSink
	notifier *mocks.MockNotificationSink
	cache    *mocks.MockInvoiceCache
	metrics  *mocks.MockMetrics
	orch     *Orchestrator
}

func newFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		erp:      new(mocks.MockERPGateway),
		source:   new(mocks.MockSourceManager),
		repo:     new(mocks.MockWorkflowRepo),
		history:  new(mocks.MockHistoryRepo),
		audit:    new(mocks.MockAuditSink),
		notifier: new(mocks.MockNotificationSink),
		cache:    new(mocks.MockInvoiceCache),
		metrics:  new(mocks.MockMetrics),
	}

	// Workflow persistence and observability are incidental to most
	// scenarios; accept everything by default.
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("AppendLog", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.history.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return()
	f.cache.On("Put", mock.Anything, mock.Anything).Return(nil)
	f.metrics.On("SetQueueSize", mock.Anything).Return()
	f.metrics.On("IncActiveWorkers").Return()
	f.metrics.On("DecActiveWorkers").Return()
	f.metrics.On("RecordInvoiceProcessed", mock.Anything).Return()
	f.metrics.On("RecordError", mock.Anything).Return()
	f.metrics.On("ObserveProcessingTime", mock.Anything).Return()
	f.metrics.On("ObserveAmount", mock.Anything).Return()
	f.metrics.On("ObserveConfidence", mock.Anything).Return()

	cfg := config.ProcessingConfig{
		MaxRetries:      3,
		RetryDelay:      0,
		DefaultCurrency: "USD",
		Concurrency:     2,
	}
	f.orch = NewOrchestrator(
		f.erp, nil, f.source, workflow.NewManager(f.repo),
		f.history, f.audit, f.notifier, f.cache, f.metrics, nil,
		matcher.DefaultThresholds(), cfg,
	)
	return f
}

func testInvoice() *domain.Invoice {
	return &domain.Invoice{
		InvoiceNumber: "INV-2024-001",
		VendorID:      "VEND-42",
		VendorName:    "Acme Hardware",
		PONumber:      "PO-9001",
		Currency:      "USD",
		TotalAmount:   decimal.NewFromInt(50000),
		LineItems: []domain.LineItem{
			{
				SKU:         "LAPTOP-001",
				Description: "Business Laptop 14 inch",
				Quantity:    50,
				UnitPrice:   decimal.NewFromInt(1000),
				Total:       decimal.NewFromInt(50000),
			},
		},
	}
}

func testPO() *domain.PurchaseOrder {
	return &domain.PurchaseOrder{
		PONumber:    "PO-9001",
		VendorID:    "VEND-42",
		Status:      domain.POStatusCompleted,
		TotalAmount: decimal.NewFromInt(50000),
		LineItems: []domain.LineItem{
			{
				SKU:         "LAPTOP-001",
				Description: "Business Laptop 14 inch",
				Quantity:    50,
				UnitPrice:   decimal.NewFromInt(1000),
				Total:       decimal.NewFromInt(50000),
			},
		},
	}
}

func testGR() *domain.GoodsReceipt {
	return &domain.GoodsReceipt{
		GRNumber: "GR-5001",
		PONumber: "PO-9001",
		LineItems: []domain.GoodsReceiptItem{
			{SKU: "LAPTOP-001", ReceivedQuantity: 50},
		},
	}
}

func TestProcessOneHappyPathEndsScheduled(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(testPO(), nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.erp.On("SchedulePayment", mock.Anything, mock.Anything).Return("2026-09-15", nil)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceMatched, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, inv.Status)
	f.erp.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestProcessOneDuplicateShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(true, nil)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceException, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	// A duplicate is terminal for the invoice but not a batch failure.
	require.NoError(t, err)
	assert.Equal(t, domain.StatusException, inv.Status)
	f.erp.AssertNotCalled(t, "GetPurchaseOrder", mock.Anything, mock.Anything)
	f.metrics.AssertCalled(t, "RecordError", domain.ErrKindDuplicate)
}

func TestProcessOneMismatchEndsException(t *testing.T) {
	f := newFixture(t)
	po := testPO()
	po.TotalAmount = decimal.NewFromInt(45000)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(po, nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceException, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusException, inv.Status)
	// Business mismatches are not retried.
	f.erp.AssertNumberOfCalls(t, "GetPurchaseOrder", 1)
	f.metrics.AssertCalled(t, "RecordError", domain.ErrKindMatchFailure)
	f.erp.AssertNotCalled(t, "SchedulePayment", mock.Anything, mock.Anything)
}

func TestProcessOneValidationFailureNotRetried(t *testing.T) {
	f := newFixture(t)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceException, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	inv.VendorID = ""
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusException, inv.Status)
	f.metrics.AssertCalled(t, "RecordError", domain.ErrKindValidation)
	f.cache.AssertNotCalled(t, "Seen", mock.Anything, mock.Anything)
}

func TestProcessOneExchangeRateFailureExhaustsRetries(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetExchangeRate", mock.Anything, "EUR", "USD").Return(0.0, domain.ErrExchangeRateNotFound)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceException, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	inv.Currency = "EUR"
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)
	assert.Equal(t, domain.StatusException, inv.Status)
	assert.Equal(t, 3, inv.RetryCount)
	f.erp.AssertNumberOfCalls(t, "GetExchangeRate", 3)
	f.metrics.AssertCalled(t, "RecordError", domain.ErrKindMaxRetries)
}

func TestProcessOneTimeoutKeepsItsErrorType(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(nil, domain.ErrGatewayTimeout)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceException, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.Error(t, err)
	assert.Equal(t, domain.ErrKindTimeout, domain.KindOf(err))
	f.erp.AssertNumberOfCalls(t, "GetPurchaseOrder", 3)
	f.metrics.AssertCalled(t, "RecordError", domain.ErrKindTimeout)
}

func TestProcessOneConvertsCurrencyBeforeMatching(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetExchangeRate", mock.Anything, "EUR", "USD").Return(2.0, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(testPO(), nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.erp.On("SchedulePayment", mock.Anything, mock.Anything).Return("2026-09-15", nil)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceMatched, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	inv.Currency = "EUR"
	inv.TotalAmount = decimal.NewFromInt(25000)
	inv.LineItems[0].UnitPrice = decimal.NewFromInt(500)
	inv.LineItems[0].Total = decimal.NewFromInt(25000)

	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, "USD", inv.Currency)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, domain.StatusScheduled, inv.Status)
}

func TestProcessOnePaymentFailureEndsException(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(testPO(), nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.erp.On("SchedulePayment", mock.Anything, mock.Anything).Return("", errors.New("erp rejected payment request"))
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceException, mock.Anything, mock.Anything).Return(nil)

	inv := testInvoice()
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusException, inv.Status)
	// ERP rejections are business failures; one attempt only.
	f.erp.AssertNumberOfCalls(t, "SchedulePayment", 1)
	f.metrics.AssertCalled(t, "RecordError", domain.ErrKindPayment)
}

func TestProcessOneToleratesSinkFailures(t *testing.T) {
	f := &orchestratorFixture{
		erp:      new(mocks.MockERPGateway),
		source:   new(mocks.MockSourceManager),
		repo:     new(mocks.MockWorkflowRepo),
		history:  new(mocks.MockHistoryRepo),
		audit:    new(mocks.MockAuditSink),
		notifier: new(mocks.MockNotificationSink),
		cache:    new(mocks.MockInvoiceCache),
		metrics:  new(mocks.MockMetrics),
	}
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("Update", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("AppendLog", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return()
	f.metrics.On("RecordInvoiceProcessed", mock.Anything).Return()
	f.metrics.On("ObserveProcessingTime", mock.Anything).Return()
	f.metrics.On("ObserveAmount", mock.Anything).Return()
	f.metrics.On("ObserveConfidence", mock.Anything).Return()
	f.orch = NewOrchestrator(
		f.erp, nil, f.source, workflow.NewManager(f.repo),
		f.history, f.audit, f.notifier, f.cache, f.metrics, nil,
		matcher.DefaultThresholds(),
		config.ProcessingConfig{MaxRetries: 3, DefaultCurrency: "USD", Concurrency: 2},
	)

	// Every best-effort sink fails; the pipeline still completes.
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, errors.New("redis down"))
	f.cache.On("Put", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	f.history.On("Record", mock.Anything, mock.Anything).Return(errors.New("db write failed"))
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp unreachable"))
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(testPO(), nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.erp.On("SchedulePayment", mock.Anything, mock.Anything).Return("2026-09-15", nil)

	inv := testInvoice()
	err := f.orch.ProcessOneWithRetry(context.Background(), inv)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, inv.Status)
}

func TestProcessBatchContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.cache.On("Seen", mock.Anything, "INV-2024-002").Return(true, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(testPO(), nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.erp.On("SchedulePayment", mock.Anything, mock.Anything).Return("2026-09-15", nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	good := testInvoice()
	dup := testInvoice()
	dup.InvoiceNumber = "INV-2024-002"

	err := f.orch.ProcessBatch(context.Background(), []*domain.Invoice{good, dup})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusScheduled, good.Status)
	assert.Equal(t, domain.StatusException, dup.Status)
	f.metrics.AssertCalled(t, "SetQueueSize", 2)
	f.metrics.AssertCalled(t, "SetQueueSize", 0)
}

func TestRunOncePullsFetchesAndAcks(t *testing.T) {
	f := newFixture(t)
	inv := testInvoice()
	inv.FilePath = "uploads/inv-001.json"
	f.source.On("ListPending", mock.Anything).Return([]string{"uploads/inv-001.json"}, nil)
	f.source.On("Fetch", mock.Anything, "uploads/inv-001.json").Return(inv, nil)
	f.source.On("MarkProcessed", mock.Anything, "uploads/inv-001.json").Return(nil)
	f.cache.On("Seen", mock.Anything, "INV-2024-001").Return(false, nil)
	f.erp.On("GetPurchaseOrder", mock.Anything, "PO-9001").Return(testPO(), nil)
	f.erp.On("GetGoodsReceipt", mock.Anything, "PO-9001").Return(testGR(), nil)
	f.erp.On("SchedulePayment", mock.Anything, mock.Anything).Return("2026-09-15", nil)
	f.notifier.On("Notify", mock.Anything, domain.NotifyInvoiceMatched, mock.Anything, mock.Anything).Return(nil)

	err := f.orch.RunOnce(context.Background())

	require.NoError(t, err)
	f.source.AssertExpectations(t)
}
