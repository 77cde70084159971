package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"payflow/internal/domain"
)

// MockERPGateway is a mock implementation of port.ERPGateway.
type MockERPGateway struct {
	mock.Mock
}

func (m *MockERPGateway) GetPurchaseOrder(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PurchaseOrder), args.Error(1)
}

func (m *MockERPGateway) GetGoodsReceipt(ctx context.Context, poNumber string) (*domain.GoodsReceipt, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GoodsReceipt), args.Error(1)
}

func (m *MockERPGateway) GetExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	args := m.Called(ctx, fromCurrency, toCurrency)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockERPGateway) SchedulePayment(ctx context.Context, invoice *domain.Invoice) (string, error) {
	args := m.Called(ctx, invoice)
	return args.String(0), args.Error(1)
}
