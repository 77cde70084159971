// Package mock provides an in-memory ERP gateway for local development
// and integration testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payflow/internal/domain"
)

// Gateway serves purchase orders, goods receipts and exchange rates from
// memory. Safe for concurrent use.
type Gateway struct {
	mu             sync.RWMutex
	purchaseOrders map[string]*domain.PurchaseOrder
	goodsReceipts  map[string]*domain.GoodsReceipt
	exchangeRates  map[string]float64
	scheduled      map[string]string

	// Latency, when set, is applied to every call to exercise timeout
	// handling in callers.
	Latency time.Duration
}

func NewGateway() *Gateway {
	return &Gateway{
		purchaseOrders: make(map[string]*domain.PurchaseOrder),
		goodsReceipts:  make(map[string]*domain.GoodsReceipt),
		exchangeRates:  make(map[string]float64),
		scheduled:      make(map[string]string),
	}
}

// SeedPurchaseOrder registers a PO.
func (g *Gateway) SeedPurchaseOrder(po *domain.PurchaseOrder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.purchaseOrders[po.PONumber] = po
}

// SeedGoodsReceipt registers a goods receipt under its PO number.
func (g *Gateway) SeedGoodsReceipt(gr *domain.GoodsReceipt) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.goodsReceipts[gr.PONumber] = gr
}

// SeedExchangeRate registers a conversion rate for a currency pair.
func (g *Gateway) SeedExchangeRate(from, to string, rate float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.exchangeRates[from+"/"+to] = rate
}

func (g *Gateway) GetPurchaseOrder(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	po, ok := g.purchaseOrders[poNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPONotFound, poNumber)
	}
	return po, nil
}

func (g *Gateway) GetGoodsReceipt(ctx context.Context, poNumber string) (*domain.GoodsReceipt, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	gr, ok := g.goodsReceipts[poNumber]
	if !ok {
		return nil, fmt.Errorf("%w: no receipt for PO %s", domain.ErrGoodsReceiptNotFound, poNumber)
	}
	return gr, nil
}

func (g *Gateway) GetExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	if err := g.wait(ctx); err != nil {
		return 0, err
	}
	if fromCurrency == toCurrency {
		return 1.0, nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	rate, ok := g.exchangeRates[fromCurrency+"/"+toCurrency]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", domain.ErrExchangeRateNotFound, fromCurrency, toCurrency)
	}
	return rate, nil
}

// SchedulePayment books a payment for the invoice and returns the payment
// date. Scheduling is idempotent per invoice number.
func (g *Gateway) SchedulePayment(ctx context.Context, invoice *domain.Invoice) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if date, ok := g.scheduled[invoice.InvoiceNumber]; ok {
		return date, nil
	}
	date := time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
	g.scheduled[invoice.InvoiceNumber] = date
	return date, nil
}

func (g *Gateway) wait(ctx context.Context) error {
	if g.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", domain.ErrGatewayTimeout, ctx.Err())
	case <-timer.C:
		return nil
	}
}
