// Package xlsx provides an ERP gateway backed by an Excel workbook export.
// Finance teams without an ERP API hand over periodic workbook dumps; this
// adapter serves PO, goods receipt and exchange rate lookups from one.
package xlsx

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"payflow/internal/domain"
)

// Expected sheets. PurchaseOrders: po_number, vendor_id, vendor_tax_id,
// currency, total_amount, status. POLineItems: po_number, sku, description,
// quantity, unit_price. GoodsReceipts: gr_number, po_number, sku,
// received_quantity. ExchangeRates: from, to, rate. Row 1 is a header row.
const (
	sheetPurchaseOrders = "PurchaseOrders"
	sheetPOLineItems    = "POLineItems"
	sheetGoodsReceipts  = "GoodsReceipts"
	sheetExchangeRates  = "ExchangeRates"
)

// Gateway serves ERP lookups from a workbook loaded at construction time.
// Reads after Load are lock-free; the data is immutable.
type Gateway struct {
	purchaseOrders map[string]*domain.PurchaseOrder
	goodsReceipts  map[string]*domain.GoodsReceipt
	exchangeRates  map[string]float64
}

// Open loads the workbook at path and builds the lookup tables.
func Open(path string) (*Gateway, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	g := &Gateway{
		purchaseOrders: make(map[string]*domain.PurchaseOrder),
		goodsReceipts:  make(map[string]*domain.GoodsReceipt),
		exchangeRates:  make(map[string]float64),
	}
	if err := g.loadPurchaseOrders(f); err != nil {
		return nil, err
	}
	if err := g.loadPOLineItems(f); err != nil {
		return nil, err
	}
	if err := g.loadGoodsReceipts(f); err != nil {
		return nil, err
	}
	if err := g.loadExchangeRates(f); err != nil {
		return nil, err
	}
	log.Printf("xlsx.Open: loaded %d POs, %d receipts, %d rates from %s",
		len(g.purchaseOrders), len(g.goodsReceipts), len(g.exchangeRates), path)
	return g, nil
}

func (g *Gateway) loadPurchaseOrders(f *excelize.File) error {
	rows, err := f.GetRows(sheetPurchaseOrders)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sheetPurchaseOrders, err)
	}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 6 || strings.TrimSpace(cellVal(row, 0)) == "" {
			continue
		}
		total, err := decimal.NewFromString(strings.TrimSpace(cellVal(row, 4)))
		if err != nil {
			log.Printf("xlsx.loadPurchaseOrders: row %d: bad total %q, skipping", i+1, cellVal(row, 4))
			continue
		}
		po := &domain.PurchaseOrder{
			PONumber:    strings.TrimSpace(cellVal(row, 0)),
			VendorID:    strings.TrimSpace(cellVal(row, 1)),
			VendorTaxID: strings.TrimSpace(cellVal(row, 2)),
			Currency:    strings.TrimSpace(cellVal(row, 3)),
			TotalAmount: total,
			Status:      domain.POStatus(strings.ToLower(strings.TrimSpace(cellVal(row, 5)))),
		}
		g.purchaseOrders[po.PONumber] = po
	}
	return nil
}

func (g *Gateway) loadPOLineItems(f *excelize.File) error {
	rows, err := f.GetRows(sheetPOLineItems)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sheetPOLineItems, err)
	}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 5 {
			continue
		}
		poNumber := strings.TrimSpace(cellVal(row, 0))
		po, ok := g.purchaseOrders[poNumber]
		if !ok {
			log.Printf("xlsx.loadPOLineItems: row %d: unknown PO %s, skipping", i+1, poNumber)
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(cellVal(row, 3)))
		if err != nil {
			continue
		}
		price, err := decimal.NewFromString(strings.TrimSpace(cellVal(row, 4)))
		if err != nil {
			continue
		}
		po.LineItems = append(po.LineItems, domain.LineItem{
			SKU:         strings.TrimSpace(cellVal(row, 1)),
			Description: strings.TrimSpace(cellVal(row, 2)),
			Quantity:    qty,
			UnitPrice:   price,
			Total:       price.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	return nil
}

func (g *Gateway) loadGoodsReceipts(f *excelize.File) error {
	rows, err := f.GetRows(sheetGoodsReceipts)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sheetGoodsReceipts, err)
	}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 4 {
			continue
		}
		poNumber := strings.TrimSpace(cellVal(row, 1))
		if poNumber == "" {
			continue
		}
		qty, err := strconv.Atoi(strings.TrimSpace(cellVal(row, 3)))
		if err != nil {
			continue
		}
		gr, ok := g.goodsReceipts[poNumber]
		if !ok {
			gr = &domain.GoodsReceipt{
				GRNumber: strings.TrimSpace(cellVal(row, 0)),
				PONumber: poNumber,
			}
			g.goodsReceipts[poNumber] = gr
		}
		gr.LineItems = append(gr.LineItems, domain.GoodsReceiptItem{
			SKU:              strings.TrimSpace(cellVal(row, 2)),
			ReceivedQuantity: qty,
		})
	}
	return nil
}

func (g *Gateway) loadExchangeRates(f *excelize.File) error {
	rows, err := f.GetRows(sheetExchangeRates)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sheetExchangeRates, err)
	}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 3 {
			continue
		}
		rate, err := strconv.ParseFloat(strings.TrimSpace(cellVal(row, 2)), 64)
		if err != nil {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(cellVal(row, 0))) + "/" +
			strings.ToUpper(strings.TrimSpace(cellVal(row, 1)))
		g.exchangeRates[key] = rate
	}
	return nil
}

func (g *Gateway) GetPurchaseOrder(ctx context.Context, poNumber string) (*domain.PurchaseOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	po, ok := g.purchaseOrders[poNumber]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPONotFound, poNumber)
	}
	return po, nil
}

func (g *Gateway) GetGoodsReceipt(ctx context.Context, poNumber string) (*domain.GoodsReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gr, ok := g.goodsReceipts[poNumber]
	if !ok {
		return nil, fmt.Errorf("%w: no receipt for PO %s", domain.ErrGoodsReceiptNotFound, poNumber)
	}
	return gr, nil
}

func (g *Gateway) GetExchangeRate(ctx context.Context, fromCurrency, toCurrency string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if fromCurrency == toCurrency {
		return 1.0, nil
	}
	rate, ok := g.exchangeRates[strings.ToUpper(fromCurrency)+"/"+strings.ToUpper(toCurrency)]
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", domain.ErrExchangeRateNotFound, fromCurrency, toCurrency)
	}
	return rate, nil
}

// SchedulePayment has no write path into a workbook export; the payment date
// is computed from standard 30-day terms and recorded by the caller.
func (g *Gateway) SchedulePayment(ctx context.Context, invoice *domain.Invoice) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02"), nil
}

func cellVal(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}
