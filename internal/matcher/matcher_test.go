package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow/internal/domain"
)

func laptopInvoice() *domain.Invoice {
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

func laptopPO() *domain.PurchaseOrder {
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

func laptopGR() *domain.GoodsReceipt {
	return &domain.GoodsReceipt{
		GRNumber: "GR-5001",
		PONumber: "PO-9001",
		LineItems: []domain.GoodsReceiptItem{
			{SKU: "LAPTOP-001", ReceivedQuantity: 50},
		},
	}
}

func TestMatchFullThreeWay(t *testing.T) {
	res := Match(laptopInvoice(), laptopPO(), laptopGR(), DefaultThresholds())

	require.True(t, res.Matched)
	assert.Equal(t, domain.MatchFull, res.Classification)
	assert.Empty(t, res.Details.MismatchedFields)
	assert.Empty(t, res.Details.MissingFields)
	assert.InDelta(t, 1.0, res.ConfidenceScore, 1e-9)
}

func TestMatchIsIdempotent(t *testing.T) {
	inv, po, gr := laptopInvoice(), laptopPO(), laptopGR()
	first := Match(inv, po, gr, DefaultThresholds())
	second := Match(inv, po, gr, DefaultThresholds())
	assert.Equal(t, first, second)
}

func TestMatchPONotFound(t *testing.T) {
	res := Match(laptopInvoice(), nil, nil, DefaultThresholds())

	assert.False(t, res.Matched)
	assert.Equal(t, domain.MatchFailed, res.Classification)
	assert.Zero(t, res.ConfidenceScore)
	assert.Contains(t, res.Errors, "PO not found")
	assert.Contains(t, res.Details.MissingFields, "purchase_order")
}

func TestMatchCancelledPO(t *testing.T) {
	po := laptopPO()
	po.Status = domain.POStatusCancelled

	res := Match(laptopInvoice(), po, laptopGR(), DefaultThresholds())

	assert.False(t, res.Matched)
	assert.Equal(t, domain.MatchFailed, res.Classification)
	assert.Contains(t, res.Details.MismatchedFields, "PO is cancelled")
	// The cancelled check short-circuits before any field comparison.
	assert.Empty(t, res.Details.MatchedFields)
}

func TestMatchAmountMismatch(t *testing.T) {
	po := laptopPO()
	po.TotalAmount = decimal.NewFromInt(45000)

	res := Match(laptopInvoice(), po, laptopGR(), DefaultThresholds())

	assert.False(t, res.Matched)
	require.NotEmpty(t, res.Details.MismatchedFields)
	assert.Contains(t, res.Details.MismatchedFields[0], "total amount mismatch")
}

func TestMatchVendorMismatchIsPartial(t *testing.T) {
	po := laptopPO()
	po.VendorID = "VEND-99"

	res := Match(laptopInvoice(), po, laptopGR(), DefaultThresholds())

	assert.False(t, res.Matched)
	assert.Equal(t, domain.MatchPartial, res.Classification)
	assert.Equal(t, 0.0, res.Details.SubScores["vendor"])
}

func TestMatchFuzzyDescriptionFallback(t *testing.T) {
	inv := laptopInvoice()
	inv.LineItems[0].SKU = "LT-001" // vendor uses its own sku scheme
	inv.LineItems[0].Description = "Business laptop, 14-inch"

	res := Match(inv, laptopPO(), laptopGR(), DefaultThresholds())

	assert.Contains(t, res.Details.MatchedFields, "line_item:LT-001")
	assert.NotContains(t, res.Details.MissingFields, "item LT-001 not found in PO")
}

func TestMatchFuzzyRejectsPriceOutOfTolerance(t *testing.T) {
	inv := laptopInvoice()
	inv.LineItems[0].SKU = "LT-001"
	inv.LineItems[0].UnitPrice = decimal.NewFromInt(1200)

	res := Match(inv, laptopPO(), laptopGR(), DefaultThresholds())

	assert.Contains(t, res.Details.MissingFields, "item LT-001 not found in PO")
}

func TestMatchOverInvoicingAgainstReceipt(t *testing.T) {
	gr := laptopGR()
	gr.LineItems[0].ReceivedQuantity = 40

	res := Match(laptopInvoice(), laptopPO(), gr, DefaultThresholds())

	assert.False(t, res.Matched)
	require.NotEmpty(t, res.Details.MismatchedFields)
	assert.Contains(t, res.Details.MismatchedFields[0], "over-invoiced")
	assert.Equal(t, 0.0, res.Details.SubScores["goods_receipt"])
}

func TestMatchGRNotRequiredForPendingPO(t *testing.T) {
	po := laptopPO()
	po.Status = domain.POStatusPending

	res := Match(laptopInvoice(), po, nil, DefaultThresholds())

	assert.True(t, res.Matched)
	assert.Equal(t, 1.0, res.Details.SubScores["goods_receipt"])
}

func TestMatchGRExemptInvoice(t *testing.T) {
	inv := laptopInvoice()
	inv.GRExempt = true

	res := Match(inv, laptopPO(), nil, DefaultThresholds())

	assert.True(t, res.Matched)
	assert.Equal(t, 1.0, res.Details.SubScores["goods_receipt"])
}

func TestMatchMissingGoodsReceipt(t *testing.T) {
	res := Match(laptopInvoice(), laptopPO(), nil, DefaultThresholds())

	assert.False(t, res.Matched)
	assert.Contains(t, res.Details.MissingFields, "goods_receipt")
}

func TestCompareAmountsToleranceBoundary(t *testing.T) {
	// Exactly 1% apart matches; just over does not.
	matched, _ := compareAmounts(decimal.NewFromInt(100), decimal.NewFromInt(99), 0.01)
	assert.True(t, matched)

	matched, _ = compareAmounts(decimal.NewFromFloat(100), decimal.NewFromFloat(98.98), 0.01)
	assert.False(t, matched)
}

func TestCompareAmountsZeroZero(t *testing.T) {
	matched, confidence := compareAmounts(decimal.Zero, decimal.Zero, 0.01)
	assert.True(t, matched)
	assert.Equal(t, 1.0, confidence)
}

func TestCompareAmountsConfidenceScales(t *testing.T) {
	_, exact := compareAmounts(decimal.NewFromInt(100), decimal.NewFromInt(100), 0.01)
	assert.Equal(t, 1.0, exact)

	_, atEdge := compareAmounts(decimal.NewFromInt(100), decimal.NewFromInt(99), 0.01)
	assert.InDelta(t, 0.0, atEdge, 1e-9)

	_, far := compareAmounts(decimal.NewFromInt(100), decimal.NewFromInt(50), 0.01)
	assert.Equal(t, 0.0, far)
}

func TestAggregateWeights(t *testing.T) {
	assert.InDelta(t, 0.7, aggregate(1.0, 0.0, 1.0), 1e-9)
	assert.InDelta(t, 1.0, aggregate(1.0, 1.0, 1.0), 1e-9)
	assert.InDelta(t, 0.0, aggregate(0.0, 0.0, 0.0), 1e-9)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("business laptop", "business laptop"))
	assert.Greater(t, similarity("business laptop 14 inch", "business laptop 14 in"), 0.85)
	assert.Less(t, similarity("business laptop", "ergonomic chair"), 0.5)
}

func TestNormalizeDescription(t *testing.T) {
	assert.Equal(t, "business laptop 14 inch",
		normalizeDescription("  Business-Laptop,  14\" INCH! "))
}
