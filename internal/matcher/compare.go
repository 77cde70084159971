package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"payflow/internal/domain"
)

var nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)

func compareVendor(inv *domain.Invoice, po *domain.PurchaseOrder, details *domain.MatchDetails) float64 {
	if inv.VendorID == po.VendorID {
		details.MatchedFields = append(details.MatchedFields, "vendor_id")
		return 1.0
	}
	details.MismatchedFields = append(details.MismatchedFields,
		fmt.Sprintf("vendor mismatch: invoice %s vs PO %s", inv.VendorID, po.VendorID))
	return 0.0
}

// compareLineItems pairs invoice lines with PO lines by sku, falling back to a
// fuzzy description match, and scores quantity and unit price per pair. Each
// line contributes three subfields (presence, quantity, price) to the score.
func compareLineItems(inv *domain.Invoice, po *domain.PurchaseOrder, t Thresholds, details *domain.MatchDetails) float64 {
	if len(inv.LineItems) == 0 {
		return 1.0
	}

	consumed := make(map[int]bool, len(po.LineItems))
	matchedSubfields := 0
	totalSubfields := 3 * len(inv.LineItems)

	for _, item := range inv.LineItems {
		idx := findBySKU(po.LineItems, consumed, item.SKU)
		if idx < 0 {
			idx = findByDescription(po.LineItems, consumed, item, t)
		}
		if idx < 0 {
			details.MissingFields = append(details.MissingFields,
				fmt.Sprintf("item %s not found in PO", item.SKU))
			continue
		}
		consumed[idx] = true
		poItem := po.LineItems[idx]

		matchedSubfields++
		details.MatchedFields = append(details.MatchedFields, "line_item:"+item.SKU)

		qtyDiff := item.Quantity - poItem.Quantity
		if qtyDiff < 0 {
			qtyDiff = -qtyDiff
		}
		if qtyDiff <= t.LineItemQuantityTolerance {
			matchedSubfields++
		} else {
			details.MismatchedFields = append(details.MismatchedFields,
				fmt.Sprintf("item %s quantity mismatch: invoice %d vs PO %d",
					item.SKU, item.Quantity, poItem.Quantity))
		}

		if priceWithinTolerance(item.UnitPrice, poItem.UnitPrice, t.PriceTolerancePercentage) {
			matchedSubfields++
		} else {
			details.MismatchedFields = append(details.MismatchedFields,
				fmt.Sprintf("item %s unit price mismatch: invoice %s vs PO %s",
					item.SKU, item.UnitPrice.StringFixed(2), poItem.UnitPrice.StringFixed(2)))
		}
	}

	for i, poItem := range po.LineItems {
		if !consumed[i] {
			details.MissingFields = append(details.MissingFields,
				fmt.Sprintf("PO item %s missing from invoice", poItem.SKU))
		}
	}

	return float64(matchedSubfields) / float64(totalSubfields)
}

func findBySKU(items []domain.LineItem, consumed map[int]bool, sku string) int {
	for i, item := range items {
		if !consumed[i] && item.SKU == sku {
			return i
		}
	}
	return -1
}

// findByDescription returns the best unconsumed PO candidate whose normalized
// description similarity clears the threshold and whose unit price is within
// tolerance of the invoice line. Returns -1 when no candidate qualifies.
func findByDescription(items []domain.LineItem, consumed map[int]bool, line domain.LineItem, t Thresholds) int {
	best := -1
	bestScore := 0.0
	target := normalizeDescription(line.Description)
	for i, item := range items {
		if consumed[i] {
			continue
		}
		score := similarity(target, normalizeDescription(item.Description))
		if score >= t.ConfidenceThreshold && score > bestScore &&
			priceWithinTolerance(line.UnitPrice, item.UnitPrice, t.PriceTolerancePercentage) {
			best = i
			bestScore = score
		}
	}
	return best
}

// compareGoodsReceipt verifies that every invoiced quantity is covered by the
// received quantities. Over-invoicing against the receipt is a hard mismatch.
func compareGoodsReceipt(inv *domain.Invoice, gr *domain.GoodsReceipt, details *domain.MatchDetails) float64 {
	if gr == nil {
		details.MissingFields = append(details.MissingFields, "goods_receipt")
		return 0.0
	}
	if len(inv.LineItems) == 0 {
		return 1.0
	}

	matched := 0
	for _, item := range inv.LineItems {
		received := gr.ReceivedQuantity(item.SKU)
		if received >= item.Quantity {
			matched++
			details.MatchedFields = append(details.MatchedFields, "goods_receipt:"+item.SKU)
		} else {
			details.MismatchedFields = append(details.MismatchedFields,
				fmt.Sprintf("item %s over-invoiced: invoice qty %d vs received %d",
					item.SKU, item.Quantity, received))
		}
	}
	return float64(matched) / float64(len(inv.LineItems))
}

// compareAmounts compares two totals with a relative tolerance. Both amounts
// being exactly zero is an exact match with full confidence.
func compareAmounts(a, b decimal.Decimal, tolerance float64) (bool, float64) {
	if a.IsZero() && b.IsZero() {
		return true, 1.0
	}

	maxAbs := decimal.Max(a.Abs(), b.Abs())
	ratio := a.Sub(b).Abs().Div(maxAbs)
	tol := decimal.NewFromFloat(tolerance)

	matched := ratio.LessThanOrEqual(tol)

	confidence := 1.0
	if tol.IsPositive() {
		rf, _ := ratio.Div(tol).Float64()
		confidence = 1.0 - rf
	} else if !ratio.IsZero() {
		confidence = 0.0
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return matched, confidence
}

func priceWithinTolerance(a, b decimal.Decimal, tolerance float64) bool {
	if a.Equal(b) {
		return true
	}
	maxAbs := decimal.Max(a.Abs(), b.Abs())
	if maxAbs.IsZero() {
		return true
	}
	ratio := a.Sub(b).Abs().Div(maxAbs)
	return ratio.LessThanOrEqual(decimal.NewFromFloat(tolerance))
}

func normalizeDescription(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// similarity is a normalized Levenshtein ratio in [0,1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}
