package matcher

import (
	"fmt"

	"payflow/internal/domain"
)

// Weights for the three-way aggregate and the PO sub-score.
const (
	poWeight     = 0.4
	grWeight     = 0.3
	amountWeight = 0.3

	vendorWeight   = 0.4
	lineItemWeight = 0.6
)

// Thresholds holds the tunable limits for a match run.
type Thresholds struct {
	AmountTolerance              float64
	ConfidenceThreshold          float64
	MinConfidenceScore           float64
	PartialMatchMaxDiscrepancies int
	LineItemQuantityTolerance    int
	PriceTolerancePercentage     float64
}

// DefaultThresholds returns the standard matching profile.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AmountTolerance:              0.01,
		ConfidenceThreshold:          0.85,
		MinConfidenceScore:           0.8,
		PartialMatchMaxDiscrepancies: 2,
		LineItemQuantityTolerance:    0,
		PriceTolerancePercentage:     0.001,
	}
}

// Match reconciles an invoice against its purchase order and goods receipt.
// It is a pure function: identical inputs always produce an identical result.
func Match(inv *domain.Invoice, po *domain.PurchaseOrder, gr *domain.GoodsReceipt, t Thresholds) domain.MatchResult {
	res := domain.MatchResult{
		Details: domain.MatchDetails{
			SubScores: make(map[string]float64),
		},
	}

	if po == nil {
		res.Classification = domain.MatchFailed
		res.Errors = append(res.Errors, "PO not found")
		res.Details.MissingFields = append(res.Details.MissingFields, "purchase_order")
		return res
	}

	if po.Status == domain.POStatusCancelled {
		res.Classification = domain.MatchFailed
		res.Details.MismatchedFields = append(res.Details.MismatchedFields, "PO is cancelled")
		return res
	}

	vendorScore := compareVendor(inv, po, &res.Details)
	lineScore := compareLineItems(inv, po, t, &res.Details)
	poScore := vendorWeight*vendorScore + lineItemWeight*lineScore

	grRequired := po.Status == domain.POStatusCompleted && !inv.GRExempt
	grScore := 1.0
	if grRequired {
		grScore = compareGoodsReceipt(inv, gr, &res.Details)
	}

	amountMatched, amountScore := compareAmounts(inv.TotalAmount, po.TotalAmount, t.AmountTolerance)
	if amountMatched {
		res.Details.MatchedFields = append(res.Details.MatchedFields, "total_amount")
	} else {
		res.Details.MismatchedFields = append(res.Details.MismatchedFields,
			fmt.Sprintf("total amount mismatch: invoice %s vs PO %s",
				inv.TotalAmount.StringFixed(2), po.TotalAmount.StringFixed(2)))
	}

	res.Details.SubScores["vendor"] = vendorScore
	res.Details.SubScores["line_items"] = lineScore
	res.Details.SubScores["po"] = poScore
	res.Details.SubScores["goods_receipt"] = grScore
	res.Details.SubScores["amount"] = amountScore

	res.ConfidenceScore = aggregate(poScore, grScore, amountScore)

	discrepancies := res.Details.Discrepancies()
	res.Matched = len(res.Details.MismatchedFields) == 0 &&
		len(res.Details.MissingFields) == 0 &&
		res.ConfidenceScore >= t.MinConfidenceScore

	switch {
	case res.Matched:
		res.Classification = domain.MatchFull
	case discrepancies > 0 && discrepancies <= t.PartialMatchMaxDiscrepancies:
		res.Classification = domain.MatchPartial
	default:
		res.Classification = domain.MatchFailed
	}

	return res
}

// aggregate combines the three component scores into the weighted confidence.
func aggregate(poScore, grScore, amountScore float64) float64 {
	return poWeight*poScore + grWeight*grScore + amountWeight*amountScore
}
