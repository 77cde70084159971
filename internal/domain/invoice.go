package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtractedFields is the document processor's output for one invoice.
// Zero-valued fields are treated as absent and never overwrite existing data.
type ExtractedFields struct {
	InvoiceNumber string          `json:"invoice_number"`
	VendorID      string          `json:"vendor_id"`
	VendorName    string          `json:"vendor_name"`
	VendorEmail   string          `json:"vendor_email"`
	PONumber      string          `json:"po_number"`
	Currency      string          `json:"currency"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	LineItems     []LineItem      `json:"line_items"`
	GRExempt      bool            `json:"gr_exempt"`
}

// Merge applies extracted fields onto the invoice. Extraction wins for any
// field it populated; existing values survive otherwise.
func (inv *Invoice) Merge(ext ExtractedFields) {
	if ext.InvoiceNumber != "" {
		inv.InvoiceNumber = ext.InvoiceNumber
	}
	if ext.VendorID != "" {
		inv.VendorID = ext.VendorID
	}
	if ext.VendorName != "" {
		inv.VendorName = ext.VendorName
	}
	if ext.VendorEmail != "" {
		inv.VendorEmail = ext.VendorEmail
	}
	if ext.PONumber != "" {
		inv.PONumber = ext.PONumber
	}
	if ext.Currency != "" {
		inv.Currency = ext.Currency
	}
	if !ext.TotalAmount.IsZero() {
		inv.TotalAmount = ext.TotalAmount
	}
	if len(ext.LineItems) > 0 {
		inv.LineItems = ext.LineItems
	}
	if ext.GRExempt {
		inv.GRExempt = true
	}
	inv.UpdatedAt = time.Now().UTC()
}

// Validate checks the required fields and the total-amount invariant:
// TotalAmount must equal the sum of line totals within tolerance.
// tolerance is a relative ratio (e.g. 0.01 for 1%).
func (inv *Invoice) Validate(tolerance decimal.Decimal) error {
	switch {
	case inv.InvoiceNumber == "":
		return &ValidationError{Field: "invoice_number", Reason: "required"}
	case inv.VendorID == "":
		return &ValidationError{Field: "vendor_id", Reason: "required"}
	case inv.Currency == "":
		return &ValidationError{Field: "currency", Reason: "required"}
	case inv.TotalAmount.IsNegative():
		return &ValidationError{Field: "total_amount", Reason: "must not be negative"}
	}

	for _, item := range inv.LineItems {
		if item.Quantity < 0 {
			return &ValidationError{Field: "line_items", Reason: "negative quantity"}
		}
		if item.UnitPrice.IsNegative() {
			return &ValidationError{Field: "line_items", Reason: "negative unit price"}
		}
		expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		if !expected.Equal(item.Total.Round(2)) {
			return &ValidationError{Field: "line_items", Reason: "line total does not equal quantity * unit price"}
		}
	}

	if len(inv.LineItems) > 0 {
		sum := decimal.Zero
		for _, item := range inv.LineItems {
			sum = sum.Add(item.Total)
		}
		diff := inv.TotalAmount.Sub(sum).Abs()
		if diff.GreaterThan(inv.TotalAmount.Abs().Mul(tolerance)) {
			return &ValidationError{Field: "total_amount", Reason: "does not equal sum of line item totals"}
		}
	}
	return nil
}

// Snapshot returns a flattened map of the invoice for caching and
// notification payloads. Decimal fields are rendered as strings.
func (inv *Invoice) Snapshot() map[string]any {
	items := make([]map[string]any, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, map[string]any{
			"sku":         item.SKU,
			"description": item.Description,
			"quantity":    item.Quantity,
			"unit_price":  item.UnitPrice.String(),
			"total":       item.Total.String(),
		})
	}
	return map[string]any{
		"invoice_number": inv.InvoiceNumber,
		"vendor_id":      inv.VendorID,
		"vendor_name":    inv.VendorName,
		"po_number":      inv.PONumber,
		"total_amount":   inv.TotalAmount.String(),
		"currency":       inv.Currency,
		"status":         string(inv.Status),
		"line_items":     items,
	}
}
