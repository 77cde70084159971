package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrPONotFound         = errors.New("PO not found")
	ErrGoodsReceiptNotFound = errors.New("goods receipt not found")
	ErrExchangeRateNotFound = errors.New("exchange rate not available")
	ErrDuplicateInvoice   = errors.New("duplicate invoice detected")
	ErrInvalidTransition  = errors.New("invalid workflow transition")
	ErrGatewayTimeout     = errors.New("gateway call timed out")
	ErrPaymentNotScheduled = errors.New("payment could not be scheduled")
	ErrMaxRetriesExceeded = errors.New("maximum retry limit reached")
)

// ProcessingError carries the failure taxonomy through the pipeline so
// callers can decide retry vs. terminal handling without matching on
// message strings.
type ProcessingError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// NewProcessingError wraps err with an error kind.
func NewProcessingError(kind ErrorKind, err error) *ProcessingError {
	return &ProcessingError{Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, defaulting to processing_error.
// Timeouts are recognized both by kind and by the sentinel so that adapters
// can return ErrGatewayTimeout directly.
func KindOf(err error) ErrorKind {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	if errors.Is(err, ErrGatewayTimeout) {
		return ErrKindTimeout
	}
	return ErrKindProcessing
}

// Retryable reports whether the failure is transient infrastructure trouble
// worth another attempt. Business-rule failures are terminal on first
// occurrence.
func Retryable(err error) bool {
	switch KindOf(err) {
	case ErrKindTimeout, ErrKindExchangeRate, ErrKindProcessing:
		return true
	default:
		return false
	}
}

// ValidationError reports a missing or malformed required field. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}
