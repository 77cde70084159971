package workflow

import (
	"fmt"

	"payflow/internal/domain"
)

// transitions is the allowed edge set of the invoice state machine. Every
// path out of new goes through processing; paid and rejected are terminal.
var transitions = map[domain.InvoiceStatus][]domain.InvoiceStatus{
	domain.StatusNew:        {domain.StatusProcessing},
	domain.StatusProcessing: {domain.StatusMatched, domain.StatusException, domain.StatusRejected},
	domain.StatusMatched:    {domain.StatusScheduled, domain.StatusException},
	domain.StatusScheduled:  {domain.StatusPaid, domain.StatusException},
	domain.StatusException:  {domain.StatusProcessing, domain.StatusRejected},
	domain.StatusPaid:       nil,
	domain.StatusRejected:   nil,
}

// CanTransition reports whether the edge from->to is allowed.
func CanTransition(from, to domain.InvoiceStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns a typed error when the edge from->to is not allowed.
func CheckTransition(from, to domain.InvoiceStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}
	return nil
}
