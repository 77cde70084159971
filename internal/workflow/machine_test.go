package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"payflow/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.InvoiceStatus
		want     bool
	}{
		{domain.StatusNew, domain.StatusProcessing, true},
		{domain.StatusProcessing, domain.StatusMatched, true},
		{domain.StatusProcessing, domain.StatusException, true},
		{domain.StatusProcessing, domain.StatusRejected, true},
		{domain.StatusMatched, domain.StatusScheduled, true},
		{domain.StatusMatched, domain.StatusException, true},
		{domain.StatusScheduled, domain.StatusPaid, true},
		{domain.StatusScheduled, domain.StatusException, true},
		{domain.StatusException, domain.StatusProcessing, true},
		{domain.StatusException, domain.StatusRejected, true},

		// every path out of new goes through processing
		{domain.StatusNew, domain.StatusMatched, false},
		{domain.StatusNew, domain.StatusScheduled, false},
		{domain.StatusNew, domain.StatusPaid, false},
		{domain.StatusNew, domain.StatusException, false},
		// no skipping ahead
		{domain.StatusProcessing, domain.StatusScheduled, false},
		{domain.StatusProcessing, domain.StatusPaid, false},
		{domain.StatusMatched, domain.StatusPaid, false},
		// terminal states admit nothing
		{domain.StatusPaid, domain.StatusProcessing, false},
		{domain.StatusRejected, domain.StatusProcessing, false},
		// no going backwards
		{domain.StatusScheduled, domain.StatusMatched, false},
		{domain.StatusMatched, domain.StatusProcessing, false},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(domain.StatusPaid, domain.StatusProcessing)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "paid -> processing")

	assert.NoError(t, CheckTransition(domain.StatusNew, domain.StatusProcessing))
}
