package historyexport

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payflow/internal/domain"
)

func TestWriteEntries(t *testing.T) {
	details, err := json.Marshal(domain.MatchResult{
		Matched:         true,
		ConfidenceScore: 0.97,
		Classification:  domain.MatchFull,
		Details: domain.MatchDetails{
			MatchedFields: []string{"vendor_id", "total_amount"},
		},
	})
	require.NoError(t, err)

	entries := []domain.HistoryEntry{
		{
			InvoiceNumber:   "INV-2024-001",
			Status:          domain.StatusScheduled,
			ConfidenceScore: 0.97,
			MatchDetails:    details,
			ProcessingSecs:  1.25,
			CreatedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			InvoiceNumber: "INV-2024-002",
			Status:        domain.StatusException,
			CreatedAt:     time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteEntries(entries))
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.Contains(t, out, "Invoice Number,Status,Confidence Score")
	assert.Contains(t, out, "INV-2024-001,scheduled,0.9700,full_match,vendor_id; total_amount")
	assert.Contains(t, out, "INV-2024-002,exception,0.0000,,,,,0.000,2026-08-01T12:05:00Z")
}
