package historyexport

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"payflow/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the CSV header row.
var columns = []string{
	"Invoice Number",
	"Status",
	"Confidence Score",
	"Classification",
	"Matched Fields",
	"Mismatched Fields",
	"Missing Fields",
	"Processing Time (s)",
	"Processed At",
}

// Writer wraps csv.Writer for exporting processing history as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteEntries converts a batch of history entries to CSV rows and writes them.
func (w *Writer) WriteEntries(entries []domain.HistoryEntry) error {
	for i := range entries {
		if err := w.csv.Write(entryToRow(&entries[i])); err != nil {
			return fmt.Errorf("writing row for invoice %s: %w", entries[i].InvoiceNumber, err)
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}

func entryToRow(entry *domain.HistoryEntry) []string {
	classification := ""
	matched, mismatched, missing := "", "", ""
	if len(entry.MatchDetails) > 0 {
		var result domain.MatchResult
		if err := json.Unmarshal(entry.MatchDetails, &result); err == nil {
			classification = string(result.Classification)
			matched = strings.Join(result.Details.MatchedFields, "; ")
			mismatched = strings.Join(result.Details.MismatchedFields, "; ")
			missing = strings.Join(result.Details.MissingFields, "; ")
		}
	}

	return []string{
		entry.InvoiceNumber,
		string(entry.Status),
		strconv.FormatFloat(entry.ConfidenceScore, 'f', 4, 64),
		classification,
		matched,
		mismatched,
		missing,
		strconv.FormatFloat(entry.ProcessingSecs, 'f', 3, 64),
		entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}
