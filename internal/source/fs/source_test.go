package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInvoice(t *testing.T, dir, name, invoiceNumber string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := `{"invoice_number":"` + invoiceNumber + `","vendor_id":"VEND-1","currency":"USD","total_amount":"100"}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestListPendingSkipsProcessedAndNonJSON(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir)
	require.NoError(t, err)
	ctx := context.Background()

	fresh := writeInvoice(t, dir, "a.json", "INV-1")
	done := writeInvoice(t, dir, "b.json", "INV-2")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, src.MarkProcessed(ctx, done))

	pending, err := src.ListPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{fresh}, pending)
}

func TestFetchDecodesInvoice(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir)
	require.NoError(t, err)

	path := writeInvoice(t, dir, "a.json", "INV-1")
	inv, err := src.Fetch(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "INV-1", inv.InvoiceNumber)
	assert.Equal(t, path, inv.FilePath)
	assert.False(t, inv.CreatedAt.IsZero())
}

func TestFetchRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir)
	require.NoError(t, err)

	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err = src.Fetch(context.Background(), path)
	assert.Error(t, err)
}

func TestMarkProcessedIsIdempotentForListing(t *testing.T) {
	dir := t.TempDir()
	src, err := NewSource(dir)
	require.NoError(t, err)
	ctx := context.Background()

	path := writeInvoice(t, dir, "a.json", "INV-1")
	require.NoError(t, src.MarkProcessed(ctx, path))
	require.NoError(t, src.MarkProcessed(ctx, path))

	pending, err := src.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
