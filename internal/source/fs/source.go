// Package fs provides a filesystem invoice source: a drop directory of JSON
// invoice files, with sidecar marker files preventing re-ingestion.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"payflow/internal/domain"
)

const processedSuffix = ".processed"

// Source watches a directory for invoice documents.
type Source struct {
	dir string
}

func NewSource(dir string) (*Source, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating source directory %s: %w", dir, err)
	}
	return &Source{dir: dir}, nil
}

// ListPending returns paths of invoice files that have no processed marker,
// oldest first.
func (s *Source) ListPending(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory %s: %w", s.dir, err)
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var pending []candidate
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, processedSuffix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.dir, name)
		if _, err := os.Stat(path + processedSuffix); err == nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		pending = append(pending, candidate{path: path, modTime: info.ModTime()})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].modTime.Before(pending[j].modTime) })

	refs := make([]string, len(pending))
	for i, c := range pending {
		refs[i] = c.path
	}
	return refs, nil
}

// Fetch reads and decodes an invoice document.
func (s *Source) Fetch(ctx context.Context, ref string) (*domain.Invoice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("reading invoice %s: %w", ref, err)
	}
	var inv domain.Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("decoding invoice %s: %w", ref, err)
	}
	inv.FilePath = ref
	inv.Status = domain.StatusNew
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	return &inv, nil
}

// MarkProcessed drops a sidecar marker next to the invoice file so it is
// not ingested again.
func (s *Source) MarkProcessed(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	marker := ref + processedSuffix
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := os.WriteFile(marker, []byte(stamp+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing marker %s: %w", marker, err)
	}
	log.Printf("fs.Source.MarkProcessed: %s", ref)
	return nil
}
