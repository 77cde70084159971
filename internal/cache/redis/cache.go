// Package redis provides the invoice snapshot cache used for duplicate
// suppression and quick lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"payflow/internal/config"
	"payflow/internal/domain"
)

const keyPrefix = "invoice:"

// Cache stores invoice snapshots keyed by invoice number.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(cfg *config.RedisConfig) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Cache{client: client, ttl: cfg.TTL}
}

// Ping verifies connectivity, for readiness checks.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Seen reports whether an invoice number has already been cached.
func (c *Cache) Seen(ctx context.Context, invoiceNumber string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+invoiceNumber).Result()
	if err != nil {
		return false, fmt.Errorf("checking invoice %s: %w", invoiceNumber, err)
	}
	return n > 0, nil
}

// Put stores the invoice snapshot under its invoice number.
func (c *Cache) Put(ctx context.Context, invoice *domain.Invoice) error {
	raw, err := json.Marshal(invoice.Snapshot())
	if err != nil {
		return fmt.Errorf("marshaling snapshot for %s: %w", invoice.InvoiceNumber, err)
	}
	if err := c.client.Set(ctx, keyPrefix+invoice.InvoiceNumber, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching invoice %s: %w", invoice.InvoiceNumber, err)
	}
	return nil
}

// Get returns the cached snapshot, or ErrNotFound when absent.
func (c *Cache) Get(ctx context.Context, invoiceNumber string) (map[string]any, error) {
	raw, err := c.client.Get(ctx, keyPrefix+invoiceNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: invoice %s", domain.ErrNotFound, invoiceNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching invoice %s: %w", invoiceNumber, err)
	}
	var snapshot map[string]any
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding snapshot for %s: %w", invoiceNumber, err)
	}
	return snapshot, nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
