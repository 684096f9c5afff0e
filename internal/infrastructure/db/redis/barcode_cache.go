package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const barcodeTTL = 10 * time.Minute

// BarcodeCache caches barcode→parcel-id resolutions on the scan hot path.
// Entries are short-lived; a stale hit is re-verified against the store by
// the resolver. Key format: barcode:<code>
type BarcodeCache struct {
	client *redis.Client
}

func NewBarcodeCache(client *redis.Client) *BarcodeCache {
	return &BarcodeCache{client: client}
}

// Get returns the cached parcel id for code, or "" on a miss.
func (c *BarcodeCache) Get(ctx context.Context, code string) (string, error) {
	id, err := c.client.Get(ctx, c.key(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("barcode cache: %w", err)
	}
	return id, nil
}

// Set records a resolution (expires after barcodeTTL).
func (c *BarcodeCache) Set(ctx context.Context, code, parcelID string) error {
	return c.client.Set(ctx, c.key(code), parcelID, barcodeTTL).Err()
}

func (c *BarcodeCache) key(code string) string {
	return "barcode:" + code
}
