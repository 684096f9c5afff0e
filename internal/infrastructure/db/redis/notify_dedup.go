package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const notifyTTL = 24 * time.Hour

// NotifyDedup guards against double-paging an admin when a collection is
// retried. Key format: notify:<parcel_id>
type NotifyDedup struct {
	client *redis.Client
}

func NewNotifyDedup(client *redis.Client) *NotifyDedup {
	return &NotifyDedup{client: client}
}

// FirstDelivery atomically claims the notification slot for a parcel.
// Returns true when this caller is the first within the TTL window.
func (d *NotifyDedup) FirstDelivery(ctx context.Context, parcelID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(parcelID), "1", notifyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("notify dedup: %w", err)
	}
	return ok, nil
}

func (d *NotifyDedup) key(parcelID string) string {
	return "notify:" + parcelID
}
