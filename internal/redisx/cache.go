package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Cache is the worker-facing view of Redis: consumer event dedup and the
// sale-status read cache. Key layout stays in this package; callers never
// format keys themselves. Write failures are swallowed, both uses are
// best-effort on top of the database.
type Cache struct {
	Client *redis.Client
}

func (c *Cache) SeenEvent(ctx context.Context, service, eventID string) bool {
	ok, _ := Exists(ctx, c.Client, fmt.Sprintf(KeyDedup, service, eventID))
	return ok
}

func (c *Cache) MarkEvent(ctx context.Context, service, eventID string) {
	key := fmt.Sprintf(KeyDedup, service, eventID)
	_ = c.Client.Set(ctx, key, "1", TTLDedup).Err()
}

func (c *Cache) SetSaleStatus(ctx context.Context, accountID, saleID, status string) {
	key := fmt.Sprintf(KeySaleStatus, accountID, saleID)
	_ = c.Client.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), TTLStatusCache).Err()
}
