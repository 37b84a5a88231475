package sales

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dukahub/go-pos-sales/internal/checkout"
	"github.com/dukahub/go-pos-sales/internal/redisx"
)

// CachedLookup fronts the repo with a short-TTL Redis cache of product
// snapshots. Previews hammer the lookup on every keystroke; a little
// staleness is acceptable here, the confirmation write re-checks stock
// under a row lock anyway.
type CachedLookup struct {
	Repo  *Repo
	Redis *redis.Client
}

var _ checkout.StockLookup = (*CachedLookup)(nil)

func (l *CachedLookup) Snapshot(ctx context.Context, accountID, productID string) (checkout.ProductSnapshot, error) {
	key := fmt.Sprintf(redisx.KeySnapshot, accountID, productID)
	if s, err := l.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var snap checkout.ProductSnapshot
		if err := json.Unmarshal([]byte(s), &snap); err == nil {
			return snap, nil
		}
		// fall through on a corrupt entry
	}

	snap, err := l.Repo.Snapshot(ctx, accountID, productID)
	if err != nil {
		return checkout.ProductSnapshot{}, err
	}
	if b, err := json.Marshal(snap); err == nil {
		_ = l.Redis.Set(ctx, key, b, redisx.TTLSnapshot).Err()
	}
	return snap, nil
}
