package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 2 * time.Second

func New(addr string) *redis.Client {
	r := redis.NewClient(&redis.Options{Addr: addr})
	// WithTimeout returns a new client; the receiver keeps its defaults.
	return r.WithTimeout(opTimeout)
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}
