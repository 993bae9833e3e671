package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest observed product prices.
type PriceCache interface {
	SetPrice(ctx context.Context, productID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, productID string) (float64, time.Time, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking. The trade loop acquires a
// per-product lock so at most one cycle is ever in flight for a product.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
