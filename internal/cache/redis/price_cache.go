package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes. Each product's
// last observed ticker price is stored as a hash at the namespaced key
// "price:{productID}"
// with fields "price" and "ts" (Unix nanosecond timestamp). The trader
// writes an observation on every ticker read; the monitor mode and any
// external dashboard read it back.
type PriceCache struct {
	c   *Client
	rdb *redis.Client
}

// NewPriceCache creates a PriceCache backed by the given Client.
func NewPriceCache(c *Client) *PriceCache {
	return &PriceCache{c: c, rdb: c.Underlying()}
}

// SetPrice stores the latest observed price and timestamp for a product.
func (pc *PriceCache) SetPrice(ctx context.Context, productID string, price float64, ts time.Time) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, pc.c.Key("price", productID), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", productID, err)
	}
	return nil
}

// GetPrice retrieves the latest observed price and timestamp for a product.
// It returns domain.ErrNotFound when no observation exists.
func (pc *PriceCache) GetPrice(ctx context.Context, productID string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, pc.c.Key("price", productID)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", productID, err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", productID, err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts %s: %w", productID, err)
	}

	return price, time.Unix(0, tsNano), nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
