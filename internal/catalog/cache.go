package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "catalog:product:"

// CachedReader is a read-through redis cache in front of another Reader.
// Only single-product lookups are cached; cache errors fall back to the source.
type CachedReader struct {
	source Reader
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedReader wraps source with a redis cache whose entries live for ttl.
func NewCachedReader(source Reader, rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *CachedReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedReader{source: source, rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CachedReader) Get(ctx context.Context, productID string) (*Product, error) {
	key := keyPrefix + productID

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Product
		if jerr := json.Unmarshal(raw, &p); jerr == nil {
			return &p, nil
		}
		c.logger.Warn("discarding corrupt catalog cache entry", zap.String("product_id", productID))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("catalog cache read failed", zap.String("product_id", productID), zap.Error(err))
	}

	p, err := c.source.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(p); jerr == nil {
		if serr := c.rdb.Set(ctx, key, data, c.ttl).Err(); serr != nil {
			c.logger.Warn("catalog cache write failed", zap.String("product_id", productID), zap.Error(serr))
		}
	}
	return p, nil
}

func (c *CachedReader) List(ctx context.Context, category string) ([]Product, error) {
	return c.source.List(ctx, category)
}
