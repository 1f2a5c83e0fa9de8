// internal/cache/product_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/shopora/shopora-backend/internal/config"
	"github.com/shopora/shopora-backend/internal/models"
)

const storefrontTTL = 5 * time.Minute

// ProductCache is a best-effort redis cache in front of the public
// storefront listings. A cache miss or a redis outage falls through to the
// database; callers never fail on cache errors.
type ProductCache struct {
	client *redis.Client
}

func NewProductCache(cfg config.RedisConfig) *ProductCache {
	return &ProductCache{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr(),
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *ProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *ProductCache) Close() error {
	return c.client.Close()
}

func storefrontKey(storeID string) string {
	return fmt.Sprintf("storefront:%s:products", storeID)
}

func (c *ProductCache) GetStorefront(ctx context.Context, storeID string) ([]models.Product, error) {
	data, err := c.client.Get(ctx, storefrontKey(storeID)).Result()
	if err != nil {
		return nil, err
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *ProductCache) SetStorefront(ctx context.Context, storeID string, products []models.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, storefrontKey(storeID), data, storefrontTTL).Err()
}

// InvalidateStorefront drops the cached listing after any catalog write.
func (c *ProductCache) InvalidateStorefront(ctx context.Context, storeID string) error {
	return c.client.Del(ctx, storefrontKey(storeID)).Err()
}
