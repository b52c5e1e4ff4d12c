// internal/service/point/infrastructure/balance_cache.go
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"ecommerce/internal/pkg/redis"
)

const balanceKeyPattern = "point:balance:{%d}"

// BalanceCache 缓存用户积分余额，只做加速读，权威数据在 points 表。
// 所有写入都是尽力而为，偏差在下一次缓存未命中时被重建修正。
type BalanceCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

func NewBalanceCache(redisClient *redis.Client) *BalanceCache {
	return &BalanceCache{redisClient: redisClient, ttl: time.Hour}
}

func balanceKey(userID uint64) string {
	return fmt.Sprintf(balanceKeyPattern, userID)
}

// Get 返回缓存的余额。未命中时 exists 为 false。
func (c *BalanceCache) Get(ctx context.Context, userID uint64) (balance int64, exists bool, err error) {
	val, err := c.redisClient.GetClient().Get(ctx, balanceKey(userID)).Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "point balance get")
	}
	return val, true, nil
}

// Set 重建缓存余额。
func (c *BalanceCache) Set(ctx context.Context, userID uint64, balance int64) error {
	return c.redisClient.GetClient().Set(ctx, balanceKey(userID), balance, c.ttl).Err()
}

// Add 按增量调整缓存余额。键不存在时不做任何事，等待下次重建。
func (c *BalanceCache) Add(ctx context.Context, userID uint64, delta int64) error {
	key := balanceKey(userID)
	exists, err := c.redisClient.GetClient().Exists(ctx, key).Result()
	if err != nil {
		return errors.Wrap(err, "point balance exists")
	}
	if exists == 0 {
		return nil
	}
	return c.redisClient.GetClient().IncrBy(ctx, key, delta).Err()
}

// Invalidate 删除缓存余额，强制下次读取回源重建。
func (c *BalanceCache) Invalidate(ctx context.Context, userID uint64) error {
	return c.redisClient.GetClient().Del(ctx, balanceKey(userID)).Err()
}
