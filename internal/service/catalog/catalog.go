// internal/service/catalog/catalog.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/redis"
)

// ErrProductNotFound 表示商品不存在或已下架不可见。
var ErrProductNotFound = errors.New("product not found")

// 目录缓存与库存键、领券队列分属不同命名空间
const productCacheKeyPattern = "catalog:product:{%d}"

// Product 是订单侧消费的商品只读视图。
type Product struct {
	ID           uint64 `gorm:"primaryKey" json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Stock        int64  `json:"stock"`
	IsActive     bool   `json:"isActive"`
	IsOutOfStock bool   `json:"isOutOfStock"`
	SoldCount    int64  `json:"soldCount"`
}

func (Product) TableName() string { return "products" }

// Service 提供商品读取。普通读走读穿缓存，带锁读绕过缓存直达数据库。
type Service struct {
	db          *gorm.DB
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewService(db *gorm.DB, redisClient *redis.Client) *Service {
	return &Service{db: db, redisClient: redisClient, cacheTTL: 10 * time.Minute}
}

func productCacheKey(productID uint64) string {
	return fmt.Sprintf(productCacheKeyPattern, productID)
}

// GetProduct 读穿缓存获取商品。缓存故障降级为直接查库。
func (s *Service) GetProduct(ctx context.Context, productID uint64) (*Product, error) {
	key := productCacheKey(productID)
	raw, err := s.redisClient.GetClient().Get(ctx, key).Bytes()
	if err == nil {
		var cached Product
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return &cached, nil
		}
	} else if err != goredis.Nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("product_id", productID).Msg("product cache read failed")
	}

	var product Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if payload, err := json.Marshal(&product); err == nil {
		if err := s.redisClient.GetClient().Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("product_id", productID).Msg("product cache write failed")
		}
	}
	return &product, nil
}

// GetProductWithLock 在给定事务内以行锁读取商品。
func (s *Service) GetProductWithLock(ctx context.Context, tx *gorm.DB, productID uint64) (*Product, error) {
	var product Product
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}
