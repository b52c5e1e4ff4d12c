// internal/service/stock/ledger.go
package stock

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/redis"
)

const (
	reserveScriptName = "stock_reserve"

	// KEYS[1]: 库存键, ARGV[1]: 预占数量
	// 返回值: 新余量; -1 库存不足; -2 键不存在
	reserveScript = `
local current = redis.call('GET', KEYS[1])
if current == false then
    return -2
end
current = tonumber(current)
local qty = tonumber(ARGV[1])
if current < qty then
    return -1
end
return redis.call('DECRBY', KEYS[1], qty)
`

	// 哈希标签保证集群模式下同一商品的键落在同一槽位
	stockKeyPattern = "stock:qty:{%d}"
)

// reserveScript 的哨兵返回值
const (
	resultInsufficient = -1
	resultMissingKey   = -2
)

var (
	// ErrOutOfStock 表示余量不足以覆盖本次预占，台账未被改动。
	ErrOutOfStock = errors.New("out of stock")
	// ErrNotSeeded 表示该商品的库存键尚未灌入，调用方应先 Seed 再重试。
	ErrNotSeeded = errors.New("stock key not seeded")
)

// EventPublisher 把台账变更事件投递到异步同步通道。
type EventPublisher interface {
	Publish(ctx context.Context, event StockDeltaEvent) error
}

// Ledger 是库存的权威快速台账，落在 Redis 上。
// 每次成功的预占/释放都会发出一条 StockDeltaEvent，
// 由镜像消费者异步回放到数据库；投递失败只记日志，靠对账兜底。
type Ledger struct {
	redisClient *redis.Client
	publisher   EventPublisher
	tracer      trace.Tracer
}

func NewLedger(redisClient *redis.Client, publisher EventPublisher) (*Ledger, error) {
	if err := redisClient.LoadScriptFromContent(reserveScriptName, reserveScript); err != nil {
		return nil, err
	}
	return &Ledger{
		redisClient: redisClient,
		publisher:   publisher,
		tracer:      otel.Tracer("stock.ledger"),
	}, nil
}

func stockKey(productID uint64) string {
	return fmt.Sprintf(stockKeyPattern, productID)
}

// Reserve 原子地检查并扣减余量，返回扣减后的余量。
// 不足时台账保持不变并返回 ErrOutOfStock。
func (l *Ledger) Reserve(ctx context.Context, productID uint64, qty int64) (int64, error) {
	ctx, span := l.tracer.Start(ctx, "StockLedger.Reserve", trace.WithAttributes(
		attribute.Int64("product.id", int64(productID)),
		attribute.Int64("stock.qty", qty),
	))
	defer span.End()

	result, err := l.redisClient.RunScript(ctx, reserveScriptName, []string{stockKey(productID)}, qty)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve script failed")
		reservationFailuresTotal.WithLabelValues("cache_error").Inc()
		return 0, errors.Wrap(err, "stock reserve script")
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, errors.Errorf("unexpected reserve script result: %v", result)
	}

	switch remaining {
	case resultInsufficient:
		span.AddEvent("insufficient stock")
		reservationFailuresTotal.WithLabelValues("out_of_stock").Inc()
		return 0, ErrOutOfStock
	case resultMissingKey:
		reservationFailuresTotal.WithLabelValues("not_seeded").Inc()
		return 0, ErrNotSeeded
	}

	reservationsTotal.Inc()
	l.publish(ctx, newDeltaEvent(productID, -qty, reasonReserve))
	return remaining, nil
}

// Release 把数量加回台账，用于补偿路径。
func (l *Ledger) Release(ctx context.Context, productID uint64, qty int64) (int64, error) {
	ctx, span := l.tracer.Start(ctx, "StockLedger.Release", trace.WithAttributes(
		attribute.Int64("product.id", int64(productID)),
		attribute.Int64("stock.qty", qty),
	))
	defer span.End()

	remaining, err := l.redisClient.GetClient().IncrBy(ctx, stockKey(productID), qty).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		return 0, errors.Wrap(err, "stock release")
	}

	releasesTotal.Inc()
	l.publish(ctx, newDeltaEvent(productID, qty, reasonRelease))
	return remaining, nil
}

// Read 返回当前余量。键不存在时 exists 为 false。
func (l *Ledger) Read(ctx context.Context, productID uint64) (qty int64, exists bool, err error) {
	val, err := l.redisClient.GetClient().Get(ctx, stockKey(productID)).Int64()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "stock read")
	}
	return val, true, nil
}

// Exists 判断库存键是否已灌入。
func (l *Ledger) Exists(ctx context.Context, productID uint64) (bool, error) {
	n, err := l.redisClient.GetClient().Exists(ctx, stockKey(productID)).Result()
	if err != nil {
		return false, errors.Wrap(err, "stock exists")
	}
	return n > 0, nil
}

// Seed 灌入初始余量，仅在键不存在时生效，不会覆盖并发写入。
func (l *Ledger) Seed(ctx context.Context, productID uint64, qty int64) error {
	_, err := l.redisClient.GetClient().SetNX(ctx, stockKey(productID), qty, 0).Result()
	if err != nil {
		return errors.Wrap(err, "stock seed")
	}
	return nil
}

// Overwrite 无条件写入余量，对账纠偏专用，持久层数据胜出。
func (l *Ledger) Overwrite(ctx context.Context, productID uint64, qty int64) error {
	if err := l.redisClient.GetClient().Set(ctx, stockKey(productID), qty, 0).Err(); err != nil {
		return errors.Wrap(err, "stock overwrite")
	}
	return nil
}

func (l *Ledger) publish(ctx context.Context, event StockDeltaEvent) {
	if err := l.publisher.Publish(ctx, event); err != nil {
		// 投递失败不回滚台账，镜像差异由对账任务修复
		logger.Ctx(ctx).Error().Err(err).
			Uint64("product_id", event.ProductID).
			Int64("delta", event.Delta).
			Msg("failed to publish stock delta event")
	}
}
