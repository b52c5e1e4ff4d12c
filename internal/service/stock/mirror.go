// internal/service/stock/mirror.go
package stock

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/pkg/mq"
)

// productRecord 只映射镜像需要的列，完整的商品模型在 catalog 上下文。
type productRecord struct {
	ID           uint64 `gorm:"primaryKey"`
	Stock        int64
	SoldCount    int64
	IsOutOfStock bool
}

func (productRecord) TableName() string { return "products" }

// SyncConsumer 消费 StockDeltaEvent，把缓存台账的变更回放到 products 表。
// 逐条拉取、处理成功后手动提交位点，保证至少一次回放。
type SyncConsumer struct {
	reader  *kafka.Reader
	db      *gorm.DB
	tracer  trace.Tracer
	stopped int32
	wg      sync.WaitGroup
}

func NewSyncConsumer(reader *kafka.Reader, db *gorm.DB) *SyncConsumer {
	return &SyncConsumer{
		reader: reader,
		db:     db,
		tracer: otel.Tracer("stock.mirror"),
	}
}

// Start 启动消费循环。调用方负责在退出时调用 Stop。
func (c *SyncConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for atomic.LoadInt32(&c.stopped) == 0 {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || atomic.LoadInt32(&c.stopped) == 1 {
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("fetch stock sync message failed")
				continue
			}

			msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
			if err := c.handle(msgCtx, msg.Value); err != nil {
				// 处理失败不提交位点，消息会被重投；残留偏差由对账修复
				logger.Ctx(msgCtx).Error().Err(err).
					Str("key", string(msg.Key)).
					Msg("apply stock delta failed")
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(msgCtx).Error().Err(err).Msg("commit stock sync offset failed")
			}
		}
	}()
}

// Stop 停止消费并等待在途消息处理完成。
func (c *SyncConsumer) Stop() {
	atomic.StoreInt32(&c.stopped, 1)
	_ = c.reader.Close()
	c.wg.Wait()
}

func (c *SyncConsumer) handle(ctx context.Context, payload []byte) error {
	var event StockDeltaEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// 坏消息直接丢弃，重投也不会成功
		logger.Ctx(ctx).Error().Err(err).Msg("discard malformed stock delta event")
		return nil
	}

	ctx, span := c.tracer.Start(ctx, "StockMirror.ApplyDelta", trace.WithAttributes(
		attribute.Int64("product.id", int64(event.ProductID)),
		attribute.Int64("stock.delta", event.Delta),
		attribute.String("stock.reason", event.Reason),
	))
	defer span.End()

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product productRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, event.ProductID).Error; err != nil {
			return errors.Wrapf(err, "lock product %d", event.ProductID)
		}

		// 预占为负 delta：库存减、销量加；释放反向回滚
		product.Stock += event.Delta
		product.SoldCount -= event.Delta
		product.IsOutOfStock = product.Stock <= 0

		return tx.Model(&productRecord{ID: product.ID}).
			Updates(map[string]interface{}{
				"stock":           product.Stock,
				"sold_count":      product.SoldCount,
				"is_out_of_stock": product.IsOutOfStock,
			}).Error
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mirror apply failed")
		return err
	}

	span.AddEvent("delta applied")
	return nil
}
