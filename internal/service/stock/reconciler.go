// internal/service/stock/reconciler.go
package stock

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"ecommerce/internal/pkg/logger"
)

// ProductStock 是持久层视角的一条库存记录。
type ProductStock struct {
	ProductID uint64
	Stock     int64
}

// CacheLedger 是对账需要的缓存侧能力，由 *Ledger 满足。
type CacheLedger interface {
	Read(ctx context.Context, productID uint64) (int64, bool, error)
	Seed(ctx context.Context, productID uint64, qty int64) error
	Overwrite(ctx context.Context, productID uint64, qty int64) error
}

// DurableReader 读取持久层的权威余量。
type DurableReader interface {
	ListProductStocks(ctx context.Context) ([]ProductStock, error)
}

// GormDurableReader 从 products 表读取全量库存。
type GormDurableReader struct {
	db *gorm.DB
}

func NewGormDurableReader(db *gorm.DB) *GormDurableReader {
	return &GormDurableReader{db: db}
}

func (r *GormDurableReader) ListProductStocks(ctx context.Context) ([]ProductStock, error) {
	var records []productRecord
	if err := r.db.WithContext(ctx).Select("id", "stock").Find(&records).Error; err != nil {
		return nil, err
	}
	out := make([]ProductStock, 0, len(records))
	for _, rec := range records {
		out = append(out, ProductStock{ProductID: rec.ID, Stock: rec.Stock})
	}
	return out, nil
}

// Reconciler 周期性地把缓存台账与持久层镜像对齐。
// 两类巡检独立运行：一致性巡检以持久层为准覆盖缓存偏差，
// 补灌巡检为缺失的键灌入初始余量。单个商品失败只记日志，不中断本轮。
type Reconciler struct {
	cache       CacheLedger
	durable     DurableReader
	tracer      trace.Tracer
	parallelism int
}

func NewReconciler(cache CacheLedger, durable DurableReader) *Reconciler {
	return &Reconciler{
		cache:       cache,
		durable:     durable,
		tracer:      otel.Tracer("stock.reconciler"),
		parallelism: 8,
	}
}

// RunConsistencyLoop 按固定周期执行一致性巡检，直到 ctx 取消。
// 启动时先跑一轮，不等第一个周期。
func (r *Reconciler) RunConsistencyLoop(ctx context.Context, interval time.Duration) {
	if err := r.ReconcileOnce(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("consistency sweep aborted")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.ReconcileOnce(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("consistency sweep aborted")
			}
		}
	}
}

// RunGapFillLoop 按固定周期执行补灌巡检，直到 ctx 取消。
// 启动时立即补灌一轮，服务冷启动后台账键在第一个请求前就位。
func (r *Reconciler) RunGapFillLoop(ctx context.Context, interval time.Duration) {
	if err := r.GapFillOnce(ctx); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("gap-fill sweep aborted")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.GapFillOnce(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("gap-fill sweep aborted")
			}
		}
	}
}

// ReconcileOnce 跑一轮一致性巡检。缓存值与持久层不一致时覆盖缓存。
func (r *Reconciler) ReconcileOnce(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "StockReconciler.ReconcileOnce")
	defer span.End()

	items, err := r.durable.ListProductStocks(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, item := range items {
		item := item
		g.Go(func() error {
			cached, exists, err := r.cache.Read(gctx, item.ProductID)
			if err != nil {
				logger.Ctx(gctx).Error().Err(err).
					Uint64("product_id", item.ProductID).
					Msg("reconcile read failed")
				return nil
			}
			// 缺键交给补灌巡检处理
			if !exists || cached == item.Stock {
				return nil
			}
			if err := r.cache.Overwrite(gctx, item.ProductID, item.Stock); err != nil {
				logger.Ctx(gctx).Error().Err(err).
					Uint64("product_id", item.ProductID).
					Msg("reconcile overwrite failed")
				return nil
			}
			reconcileCorrectionsTotal.Inc()
			logger.Ctx(gctx).Warn().
				Uint64("product_id", item.ProductID).
				Int64("cached", cached).
				Int64("durable", item.Stock).
				Msg("stock cache corrected from durable mirror")
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(attribute.Int("stock.reconciled_items", len(items)))
	return nil
}

// GapFillOnce 跑一轮补灌巡检，为缺失的库存键灌入持久层余量。
func (r *Reconciler) GapFillOnce(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "StockReconciler.GapFillOnce")
	defer span.End()

	items, err := r.durable.ListProductStocks(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for _, item := range items {
		item := item
		g.Go(func() error {
			_, exists, err := r.cache.Read(gctx, item.ProductID)
			if err != nil || exists {
				return nil
			}
			if err := r.cache.Seed(gctx, item.ProductID, item.Stock); err != nil {
				logger.Ctx(gctx).Error().Err(err).
					Uint64("product_id", item.ProductID).
					Msg("gap-fill seed failed")
				return nil
			}
			reconcileSeedsTotal.Inc()
			logger.Ctx(gctx).Info().
				Uint64("product_id", item.ProductID).
				Int64("qty", item.Stock).
				Msg("stock cache seeded from durable mirror")
			return nil
		})
	}
	_ = g.Wait()
	return nil
}
