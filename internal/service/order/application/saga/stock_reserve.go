// internal/service/order/application/saga/stock_reserve.go
package saga

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"ecommerce/internal/pkg/logger"
)

// StockReserveHandler 为订单里每个商品预占库存。
// 同一商品的多行先按商品聚合，预占按商品 ID 升序进行，
// 多个订单触碰重叠商品集时资源获取顺序一致，不会环路等待。
type StockReserveHandler struct {
	NextHandler
}

func NewStockReserveHandler() *StockReserveHandler {
	return &StockReserveHandler{}
}

func (h *StockReserveHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.StockReserve")
	defer span.End()

	order := orderCtx.Order

	quantities := make(map[uint64]int64)
	for _, item := range order.Items {
		quantities[item.ProductID] += item.Quantity
	}
	productIDs := make([]uint64, 0, len(quantities))
	for pid := range quantities {
		productIDs = append(productIDs, pid)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	for _, pid := range productIDs {
		qty := quantities[pid]
		if _, err := orderCtx.StockService.Reserve(ctx, pid, qty); err != nil {
			span.RecordError(err)
			return errors.Wrapf(err, "reserve stock for product %d", pid)
		}

		pid, qty := pid, qty
		orderCtx.AddCompensation(func(ctx context.Context) {
			if _, err := orderCtx.StockService.Release(ctx, pid, qty); err != nil {
				logger.Ctx(ctx).Error().Err(err).
					Str("order_id", order.ID).
					Uint64("product_id", pid).
					Int64("qty", qty).
					Msg("stock release compensation failed")
			}
		})
	}

	if err := order.MarkStockReserved(); err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("order.reserved_products", len(productIDs)))
	return h.executeNext(orderCtx)
}
