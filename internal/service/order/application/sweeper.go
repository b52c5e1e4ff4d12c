// internal/service/order/application/sweeper.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/order/domain"
	"ecommerce/internal/service/order/domain/port"
)

// ExpirationSweeper 周期性地把超时未支付的订单补偿并取消。
// 固定间隔从一轮结束起算，慢轮次不会与下一轮重叠。
// 每个订单是独立的工作单元，失败的订单留在待支付态等下一轮重试。
type ExpirationSweeper struct {
	orders domain.OrderRepository
	settle port.SettlementUnit
	comp   *CompensationService
	maxAge time.Duration
	delay  time.Duration
	tracer trace.Tracer
}

func NewExpirationSweeper(orders domain.OrderRepository, settle port.SettlementUnit, comp *CompensationService, maxAge, delay time.Duration) *ExpirationSweeper {
	return &ExpirationSweeper{
		orders: orders,
		settle: settle,
		comp:   comp,
		maxAge: maxAge,
		delay:  delay,
		tracer: otel.Tracer("order.sweeper"),
	}
}

// Run 循环执行清扫，直到 ctx 取消。
func (s *ExpirationSweeper) Run(ctx context.Context) {
	for {
		s.SweepOnce(ctx)
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce 跑一轮清扫。单个订单的失败只记日志，不中断本轮。
func (s *ExpirationSweeper) SweepOnce(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "ExpirationSweeper.SweepOnce")
	defer span.End()

	ids, err := s.orders.ListPendingIDs(ctx, time.Now().Add(-s.maxAge))
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Msg("list expired pending orders failed")
		return
	}
	span.SetAttributes(attribute.Int("sweep.candidates", len(ids)))

	for _, orderID := range ids {
		if err := s.expireOne(ctx, orderID); err != nil {
			sweepFailuresTotal.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("order_id", orderID).
				Msg("expire order failed, will retry next pass")
		}
	}
}

func (s *ExpirationSweeper) expireOne(ctx context.Context, orderID string) error {
	return s.settle.WithLockedOrder(ctx, orderID, func(ctx context.Context, order *domain.Order) error {
		// 拿到行锁后重查状态，选出后可能已被支付或取消
		if order.Status != domain.StatusPendingPayment {
			return nil
		}
		if err := s.comp.Compensate(ctx, order); err != nil {
			return err
		}
		if err := order.Cancel(); err != nil {
			return err
		}
		expiredOrdersCanceledTotal.Inc()
		logger.Ctx(ctx).Info().
			Str("order_id", order.ID).
			Msg("expired pending order canceled")
		return nil
	})
}
