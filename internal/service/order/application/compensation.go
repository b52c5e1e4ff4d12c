// internal/service/order/application/compensation.go
package application

import (
	"context"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/order/domain"
	"ecommerce/internal/service/order/domain/port"
)

// CompensationService 把一个订单占用的库存、券额度、积分恢复到下单前。
// 三类资源独立回滚，某一类失败不阻止其余两类被尝试；任何失败都以
// ErrCompensationFailed 上抛，它意味着资源可能泄漏，调用方必须告警。
// 显式取消、支付失败、超时清扫三条路径都走这里。
type CompensationService struct {
	stock   port.StockService
	coupons port.CouponService
	points  port.PointService
	tracer  trace.Tracer

	// 库存归还不像积分、券那样能在持久层看出"已回滚"，
	// 重试整单补偿时靠这张表跳过已归还的订单，避免重复加库存。
	stockReleased sync.Map
}

func NewCompensationService(stock port.StockService, coupons port.CouponService, points port.PointService) *CompensationService {
	return &CompensationService{
		stock:   stock,
		coupons: coupons,
		points:  points,
		tracer:  otel.Tracer("order.compensation"),
	}
}

func (s *CompensationService) Compensate(ctx context.Context, order *domain.Order) error {
	ctx, span := s.tracer.Start(ctx, "CompensationService.Compensate", trace.WithAttributes(
		attribute.String("order.id", order.ID),
	))
	defer span.End()

	var errs []error

	if _, done := s.stockReleased.Load(order.ID); !done {
		released := true
		for _, item := range order.Items {
			if _, err := s.stock.Release(ctx, item.ProductID, item.Quantity); err != nil {
				errs = append(errs, pkgerrors.Wrapf(err, "release stock for product %d", item.ProductID))
				released = false
			}
		}
		if released {
			s.stockReleased.Store(order.ID, struct{}{})
		}
	}

	if order.CouponID != nil {
		if err := s.coupons.Deallocate(ctx, order.UserID, *order.CouponID); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "deallocate coupon usage"))
		}
	}

	if order.PointAmount > 0 {
		if _, err := s.points.Restore(ctx, order.ID, order.UserID); err != nil {
			errs = append(errs, pkgerrors.Wrap(err, "restore point usage"))
		}
	}

	if len(errs) > 0 {
		compensationFailuresTotal.Inc()
		joined := errors.Join(append([]error{domain.ErrCompensationFailed}, errs...)...)
		span.RecordError(joined)
		span.SetStatus(codes.Error, "compensation incomplete")
		logger.Ctx(ctx).Error().Err(joined).
			Str("order_id", order.ID).
			Msg("compensation finished with failed sub-steps")
		return joined
	}

	compensationsTotal.Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Msg("order fully compensated")
	return nil
}
