// internal/service/order/application/saga/validation.go
package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"ecommerce/internal/service/order/domain"
)

// ValidationHandler 做不触碰共享状态的前置校验:
// 用户与商品有效性、单价快照、券抵扣与积分可负担性、应付金额合成。
type ValidationHandler struct {
	NextHandler
}

func NewValidationHandler() *ValidationHandler {
	return &ValidationHandler{}
}

func (h *ValidationHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Validation")
	defer span.End()

	order := orderCtx.Order
	if err := order.MarkValidating(); err != nil {
		return err
	}

	u, err := orderCtx.UserService.GetUser(ctx, order.UserID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !u.IsActive {
		return errors.Errorf("user %d is not active", order.UserID)
	}

	// 逐行校验商品并快照下单时刻的单价
	for i := range order.Items {
		item := &order.Items[i]
		if item.Quantity <= 0 {
			return errors.Errorf("invalid quantity %d for product %d", item.Quantity, item.ProductID)
		}
		product, err := orderCtx.CatalogService.GetProduct(ctx, item.ProductID)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !product.IsActive {
			return errors.Errorf("product %d is not active", item.ProductID)
		}
		item.Price = product.Price
	}
	subtotal := order.Subtotal()

	var discount int64
	if order.CouponID != nil {
		discount, err = orderCtx.CouponService.QuoteDiscount(ctx, order.UserID, *order.CouponID, subtotal)
		if err != nil {
			span.RecordError(err)
			return err
		}
	}

	if order.PointAmount > 0 {
		if err := orderCtx.PointService.CheckAffordable(ctx, order.UserID, order.PointAmount); err != nil {
			span.RecordError(err)
			return err
		}
	}

	quote, err := domain.ComputeQuote(subtotal, discount, order.PointAmount)
	if err != nil {
		span.RecordError(err)
		return err
	}
	order.ApplyQuote(quote)

	span.SetAttributes(
		attribute.Int64("order.subtotal", quote.Subtotal),
		attribute.Int64("order.final_amount", quote.FinalAmount),
	)
	return h.executeNext(orderCtx)
}
