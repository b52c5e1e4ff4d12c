// internal/service/order/application/service.go
package application

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/order/application/saga"
	"ecommerce/internal/service/order/domain"
	"ecommerce/internal/service/order/domain/port"
)

// CreateOrderFromProductCommand 是商品直购的入参。
type CreateOrderFromProductCommand struct {
	UserID      uint64
	ProductID   uint64
	Quantity    int64
	PointAmount int64
	CouponID    *uint64
}

// CreateOrderFromCartCommand 是购物车下单的入参。
type CreateOrderFromCartCommand struct {
	UserID      uint64
	CartItemIDs []uint64
	PointAmount int64
	CouponID    *uint64
}

// OrderApplicationService 编排订单的创建 Saga 与后续的支付、取消流程。
type OrderApplicationService struct {
	orders     domain.OrderRepository
	settle     port.SettlementUnit
	comp       *CompensationService
	catalog    port.CatalogService
	users      port.UserService
	carts      port.CartService
	stock      port.StockService
	coupons    port.CouponService
	points     port.PointService
	commitUnit port.CommitUnit
	notifier   port.NotificationProducer
	tracer     trace.Tracer
}

func NewOrderApplicationService(
	orders domain.OrderRepository,
	settle port.SettlementUnit,
	comp *CompensationService,
	catalog port.CatalogService,
	users port.UserService,
	carts port.CartService,
	stock port.StockService,
	coupons port.CouponService,
	points port.PointService,
	commitUnit port.CommitUnit,
	notifier port.NotificationProducer,
) *OrderApplicationService {
	return &OrderApplicationService{
		orders: orders, settle: settle, comp: comp,
		catalog: catalog, users: users, carts: carts,
		stock: stock, coupons: coupons, points: points,
		commitUnit: commitUnit, notifier: notifier,
		tracer: otel.Tracer("order.application"),
	}
}

// CreateOrderFromProduct 单商品直购。
func (s *OrderApplicationService) CreateOrderFromProduct(ctx context.Context, cmd CreateOrderFromProductCommand) (*domain.Order, error) {
	items := []domain.OrderItem{{ProductID: cmd.ProductID, Quantity: cmd.Quantity}}
	return s.runCreation(ctx, cmd.UserID, items, cmd.PointAmount, cmd.CouponID)
}

// CreateOrderFromCart 从购物车选中的条目下单，成功后清掉已消费的条目。
func (s *OrderApplicationService) CreateOrderFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (*domain.Order, error) {
	lines, err := s.carts.GetCartItems(ctx, cmd.UserID, cmd.CartItemIDs)
	if err != nil {
		return nil, err
	}
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}

	order, err := s.runCreation(ctx, cmd.UserID, items, cmd.PointAmount, cmd.CouponID)
	if err != nil {
		return nil, err
	}

	// 清理购物车是尽力而为，失败不影响已创建的订单
	for _, line := range lines {
		if err := s.carts.DeleteCartItem(ctx, line.ItemID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Uint64("cart_item_id", line.ItemID).
				Msg("failed to clear cart item after order creation")
		}
	}
	return order, nil
}

func (s *OrderApplicationService) runCreation(ctx context.Context, userID uint64, items []domain.OrderItem, pointAmount int64, couponID *uint64) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	order, err := domain.NewOrder(userID, items, pointAmount, couponID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// CREATED 状态先落库，失败路径也有据可查
	if err := s.orders.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save initial order")
		return nil, err
	}

	orderCtx := &saga.OrderContext{
		Ctx:            ctx,
		Order:          order,
		Tracer:         s.tracer,
		CatalogService: s.catalog,
		UserService:    s.users,
		StockService:   s.stock,
		CouponService:  s.coupons,
		PointService:   s.points,
		CommitUnit:     s.commitUnit,
		Notifier:       s.notifier,
	}

	if err := s.buildChain().Handle(orderCtx); err != nil {
		orderFailuresTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation chain failed")
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Msg("order creation failed, triggering saga compensation")

		// 提交事务已整体回滚，这里只需要逆序释放缓存侧的预占
		orderCtx.TriggerCompensation(ctx)

		order.MarkFailed()
		if saveErr := s.orders.Save(ctx, order); saveErr != nil {
			span.RecordError(saveErr, trace.WithAttributes(attribute.Bool("critical.error", true)))
			logger.Ctx(ctx).Error().Err(saveErr).
				Str("order_id", order.ID).
				Msg("failed to mark order as FAILED after compensation")
		}
		return nil, err
	}

	ordersCreatedTotal.Inc()
	span.AddEvent("order created and pending payment")
	return order, nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	validation := saga.NewValidationHandler()
	validation.
		SetNext(saga.NewStockReserveHandler()).
		SetNext(saga.NewCommitHandler()).
		SetNext(saga.NewNotificationHandler())
	return validation
}

// CancelOrder 用户主动取消待支付订单，补偿全部已占资源。
func (s *OrderApplicationService) CancelOrder(ctx context.Context, orderID string, userID uint64) error {
	ctx, span := s.tracer.Start(ctx, "app.CancelOrder", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return domain.ErrAccessDenied
	}

	return s.settle.WithLockedOrder(ctx, orderID, func(ctx context.Context, order *domain.Order) error {
		if order.Status != domain.StatusPendingPayment {
			return domain.ErrInvalidState
		}
		if err := s.comp.Compensate(ctx, order); err != nil {
			return err
		}
		return order.Cancel()
	})
}

// MarkPaid 把待支付订单推进到已支付。
func (s *OrderApplicationService) MarkPaid(ctx context.Context, orderID string, userID uint64) error {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return domain.ErrAccessDenied
	}
	return s.settle.WithLockedOrder(ctx, orderID, func(ctx context.Context, order *domain.Order) error {
		return order.Pay()
	})
}

// HandlePaymentFailure 支付失败时补偿资源并把订单标记为失败。
func (s *OrderApplicationService) HandlePaymentFailure(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "app.HandlePaymentFailure", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	return s.settle.WithLockedOrder(ctx, orderID, func(ctx context.Context, order *domain.Order) error {
		if order.Status != domain.StatusPendingPayment {
			return domain.ErrInvalidState
		}
		if err := s.comp.Compensate(ctx, order); err != nil {
			return err
		}
		order.MarkFailed()
		return nil
	})
}
