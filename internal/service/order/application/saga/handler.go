// internal/service/order/application/saga/handler.go
package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/order/domain"
	"ecommerce/internal/service/order/domain/port"
)

// OrderContext 在 Saga 流程中传递上下文数据，所有外部依赖都是出站端口。
type OrderContext struct {
	Ctx    context.Context
	Order  *domain.Order
	Tracer trace.Tracer

	CatalogService port.CatalogService
	UserService    port.UserService
	StockService   port.StockService
	CouponService  port.CouponService
	PointService   port.PointService
	CommitUnit     port.CommitUnit
	Notifier       port.NotificationProducer

	// 补偿函数按注册的逆序执行
	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册一个补偿动作，后注册的先执行。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 逆序执行全部已注册的补偿动作。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().
		Str("order_id", c.Order.ID).
		Int("count", len(c.compensations)).
		Msg("executing saga compensation functions")
	for _, comp := range c.compensations {
		comp(ctx)
	}
	c.compensations = nil
}

// Handler 是责任链上的一个处理环节。
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
