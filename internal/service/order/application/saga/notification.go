// internal/service/order/application/saga/notification.go
package saga

import (
	"ecommerce/internal/pkg/logger"
)

// NotificationHandler 发出订单创建事件。
// 订单此刻已经提交成功，投递失败不回滚主流程。
type NotificationHandler struct {
	NextHandler
}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

func (h *NotificationHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Notification")
	defer span.End()

	if err := orderCtx.Notifier.PublishOrderCreated(ctx, orderCtx.Order); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", orderCtx.Order.ID).
			Msg("failed to publish order created event")
	}
	return h.executeNext(orderCtx)
}
