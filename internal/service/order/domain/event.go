// internal/service/order/domain/event.go
package domain

import "time"

// OrderCreatedEvent 是订单创建成功后发往通知主题的事件。
type OrderCreatedEvent struct {
	EventID     string    `json:"eventId"`
	OrderID     string    `json:"orderId"`
	UserID      uint64    `json:"userId"`
	FinalAmount int64     `json:"finalAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}
