// internal/service/order/infrastructure/adapter/notification_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"ecommerce/internal/pkg/mq"
	"ecommerce/internal/service/order/domain"
)

// NotificationKafkaAdapter 把订单创建事件写入通知主题。
type NotificationKafkaAdapter struct {
	writer *kafka.Writer
}

func NewNotificationKafkaAdapter(writer *kafka.Writer) *NotificationKafkaAdapter {
	return &NotificationKafkaAdapter{writer: writer}
}

func (a *NotificationKafkaAdapter) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	event := domain.OrderCreatedEvent{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		UserID:      order.UserID,
		FinalAmount: order.FinalAmount,
		OccurredAt:  time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order created event")
	}
	key := []byte(strconv.FormatUint(order.UserID, 10))
	return mq.ProduceMessage(ctx, a.writer, key, payload)
}
