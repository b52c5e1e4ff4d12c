// internal/service/stock/publisher.go
package stock

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"ecommerce/internal/pkg/mq"
)

// KafkaPublisher 把 StockDeltaEvent 写入同步主题。
// 以商品 ID 作为消息 Key，同一商品的事件保证分区内有序。
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event StockDeltaEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal stock delta event")
	}
	key := []byte(strconv.FormatUint(event.ProductID, 10))
	return mq.ProduceMessage(ctx, p.writer, key, payload)
}
