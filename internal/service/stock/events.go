// internal/service/stock/events.go
package stock

import (
	"time"

	"github.com/google/uuid"
)

const (
	reasonReserve = "reserve"
	reasonRelease = "release"
)

// StockDeltaEvent 是缓存台账的变更事件，异步驱动持久层镜像。
// Delta 为带符号数量：预占为负，释放为正。
type StockDeltaEvent struct {
	EventID    string    `json:"eventId"`
	ProductID  uint64    `json:"productId"`
	Delta      int64     `json:"delta"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func newDeltaEvent(productID uint64, delta int64, reason string) StockDeltaEvent {
	return StockDeltaEvent{
		EventID:    uuid.NewString(),
		ProductID:  productID,
		Delta:      delta,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
}
