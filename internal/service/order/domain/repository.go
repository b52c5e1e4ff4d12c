// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderRepository 是订单聚合的持久化端口。
type OrderRepository interface {
	// Save 新增或整体更新订单（不含行项目的重写）。
	Save(ctx context.Context, order *Order) error
	// FindByID 不存在时返回 ErrOrderNotFound。
	FindByID(ctx context.Context, orderID string) (*Order, error)
	// ListPendingIDs 返回在 before 之前创建、仍处于待支付状态的订单号。
	ListPendingIDs(ctx context.Context, before time.Time) ([]string, error)
}
