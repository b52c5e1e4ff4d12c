// internal/service/point/domain/repository.go
package domain

import (
	"context"
	"time"
)

// Repository 是积分台账的持久化端口。
// 带版本号的写入未命中期望版本时返回 retry.ErrOptimisticConflict。
type Repository interface {
	// Create 新增一笔积分入账。
	Create(ctx context.Context, point *Point) error
	// ListAvailable 返回用户在 now 时刻可用的积分，按入账时间升序。
	ListAvailable(ctx context.Context, userID uint64, now time.Time) ([]Point, error)
	// ApplyDraw 对某笔积分做版本比对扣减，成功时版本号加一。
	ApplyDraw(ctx context.Context, draw Draw) error
	// SaveUsage 写入一条使用记录。
	SaveUsage(ctx context.Context, usage *UsageHistory) error
	// ListUsagesByOrder 返回某订单产生的全部使用记录。
	ListUsagesByOrder(ctx context.Context, orderID string) ([]UsageHistory, error)
	// RestoreDraw 把 amount 还回到积分条目上。
	RestoreDraw(ctx context.Context, pointID uint64, amount int64) error
	// CancelUsage 将使用记录标记为已撤销。
	// 记录已是撤销态时返回 ErrUsageAlreadyCanceled。
	CancelUsage(ctx context.Context, usageID uint64) error
}
