// internal/service/point/infrastructure/models.go
package infrastructure

import "time"

// PointModel 是 Point 领域对象在数据库中的表示。
// Version 列承载乐观并发控制，每次扣减或回滚都会加一。
type PointModel struct {
	ID         uint64 `gorm:"primaryKey"`
	UserID     uint64 `gorm:"index"`
	Amount     int64
	UsedAmount int64
	PointType  string
	ExpiresAt  time.Time
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (PointModel) TableName() string {
	return "points"
}

// PointUsageHistoryModel 记录订单对积分条目的每一次扣减。
type PointUsageHistoryModel struct {
	ID         uint64 `gorm:"primaryKey"`
	PointID    uint64 `gorm:"index"`
	OrderID    string `gorm:"index"`
	Amount     int64
	CanceledAt *time.Time `gorm:"default:null"`
	CreatedAt  time.Time
}

func (PointUsageHistoryModel) TableName() string {
	return "point_usage_histories"
}
