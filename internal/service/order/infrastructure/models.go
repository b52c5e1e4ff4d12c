// internal/service/order/infrastructure/models.go
package infrastructure

import "time"

// OrderModel 是 Order 聚合在数据库中的表示。
type OrderModel struct {
	ID             string `gorm:"primaryKey;size:36"`
	UserID         uint64 `gorm:"index"`
	Status         string `gorm:"index"`
	TotalAmount    int64
	ShippingFee    int64
	DiscountAmount int64
	PointAmount    int64
	FinalAmount    int64
	CouponID       *uint64
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 是订单行项目的数据库表示。
type OrderItemModel struct {
	ID        uint64 `gorm:"primaryKey"`
	OrderID   string `gorm:"index;size:36"`
	ProductID uint64
	Quantity  int64
	Price     int64
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
