// internal/service/promotion/infrastructure/models.go
package infrastructure

import "time"

// CouponModel 是 Coupon 领域对象在数据库中的表示。
type CouponModel struct {
	ID             uint64 `gorm:"primaryKey"`
	Name           string
	DiscountType   string
	DiscountValue  int64
	MaxDiscount    int64
	TotalQuantity  int64
	IssuedQuantity int64
	UsageCount     int64
	PerUserLimit   int64
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (CouponModel) TableName() string {
	return "coupons"
}

// UserCouponModel 是 UserCoupon 领域对象在数据库中的表示。
// (user_id, coupon_id) 唯一索引兜底发放器的去重。
type UserCouponModel struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"uniqueIndex:idx_user_coupon"`
	CouponID  uint64 `gorm:"uniqueIndex:idx_user_coupon"`
	Status    string
	UsedCount int64
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserCouponModel) TableName() string {
	return "user_coupons"
}
