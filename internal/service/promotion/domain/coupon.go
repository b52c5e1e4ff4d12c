// internal/service/promotion/domain/coupon.go
package domain

import (
	"errors"
	"time"
)

var (
	// ErrCouponNotFound 表示优惠券不存在。
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponNotOwned 表示用户没有持有该优惠券。
	ErrCouponNotOwned = errors.New("user does not own this coupon")
	// ErrInvalidCouponState 覆盖过期、未开始、停用、超过使用上限等状态问题。
	ErrInvalidCouponState = errors.New("coupon is not in a usable state")
	// ErrAlreadyIssued 表示该用户已经领取过这张券。
	ErrAlreadyIssued = errors.New("coupon already issued to this user")
	// ErrCapacityExceeded 表示发放总量已经用尽。
	ErrCapacityExceeded = errors.New("coupon capacity exceeded")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon 是一张限量优惠券的模板与计数器。
// IssuedQuantity 只进不退：领出去的券即使订单补偿也不回池。
// UsageCount 可在补偿时按已分配的量回退。
type Coupon struct {
	ID             uint64
	Name           string
	DiscountType   DiscountType
	DiscountValue  int64
	MaxDiscount    int64
	TotalQuantity  int64
	IssuedQuantity int64
	UsageCount     int64
	PerUserLimit   int64
	StartDate      time.Time
	EndDate        time.Time
	IsActive       bool
}

// InWindow 判断 now 是否落在有效期内。
func (c *Coupon) InWindow(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}

// CheckIssuable 校验是否还能发放。
func (c *Coupon) CheckIssuable(now time.Time) error {
	if !c.IsActive || !c.InWindow(now) {
		return ErrInvalidCouponState
	}
	if c.IssuedQuantity >= c.TotalQuantity {
		return ErrCapacityExceeded
	}
	return nil
}

// CheckUsable 校验下单时能否抵扣。
func (c *Coupon) CheckUsable(now time.Time) error {
	if !c.IsActive || !c.InWindow(now) {
		return ErrInvalidCouponState
	}
	return nil
}

// Discount 计算对 subtotal 的抵扣金额。
// 百分比券受 MaxDiscount 封顶（0 表示不封顶），任何券不会抵扣超过小计。
func (c *Coupon) Discount(subtotal int64) int64 {
	var discount int64
	switch c.DiscountType {
	case DiscountPercentage:
		discount = subtotal * c.DiscountValue / 100
		if c.MaxDiscount > 0 && discount > c.MaxDiscount {
			discount = c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue
	}
	if discount > subtotal {
		discount = subtotal
	}
	return discount
}

type UserCouponStatus string

const (
	UserCouponAvailable UserCouponStatus = "AVAILABLE"
	UserCouponUsed      UserCouponStatus = "USED"
	UserCouponExpired   UserCouponStatus = "EXPIRED"
)

// UserCoupon 是某用户持有的一张券，(user, coupon) 全局唯一。
// 唯一性由发放器保证，表上的唯一索引只是兜底。
type UserCoupon struct {
	ID        uint64
	UserID    uint64
	CouponID  uint64
	Status    UserCouponStatus
	UsedCount int64
	Version   int64
}

// CheckAllocatable 校验本张券还能不能再用一次。
func (uc *UserCoupon) CheckAllocatable(perUserLimit int64) error {
	if uc.Status != UserCouponAvailable {
		return ErrInvalidCouponState
	}
	if uc.UsedCount >= perUserLimit {
		return ErrInvalidCouponState
	}
	return nil
}
