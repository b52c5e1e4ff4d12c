// internal/service/promotion/domain/repository.go
package domain

import "context"

// CouponRepository 是优惠券模板与计数器的持久化端口。
// 计数器更新都是带条件的单语句，防止越过上限。
type CouponRepository interface {
	FindByID(ctx context.Context, couponID uint64) (*Coupon, error)
	// IncrementIssued 在 issued_quantity < total_quantity 的前提下加一。
	// 已满时返回 ErrCapacityExceeded。
	IncrementIssued(ctx context.Context, couponID uint64) error
	// DecrementIssued 回退一次发放，仅用于发放落库失败的清理。
	DecrementIssued(ctx context.Context, couponID uint64) error
	// IncrementUsage 在 usage_count < total_quantity 的前提下加一。
	IncrementUsage(ctx context.Context, couponID uint64) error
	// DecrementUsage 在 usage_count > 0 的前提下减一。
	DecrementUsage(ctx context.Context, couponID uint64) error
}

// UserCouponRepository 是用户持券记录的持久化端口。
type UserCouponRepository interface {
	Create(ctx context.Context, uc *UserCoupon) error
	// FindByUserAndCoupon 用户未持有该券时返回 ErrCouponNotOwned。
	FindByUserAndCoupon(ctx context.Context, userID, couponID uint64) (*UserCoupon, error)
	Exists(ctx context.Context, userID, couponID uint64) (bool, error)
	// AllocateUsage 带版本比对地把 used_count 加一，命满用户上限时顺带
	// 翻转状态为 USED。版本未命中返回 retry.ErrOptimisticConflict。
	AllocateUsage(ctx context.Context, userCouponID uint64, version, perUserLimit int64) error
	// DeallocateUsage 把 used_count 减一并按需把状态翻回 AVAILABLE，
	// used_count 为零时不做任何事。
	DeallocateUsage(ctx context.Context, userCouponID uint64) error
}
