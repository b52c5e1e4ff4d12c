// internal/service/promotion/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"ecommerce/internal/pkg/retry"
	"ecommerce/internal/service/promotion/domain"
)

// GormCouponRepository 是 CouponRepository 的 GORM 实现。
type GormCouponRepository struct {
	db *gorm.DB
}

func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储副本。
func (r *GormCouponRepository) WithTx(tx *gorm.DB) domain.CouponRepository {
	return &GormCouponRepository{db: tx}
}

func (r *GormCouponRepository) FindByID(ctx context.Context, couponID uint64) (*domain.Coupon, error) {
	var model CouponModel
	err := r.db.WithContext(ctx).First(&model, couponID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, err
	}
	return ToDomainCoupon(&model), nil
}

// IncrementIssued 带护栏地加一，语句级保证不会超发。
func (r *GormCouponRepository) IncrementIssued(ctx context.Context, couponID uint64) error {
	result := r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("id = ? AND issued_quantity < total_quantity", couponID).
		Update("issued_quantity", gorm.Expr("issued_quantity + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrCapacityExceeded
	}
	return nil
}

func (r *GormCouponRepository) DecrementIssued(ctx context.Context, couponID uint64) error {
	return r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("id = ? AND issued_quantity > 0", couponID).
		Update("issued_quantity", gorm.Expr("issued_quantity - 1")).Error
}

func (r *GormCouponRepository) IncrementUsage(ctx context.Context, couponID uint64) error {
	result := r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("id = ? AND usage_count < total_quantity", couponID).
		Update("usage_count", gorm.Expr("usage_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidCouponState
	}
	return nil
}

func (r *GormCouponRepository) DecrementUsage(ctx context.Context, couponID uint64) error {
	return r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("id = ? AND usage_count > 0", couponID).
		Update("usage_count", gorm.Expr("usage_count - 1")).Error
}

// GormUserCouponRepository 是 UserCouponRepository 的 GORM 实现。
type GormUserCouponRepository struct {
	db *gorm.DB
}

func NewGormUserCouponRepository(db *gorm.DB) *GormUserCouponRepository {
	return &GormUserCouponRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储副本。
func (r *GormUserCouponRepository) WithTx(tx *gorm.DB) domain.UserCouponRepository {
	return &GormUserCouponRepository{db: tx}
}

func (r *GormUserCouponRepository) Create(ctx context.Context, uc *domain.UserCoupon) error {
	model := FromDomainUserCoupon(uc)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		// 唯一索引兜底：并发领取穿过发放器时按已领取处理
		if strings.Contains(err.Error(), "Duplicate entry") {
			return domain.ErrAlreadyIssued
		}
		return err
	}
	uc.ID = model.ID
	return nil
}

func (r *GormUserCouponRepository) FindByUserAndCoupon(ctx context.Context, userID, couponID uint64) (*domain.UserCoupon, error) {
	var model UserCouponModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCouponNotOwned
		}
		return nil, err
	}
	return ToDomainUserCoupon(&model), nil
}

func (r *GormUserCouponRepository) Exists(ctx context.Context, userID, couponID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserCouponModel{}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AllocateUsage 带版本比对地消耗一次使用额度。
// used_count 命满 perUserLimit 时状态同语句翻转为 USED。
func (r *GormUserCouponRepository) AllocateUsage(ctx context.Context, userCouponID uint64, version, perUserLimit int64) error {
	result := r.db.WithContext(ctx).Model(&UserCouponModel{}).
		Where("id = ? AND version = ? AND status = ? AND used_count < ?",
			userCouponID, version, string(domain.UserCouponAvailable), perUserLimit).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count + 1"),
			"version":    gorm.Expr("version + 1"),
			"status": gorm.Expr("CASE WHEN used_count + 1 >= ? THEN ? ELSE status END",
				perUserLimit, string(domain.UserCouponUsed)),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return retry.ErrOptimisticConflict
	}
	return nil
}

// DeallocateUsage 回退一次使用额度。used_count 减到上限以下时状态翻回
// AVAILABLE，EXPIRED 状态保持不变。
func (r *GormUserCouponRepository) DeallocateUsage(ctx context.Context, userCouponID uint64) error {
	return r.db.WithContext(ctx).Model(&UserCouponModel{}).
		Where("id = ? AND used_count > 0", userCouponID).
		Updates(map[string]interface{}{
			"used_count": gorm.Expr("used_count - 1"),
			"version":    gorm.Expr("version + 1"),
			"status": gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END",
				string(domain.UserCouponUsed), string(domain.UserCouponAvailable)),
		}).Error
}
