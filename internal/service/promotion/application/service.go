// internal/service/promotion/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/promotion/domain"
)

// CouponStore 在仓储端口上追加事务绑定能力。
type CouponStore interface {
	domain.CouponRepository
	WithTx(tx *gorm.DB) domain.CouponRepository
}

// UserCouponStore 在仓储端口上追加事务绑定能力。
type UserCouponStore interface {
	domain.UserCouponRepository
	WithTx(tx *gorm.DB) domain.UserCouponRepository
}

// CouponService 处理限量券的发放、下单抵扣与补偿回退。
type CouponService struct {
	db          *gorm.DB
	coupons     CouponStore
	userCoupons UserCouponStore
	allocator   Allocator
	tracer      trace.Tracer
}

func NewCouponService(db *gorm.DB, coupons CouponStore, userCoupons UserCouponStore, allocator Allocator) *CouponService {
	return &CouponService{
		db:          db,
		coupons:     coupons,
		userCoupons: userCoupons,
		allocator:   allocator,
		tracer:      otel.Tracer("promotion.application"),
	}
}

// IssueCoupon 发放一张限量券。
// 并发判定交给发放器，胜出后在同一事务里推进已发计数并落持券记录。
func (s *CouponService) IssueCoupon(ctx context.Context, userID, couponID uint64) (*domain.UserCoupon, error) {
	ctx, span := s.tracer.Start(ctx, "CouponService.IssueCoupon", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("coupon.id", int64(couponID)),
	))
	defer span.End()

	coupon, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := coupon.CheckIssuable(time.Now()); err != nil {
		span.AddEvent("coupon not issuable")
		return nil, err
	}

	var issued *domain.UserCoupon
	err = s.allocator.TryIssue(ctx, coupon, userID, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.coupons.WithTx(tx).IncrementIssued(ctx, couponID); err != nil {
				return err
			}
			uc := &domain.UserCoupon{
				UserID:   userID,
				CouponID: couponID,
				Status:   domain.UserCouponAvailable,
			}
			if err := s.userCoupons.WithTx(tx).Create(ctx, uc); err != nil {
				return err
			}
			issued = uc
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Uint64("user_id", userID).
		Uint64("coupon_id", couponID).
		Msg("coupon issued")
	return issued, nil
}

// GetForOrder 取出下单要用的券并做不落库的预校验。
func (s *CouponService) GetForOrder(ctx context.Context, userID, couponID uint64) (*domain.Coupon, *domain.UserCoupon, error) {
	coupon, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	if err := coupon.CheckUsable(now); err != nil {
		return nil, nil, err
	}
	uc, err := s.userCoupons.FindByUserAndCoupon(ctx, userID, couponID)
	if err != nil {
		return nil, nil, err
	}
	if err := uc.CheckAllocatable(coupon.PerUserLimit); err != nil {
		return nil, nil, err
	}
	return coupon, uc, nil
}

// AllocateInTx 在订单提交事务内重新校验并消耗一次使用额度。
// 版本未命中会以 retry.ErrOptimisticConflict 上抛，由提交重试兜住。
func (s *CouponService) AllocateInTx(ctx context.Context, tx *gorm.DB, userID, couponID uint64) error {
	coupons := s.coupons.WithTx(tx)
	userCoupons := s.userCoupons.WithTx(tx)

	coupon, err := coupons.FindByID(ctx, couponID)
	if err != nil {
		return err
	}
	if err := coupon.CheckUsable(time.Now()); err != nil {
		return err
	}
	uc, err := userCoupons.FindByUserAndCoupon(ctx, userID, couponID)
	if err != nil {
		return err
	}
	if err := uc.CheckAllocatable(coupon.PerUserLimit); err != nil {
		return err
	}
	if err := userCoupons.AllocateUsage(ctx, uc.ID, uc.Version, coupon.PerUserLimit); err != nil {
		return err
	}
	return coupons.IncrementUsage(ctx, couponID)
}

// Deallocate 回退一次使用额度，用于订单补偿。
// 发放数量不回退：领出去的券即使订单被补偿也不回池。
func (s *CouponService) Deallocate(ctx context.Context, userID, couponID uint64) error {
	ctx, span := s.tracer.Start(ctx, "CouponService.Deallocate", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("coupon.id", int64(couponID)),
	))
	defer span.End()

	uc, err := s.userCoupons.FindByUserAndCoupon(ctx, userID, couponID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if uc.UsedCount == 0 {
		// 没有已分配的使用量可回退，按幂等处理
		return nil
	}
	if err := s.userCoupons.DeallocateUsage(ctx, uc.ID); err != nil {
		span.RecordError(err)
		return err
	}
	return s.coupons.DecrementUsage(ctx, uc.CouponID)
}
