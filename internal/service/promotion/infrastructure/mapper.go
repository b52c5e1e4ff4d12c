// internal/service/promotion/infrastructure/mapper.go
package infrastructure

import (
	"ecommerce/internal/service/promotion/domain"
)

// ToDomainCoupon 将数据库模型转换为领域模型。
func ToDomainCoupon(model *CouponModel) *domain.Coupon {
	if model == nil {
		return nil
	}
	return &domain.Coupon{
		ID:             model.ID,
		Name:           model.Name,
		DiscountType:   domain.DiscountType(model.DiscountType),
		DiscountValue:  model.DiscountValue,
		MaxDiscount:    model.MaxDiscount,
		TotalQuantity:  model.TotalQuantity,
		IssuedQuantity: model.IssuedQuantity,
		UsageCount:     model.UsageCount,
		PerUserLimit:   model.PerUserLimit,
		StartDate:      model.StartDate,
		EndDate:        model.EndDate,
		IsActive:       model.IsActive,
	}
}

// ToDomainUserCoupon 将数据库模型转换为领域模型。
func ToDomainUserCoupon(model *UserCouponModel) *domain.UserCoupon {
	if model == nil {
		return nil
	}
	return &domain.UserCoupon{
		ID:        model.ID,
		UserID:    model.UserID,
		CouponID:  model.CouponID,
		Status:    domain.UserCouponStatus(model.Status),
		UsedCount: model.UsedCount,
		Version:   model.Version,
	}
}

// FromDomainUserCoupon 将领域模型转换为数据库模型，用于插入。
func FromDomainUserCoupon(dmn *domain.UserCoupon) *UserCouponModel {
	return &UserCouponModel{
		ID:        dmn.ID,
		UserID:    dmn.UserID,
		CouponID:  dmn.CouponID,
		Status:    string(dmn.Status),
		UsedCount: dmn.UsedCount,
		Version:   dmn.Version,
	}
}
