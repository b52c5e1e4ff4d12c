// internal/service/order/infrastructure/adapter/coupon_adapter.go
package adapter

import (
	"context"

	promotionapp "ecommerce/internal/service/promotion/application"
)

// CouponAdapter 把优惠券应用服务适配成订单侧的出站端口。
type CouponAdapter struct {
	svc *promotionapp.CouponService
}

func NewCouponAdapter(svc *promotionapp.CouponService) *CouponAdapter {
	return &CouponAdapter{svc: svc}
}

// QuoteDiscount 校验用户持券可用并按券面规则计算抵扣金额。
func (a *CouponAdapter) QuoteDiscount(ctx context.Context, userID, couponID uint64, subtotal int64) (int64, error) {
	coupon, _, err := a.svc.GetForOrder(ctx, userID, couponID)
	if err != nil {
		return 0, err
	}
	return coupon.Discount(subtotal), nil
}

func (a *CouponAdapter) Deallocate(ctx context.Context, userID, couponID uint64) error {
	return a.svc.Deallocate(ctx, userID, couponID)
}
