// internal/service/order/domain/amounts.go
package domain

const (
	// FreeShippingThreshold 小计达到该金额免运费。
	FreeShippingThreshold int64 = 30000
	// ShippingFee 未达免邮门槛时收取的固定运费。
	ShippingFee int64 = 3000
)

// Quote 是验证步骤的金额计算结果。
type Quote struct {
	Subtotal    int64
	ShippingFee int64
	Discount    int64
	PointAmount int64
	FinalAmount int64
}

// ComputeQuote 按运费门槛规则合成应付金额:
// finalAmount = subtotal + shippingFee - discount - pointAmount。
// 结果为负时返回 ErrInvalidOrderAmount，调用方不得继续触碰任何资源。
func ComputeQuote(subtotal, discount, pointAmount int64) (Quote, error) {
	fee := ShippingFee
	if subtotal >= FreeShippingThreshold {
		fee = 0
	}
	final := subtotal + fee - discount - pointAmount
	if final < 0 {
		return Quote{}, ErrInvalidOrderAmount
	}
	return Quote{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Discount:    discount,
		PointAmount: pointAmount,
		FinalAmount: final,
	}, nil
}
