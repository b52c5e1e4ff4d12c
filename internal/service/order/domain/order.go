// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem 是订单里的一行。Price 是下单时刻的单价快照。
type OrderItem struct {
	ID        uint64
	ProductID uint64
	Quantity  int64
	Price     int64
}

// Order 是订单聚合的根实体。创建期间由 Saga 独占，
// 之后由支付与取消流程推进状态。
type Order struct {
	ID             string
	UserID         uint64
	Status         Status
	Items          []OrderItem
	TotalAmount    int64
	ShippingFee    int64
	DiscountAmount int64
	PointAmount    int64
	FinalAmount    int64
	CouponID       *uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder 创建一个初始状态的订单实例。
func NewOrder(userID uint64, items []OrderItem, pointAmount int64, couponID *uint64) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	now := time.Now()
	return &Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Status:      StatusCreated,
		Items:       items,
		PointAmount: pointAmount,
		CouponID:    couponID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Subtotal 汇总行项目金额。
func (o *Order) Subtotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Price * item.Quantity
	}
	return total
}

// ApplyQuote 把验证步骤算出的金额写入订单。
func (o *Order) ApplyQuote(q Quote) {
	o.TotalAmount = q.Subtotal
	o.ShippingFee = q.ShippingFee
	o.DiscountAmount = q.Discount
	o.FinalAmount = q.FinalAmount
	o.UpdatedAt = time.Now()
}

func (o *Order) transition(to Status) {
	o.Status = to
	o.UpdatedAt = time.Now()
}

// MarkValidating 进入验证步骤。
func (o *Order) MarkValidating() error {
	if o.Status != StatusCreated {
		return ErrInvalidState
	}
	o.transition(StatusValidating)
	return nil
}

// MarkStockReserved 记录库存预占完成。
func (o *Order) MarkStockReserved() error {
	if o.Status != StatusValidating {
		return ErrInvalidState
	}
	o.transition(StatusStockReserved)
	return nil
}

// MarkCommitting 进入持久化提交步骤。
func (o *Order) MarkCommitting() error {
	if o.Status != StatusStockReserved {
		return ErrInvalidState
	}
	o.transition(StatusCommitting)
	return nil
}

// MarkPendingPayment 提交成功，等待支付。
func (o *Order) MarkPendingPayment() error {
	if o.Status != StatusCommitting {
		return ErrInvalidState
	}
	o.transition(StatusPendingPayment)
	return nil
}

// MarkFailed 将订单标记为失败，任何非终态都可进入。
func (o *Order) MarkFailed() {
	o.transition(StatusFailed)
}

// Pay 支付订单。
func (o *Order) Pay() error {
	if o.Status != StatusPendingPayment {
		return ErrInvalidState
	}
	o.transition(StatusPaid)
	return nil
}

// Cancel 取消订单，只有待支付的订单可以被取消。
func (o *Order) Cancel() error {
	if o.Status != StatusPendingPayment {
		return ErrInvalidState
	}
	o.transition(StatusCanceled)
	return nil
}
