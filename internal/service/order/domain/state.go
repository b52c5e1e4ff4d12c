// internal/service/order/domain/state.go
package domain

// Status 是订单状态机。
// 创建流程: CREATED → VALIDATING → STOCK_RESERVED → COMMITTING →
// {PENDING_PAYMENT | FAILED}；支付与取消流程: PENDING_PAYMENT → {PAID | CANCELED}。
type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusValidating     Status = "VALIDATING"
	StatusStockReserved  Status = "STOCK_RESERVED"
	StatusCommitting     Status = "COMMITTING"
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusCanceled       Status = "CANCELED"
	StatusFailed         Status = "FAILED"
)

// Settled 判断订单是否已到达终态。终态订单不允许再被清扫或补偿。
func (s Status) Settled() bool {
	switch s {
	case StatusPaid, StatusCanceled, StatusFailed:
		return true
	}
	return false
}
