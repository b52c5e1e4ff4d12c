// internal/service/order/domain/errors.go
package domain

import "errors"

var (
	// ErrOrderNotFound 表示订单不存在。
	ErrOrderNotFound = errors.New("order not found")
	// ErrAccessDenied 表示订单不属于请求用户。
	ErrAccessDenied = errors.New("order does not belong to this user")
	// ErrInvalidState 表示订单当前状态不允许该操作。
	ErrInvalidState = errors.New("order state does not allow this operation")
	// ErrInvalidOrderAmount 表示计算出的应付金额为负，下单在触碰任何资源前被拒绝。
	ErrInvalidOrderAmount = errors.New("computed final amount is negative")
	// ErrCompensationFailed 表示补偿子步骤失败，资源可能泄漏，必须上抛告警。
	ErrCompensationFailed = errors.New("compensation failed")
	// ErrEmptyOrder 表示订单没有任何有效行项目。
	ErrEmptyOrder = errors.New("order has no line items")
)
