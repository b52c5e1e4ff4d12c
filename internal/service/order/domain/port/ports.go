// internal/service/order/domain/port/ports.go
package port

import (
	"context"

	"ecommerce/internal/service/order/domain"
)

// ProductInfo 是订单流程需要的商品视图。
type ProductInfo struct {
	ID           uint64
	Name         string
	Price        int64
	IsActive     bool
	IsOutOfStock bool
}

// UserInfo 是订单流程需要的用户视图。
type UserInfo struct {
	ID       uint64
	IsActive bool
}

// CartLine 是购物车里的一行。
type CartLine struct {
	ItemID    uint64
	ProductID uint64
	Quantity  int64
}

// StockService 是库存快速台账的出站端口。
type StockService interface {
	Reserve(ctx context.Context, productID uint64, qty int64) (int64, error)
	Release(ctx context.Context, productID uint64, qty int64) (int64, error)
}

// CouponService 是优惠券上下文的出站端口。
type CouponService interface {
	// QuoteDiscount 校验用户持券可用并计算对 subtotal 的抵扣金额。
	QuoteDiscount(ctx context.Context, userID, couponID uint64, subtotal int64) (int64, error)
	// Deallocate 回退一次使用额度，发放数量不回退。
	Deallocate(ctx context.Context, userID, couponID uint64) error
}

// PointService 是积分上下文的出站端口。
type PointService interface {
	CheckAffordable(ctx context.Context, userID uint64, amount int64) error
	DeductCached(ctx context.Context, userID uint64, amount int64)
	Restore(ctx context.Context, orderID string, userID uint64) (int64, error)
}

// CatalogService 是商品目录的出站端口。
type CatalogService interface {
	GetProduct(ctx context.Context, productID uint64) (*ProductInfo, error)
}

// UserService 是用户服务的出站端口。
type UserService interface {
	GetUser(ctx context.Context, userID uint64) (*UserInfo, error)
}

// CartService 是购物车的出站端口。
type CartService interface {
	GetCartItems(ctx context.Context, userID uint64, itemIDs []uint64) ([]CartLine, error)
	DeleteCartItem(ctx context.Context, itemID uint64) error
}

// NotificationProducer 把订单事件投递到通知通道，投递失败不阻断主流程。
type NotificationProducer interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

// CommitUnit 执行订单提交的持久化事务：事务内重校验并分配优惠券
// 使用额度、先进先出扣减积分、落订单与行项目。任一步失败整体回滚，
// 成功时订单进入 PENDING_PAYMENT 并随事务落库。
// 乐观冲突以 retry.ErrOptimisticConflict 上抛，由调用方决定重试。
type CommitUnit interface {
	Commit(ctx context.Context, order *domain.Order) error
}

// SettlementUnit 对单个订单执行隔离的结算工作单元。
// 回调拿到的是行锁保护下的最新订单，回调返回 nil 时状态变更随事务提交。
type SettlementUnit interface {
	WithLockedOrder(ctx context.Context, orderID string, fn func(ctx context.Context, order *domain.Order) error) error
}
