package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce/internal/service/order/domain"
	"ecommerce/internal/service/order/domain/port"
	"ecommerce/internal/service/stock"
)

func TestCreateOrderFromProduct_Success(t *testing.T) {
	env := newTestEnv()
	env.coupons.discount = 2000
	couponID := uint64(5)

	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID:      1,
		ProductID:   100,
		Quantity:    2,
		PointAmount: 1000,
		CouponID:    &couponID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPendingPayment, order.Status)
	// 小计 20000 不免邮，final = 20000 + 3000 - 2000 - 1000
	assert.Equal(t, int64(20000), order.TotalAmount)
	assert.Equal(t, int64(20000), order.FinalAmount)
	assert.Equal(t, []uint64{100}, env.stock.reserveOrder)
	assert.Equal(t, 1, env.commit.calls)
	assert.Equal(t, 1, env.notifier.published)
	assert.Equal(t, int64(1000), env.points.deducted)

	saved, err := env.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, saved.Status)
}

func TestCreateOrderFromProduct_StockFailureCompensatesPriorReservations(t *testing.T) {
	env := newTestEnv()
	env.stock.failOn = 200

	order, err := env.svc.runCreation(context.Background(), 1, []domain.OrderItem{
		{ProductID: 100, Quantity: 1},
		{ProductID: 200, Quantity: 1},
	}, 0, nil)
	require.ErrorIs(t, err, stock.ErrOutOfStock)
	assert.Nil(t, order)

	// 商品 100 先预占成功，失败后必须被释放；提交从未发生
	assert.Equal(t, []uint64{100}, env.stock.reserveOrder)
	assert.Equal(t, int64(1), env.stock.released[100])
	assert.Equal(t, 0, env.commit.calls)
	assert.Equal(t, 0, env.notifier.published)
}

func TestCreateOrderFromProduct_StockFailureMarksOrderFailed(t *testing.T) {
	env := newTestEnv()
	env.stock.failOn = 100

	_, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1,
	})
	require.ErrorIs(t, err, stock.ErrOutOfStock)

	var failed int
	env.repo.mu.Lock()
	for _, o := range env.repo.orders {
		if o.Status == domain.StatusFailed {
			failed++
		}
	}
	env.repo.mu.Unlock()
	assert.Equal(t, 1, failed)
}

func TestCreateOrderFromProduct_CommitFailureReleasesStock(t *testing.T) {
	env := newTestEnv()
	env.commit.err = errors.New("tx failed")

	_, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 3,
	})
	require.Error(t, err)

	assert.Equal(t, int64(3), env.stock.released[100])
	assert.Equal(t, 0, env.notifier.published)
	assert.Equal(t, int64(0), env.points.deducted)
}

func TestCreateOrderFromProduct_CommitRetriesOnOptimisticConflict(t *testing.T) {
	env := newTestEnv()
	env.commit.conflicts = 2

	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, order.Status)
	assert.Equal(t, 3, env.commit.calls)
}

func TestCreateOrderFromProduct_NotificationFailureDoesNotFailOrder(t *testing.T) {
	env := newTestEnv()
	env.notifier.err = errors.New("kafka unavailable")

	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, order.Status)
	assert.Empty(t, env.stock.released)
}

func TestCreateOrderFromProduct_MultiItemReservesAscending(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.runCreation(context.Background(), 1, []domain.OrderItem{
		{ProductID: 200, Quantity: 1},
		{ProductID: 100, Quantity: 1},
		{ProductID: 200, Quantity: 2},
	}, 0, nil)
	require.NoError(t, err)

	// 同商品的多行按商品聚合，预占按商品 ID 升序
	assert.Equal(t, []uint64{100, 200}, env.stock.reserveOrder)
}

func TestCreateOrderFromProduct_InsufficientPointsFailsBeforeStock(t *testing.T) {
	env := newTestEnv()
	env.points.affordErr = errors.New("insufficient points")

	_, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1, PointAmount: 999999,
	})
	require.Error(t, err)
	assert.Empty(t, env.stock.reserveOrder)
	assert.Equal(t, 0, env.commit.calls)
}

func TestCreateOrderFromCart_ClearsCartAfterSuccess(t *testing.T) {
	env := newTestEnv()
	env.carts.lines = []port.CartLine{
		{ItemID: 11, ProductID: 100, Quantity: 1},
		{ItemID: 12, ProductID: 200, Quantity: 2},
	}

	order, err := env.svc.CreateOrderFromCart(context.Background(), CreateOrderFromCartCommand{
		UserID:      1,
		CartItemIDs: []uint64{11, 12},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, order.Status)
	assert.Len(t, order.Items, 2)
	assert.ElementsMatch(t, []uint64{11, 12}, env.carts.deleted)
}

func TestCancelOrder_CompensatesAndCancels(t *testing.T) {
	env := newTestEnv()
	couponID := uint64(5)
	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 2, PointAmount: 1000, CouponID: &couponID,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.CancelOrder(context.Background(), order.ID, 1))

	saved, err := env.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, saved.Status)
	assert.Equal(t, int64(2), env.stock.released[100])
	assert.Equal(t, []uint64{5}, env.coupons.deallocated)
	assert.Equal(t, 1, env.points.restored)
}

func TestCancelOrder_WrongUserDenied(t *testing.T) {
	env := newTestEnv()
	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1,
	})
	require.NoError(t, err)

	err = env.svc.CancelOrder(context.Background(), order.ID, 2)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestCancelOrder_PaidOrderRejected(t *testing.T) {
	env := newTestEnv()
	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1,
	})
	require.NoError(t, err)
	require.NoError(t, env.svc.MarkPaid(context.Background(), order.ID, 1))

	err = env.svc.CancelOrder(context.Background(), order.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Empty(t, env.stock.released)
}

func TestMarkPaid(t *testing.T) {
	env := newTestEnv()
	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 1,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.MarkPaid(context.Background(), order.ID, 1))
	saved, err := env.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, saved.Status)

	// 重复支付被状态机拒绝
	assert.ErrorIs(t, env.svc.MarkPaid(context.Background(), order.ID, 1), domain.ErrInvalidState)
}

func TestHandlePaymentFailure_CompensatesAndFails(t *testing.T) {
	env := newTestEnv()
	order, err := env.svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
		UserID: 1, ProductID: 100, Quantity: 2,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.HandlePaymentFailure(context.Background(), order.ID))

	saved, err := env.repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, saved.Status)
	assert.Equal(t, int64(2), env.stock.released[100])
}
