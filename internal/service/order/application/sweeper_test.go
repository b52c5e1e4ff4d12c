package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce/internal/service/order/domain"
)

func pendingOrder(t *testing.T, repo *memOrderRepo, age time.Duration) *domain.Order {
	t.Helper()
	order, err := domain.NewOrder(1, []domain.OrderItem{{ProductID: 100, Quantity: 2, Price: 10000}}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, order.MarkValidating())
	require.NoError(t, order.MarkStockReserved())
	require.NoError(t, order.MarkCommitting())
	require.NoError(t, order.MarkPendingPayment())
	order.CreatedAt = time.Now().Add(-age)
	require.NoError(t, repo.Save(context.Background(), order))
	return order
}

func newSweeperEnv() (*ExpirationSweeper, *memOrderRepo, *fakeStock) {
	repo := newMemOrderRepo()
	st := newFakeStock()
	comp := NewCompensationService(st, &fakeCouponPort{}, &fakePointPort{})
	sweeper := NewExpirationSweeper(repo, &memSettlement{repo: repo}, comp, 30*time.Minute, time.Minute)
	return sweeper, repo, st
}

func TestSweepOnce_CancelsExpiredPendingOrders(t *testing.T) {
	sweeper, repo, st := newSweeperEnv()
	expired := pendingOrder(t, repo, time.Hour)

	sweeper.SweepOnce(context.Background())

	saved, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCanceled, saved.Status)
	assert.Equal(t, int64(2), st.released[100])
}

func TestSweepOnce_FreshOrdersUntouched(t *testing.T) {
	sweeper, repo, st := newSweeperEnv()
	fresh := pendingOrder(t, repo, time.Minute)

	sweeper.SweepOnce(context.Background())

	saved, err := repo.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendingPayment, saved.Status)
	assert.Empty(t, st.released)
}

func TestSweepOnce_SettledOrderSkippedUnderLock(t *testing.T) {
	sweeper, repo, st := newSweeperEnv()
	expired := pendingOrder(t, repo, time.Hour)

	// 模拟选出后、拿到锁前订单被支付
	paid, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	require.NoError(t, paid.Pay())
	require.NoError(t, repo.Save(context.Background(), paid))

	// 直接对已结算的候选执行过期处理，锁内重查应将其跳过
	require.NoError(t, sweeper.expireOne(context.Background(), expired.ID))

	saved, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, saved.Status)
	assert.Empty(t, st.released)
}
