package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce/internal/service/order/domain"
	pointdomain "ecommerce/internal/service/point/domain"
)

type failingStock struct {
	fakeStock
}

func (f *failingStock) Release(ctx context.Context, productID uint64, qty int64) (int64, error) {
	return 0, errors.New("redis unavailable")
}

func compTestOrder() *domain.Order {
	couponID := uint64(5)
	order, _ := domain.NewOrder(1, []domain.OrderItem{
		{ProductID: 100, Quantity: 2, Price: 10000},
	}, 1000, &couponID)
	return order
}

func TestCompensate_AllResourcesRestored(t *testing.T) {
	st := newFakeStock()
	coupons := &fakeCouponPort{}
	points := &fakePointPort{}
	comp := NewCompensationService(st, coupons, points)

	require.NoError(t, comp.Compensate(context.Background(), compTestOrder()))
	assert.Equal(t, int64(2), st.released[100])
	assert.Equal(t, []uint64{5}, coupons.deallocated)
	assert.Equal(t, 1, points.restored)
}

func TestCompensate_SubStepsIndependent(t *testing.T) {
	// 库存释放失败不能挡住券额度与积分的回滚
	st := &failingStock{}
	coupons := &fakeCouponPort{}
	points := &fakePointPort{}
	comp := NewCompensationService(st, coupons, points)

	err := comp.Compensate(context.Background(), compTestOrder())
	require.ErrorIs(t, err, domain.ErrCompensationFailed)
	assert.Equal(t, []uint64{5}, coupons.deallocated)
	assert.Equal(t, 1, points.restored)
}

func TestCompensate_AllFailuresCollected(t *testing.T) {
	st := &failingStock{}
	coupons := &fakeCouponPort{deallocErr: errors.New("db down")}
	points := &fakePointPort{restoreErr: pointdomain.ErrUsageAlreadyCanceled}
	comp := NewCompensationService(st, coupons, points)

	err := comp.Compensate(context.Background(), compTestOrder())
	require.ErrorIs(t, err, domain.ErrCompensationFailed)
	// 各子步骤的原始错误都保留在聚合错误里
	assert.ErrorIs(t, err, pointdomain.ErrUsageAlreadyCanceled)
}

func TestCompensate_RetryDoesNotReleaseStockTwice(t *testing.T) {
	// 第一轮积分回滚失败，库存已归还；重试整单补偿时库存不能再加一遍
	st := newFakeStock()
	coupons := &fakeCouponPort{}
	points := &fakePointPort{restoreErr: errors.New("db down")}
	comp := NewCompensationService(st, coupons, points)

	order := compTestOrder()
	err := comp.Compensate(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrCompensationFailed)
	assert.Equal(t, int64(2), st.released[100])

	points.restoreErr = nil
	require.NoError(t, comp.Compensate(context.Background(), order))
	assert.Equal(t, int64(2), st.released[100])
	assert.Equal(t, 1, points.restored)
}

func TestCompensate_OrderWithoutCouponOrPoints(t *testing.T) {
	st := newFakeStock()
	coupons := &fakeCouponPort{}
	points := &fakePointPort{}
	comp := NewCompensationService(st, coupons, points)

	order, err := domain.NewOrder(1, []domain.OrderItem{{ProductID: 100, Quantity: 1, Price: 100}}, 0, nil)
	require.NoError(t, err)

	require.NoError(t, comp.Compensate(context.Background(), order))
	assert.Empty(t, coupons.deallocated)
	assert.Equal(t, 0, points.restored)
}
