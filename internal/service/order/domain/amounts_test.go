package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeQuote_ShippingFeeBelowThreshold(t *testing.T) {
	q, err := ComputeQuote(29999, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), q.ShippingFee)
	assert.Equal(t, int64(32999), q.FinalAmount)
}

func TestComputeQuote_FreeShippingAtThreshold(t *testing.T) {
	q, err := ComputeQuote(30000, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.ShippingFee)
	assert.Equal(t, int64(30000), q.FinalAmount)
}

func TestComputeQuote_PercentageCouponWithPoints(t *testing.T) {
	// 小计 20000，10% 折扣上限 5000 生效 2000，不免邮收 3000 运费
	q, err := ComputeQuote(20000, 2000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), q.ShippingFee)
	assert.Equal(t, int64(21000), q.FinalAmount)
}

func TestComputeQuote_DiscountAndPointsStack(t *testing.T) {
	q, err := ComputeQuote(20000, 2000, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), q.Subtotal)
	assert.Equal(t, int64(2000), q.Discount)
	assert.Equal(t, int64(1000), q.PointAmount)
	assert.Equal(t, int64(20000), q.FinalAmount)
}

func TestComputeQuote_NegativeFinalAmountRejected(t *testing.T) {
	_, err := ComputeQuote(1000, 3000, 2000)
	assert.ErrorIs(t, err, ErrInvalidOrderAmount)
}

func TestComputeQuote_ZeroFinalAmountAllowed(t *testing.T) {
	q, err := ComputeQuote(1000, 4000, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), q.FinalAmount)
}
