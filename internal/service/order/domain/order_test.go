package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder(1, []OrderItem{{ProductID: 100, Quantity: 2, Price: 5000}}, 0, nil)
	require.NoError(t, err)
	return order
}

func TestNewOrder_EmptyItemsRejected(t *testing.T) {
	_, err := NewOrder(1, nil, 0, nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestNewOrder_InitialState(t *testing.T) {
	order := newTestOrder(t)
	assert.Equal(t, StatusCreated, order.Status)
	assert.NotEmpty(t, order.ID)
}

func TestOrder_Subtotal(t *testing.T) {
	order, err := NewOrder(1, []OrderItem{
		{ProductID: 100, Quantity: 2, Price: 5000},
		{ProductID: 200, Quantity: 1, Price: 3000},
	}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(13000), order.Subtotal())
}

func TestOrder_CreationLifecycle(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.MarkValidating())
	require.NoError(t, order.MarkStockReserved())
	require.NoError(t, order.MarkCommitting())
	require.NoError(t, order.MarkPendingPayment())
	assert.Equal(t, StatusPendingPayment, order.Status)
}

func TestOrder_SkippedTransitionRejected(t *testing.T) {
	order := newTestOrder(t)
	assert.ErrorIs(t, order.MarkStockReserved(), ErrInvalidState)
	assert.ErrorIs(t, order.MarkCommitting(), ErrInvalidState)
	assert.ErrorIs(t, order.MarkPendingPayment(), ErrInvalidState)
}

func TestOrder_PayOnlyFromPendingPayment(t *testing.T) {
	order := newTestOrder(t)
	assert.ErrorIs(t, order.Pay(), ErrInvalidState)

	require.NoError(t, order.MarkValidating())
	require.NoError(t, order.MarkStockReserved())
	require.NoError(t, order.MarkCommitting())
	require.NoError(t, order.MarkPendingPayment())
	require.NoError(t, order.Pay())
	assert.Equal(t, StatusPaid, order.Status)

	assert.ErrorIs(t, order.Pay(), ErrInvalidState)
	assert.ErrorIs(t, order.Cancel(), ErrInvalidState)
}

func TestOrder_CancelOnlyFromPendingPayment(t *testing.T) {
	order := newTestOrder(t)
	assert.ErrorIs(t, order.Cancel(), ErrInvalidState)

	require.NoError(t, order.MarkValidating())
	require.NoError(t, order.MarkStockReserved())
	require.NoError(t, order.MarkCommitting())
	require.NoError(t, order.MarkPendingPayment())
	require.NoError(t, order.Cancel())
	assert.Equal(t, StatusCanceled, order.Status)
}

func TestOrder_MarkFailedFromAnyState(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.MarkValidating())
	order.MarkFailed()
	assert.Equal(t, StatusFailed, order.Status)
}

func TestStatus_Settled(t *testing.T) {
	assert.True(t, StatusPaid.Settled())
	assert.True(t, StatusCanceled.Settled())
	assert.True(t, StatusFailed.Settled())
	assert.False(t, StatusPendingPayment.Settled())
	assert.False(t, StatusCreated.Settled())
}

func TestOrder_ApplyQuote(t *testing.T) {
	order := newTestOrder(t)
	q, err := ComputeQuote(order.Subtotal(), 2000, 1000)
	require.NoError(t, err)
	order.ApplyQuote(q)
	assert.Equal(t, int64(10000), order.TotalAmount)
	assert.Equal(t, int64(3000), order.ShippingFee)
	assert.Equal(t, int64(2000), order.DiscountAmount)
	assert.Equal(t, int64(10000), order.FinalAmount)
}
