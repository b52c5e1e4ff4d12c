package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"ecommerce/internal/service/stock"
)

// capacityStock 在进程内复刻台账的原子扣减语义，用来做并发属性测试。
type capacityStock struct {
	mu        sync.Mutex
	available int64
	released  int64
}

func (f *capacityStock) Reserve(ctx context.Context, productID uint64, qty int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.available < qty {
		return -1, stock.ErrOutOfStock
	}
	f.available -= qty
	return f.available, nil
}

func (f *capacityStock) Release(ctx context.Context, productID uint64, qty int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available += qty
	f.released += qty
	return f.available, nil
}

func TestCreateOrder_ConcurrentReservationsNeverOversell(t *testing.T) {
	env := newTestEnv()
	ledger := &capacityStock{available: 5}

	comp := NewCompensationService(ledger, env.coupons, env.points)
	svc := NewOrderApplicationService(
		env.repo,
		&memSettlement{repo: env.repo},
		comp,
		env.catalog,
		&fakeUsers{active: true},
		env.carts,
		ledger,
		env.coupons,
		env.points,
		env.commit,
		env.notifier,
	)

	const buyers = 10
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := svc.CreateOrderFromProduct(context.Background(), CreateOrderFromProductCommand{
				UserID: userID, ProductID: 100, Quantity: 1,
			})
			results <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(results)

	var ok, soldOut int
	for err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, stock.ErrOutOfStock)
			soldOut++
		}
	}
	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, soldOut)
	assert.Equal(t, int64(0), ledger.available)
	assert.Equal(t, int64(0), ledger.released)
}
