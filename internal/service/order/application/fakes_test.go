package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"ecommerce/internal/pkg/retry"
	"ecommerce/internal/service/order/domain"
	"ecommerce/internal/service/order/domain/port"
	"ecommerce/internal/service/stock"
)

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *memOrderRepo) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) ListPendingIDs(ctx context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, o := range r.orders {
		if o.Status == domain.StatusPendingPayment && o.CreatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memSettlement struct {
	repo *memOrderRepo
}

func (s *memSettlement) WithLockedOrder(ctx context.Context, orderID string, fn func(ctx context.Context, order *domain.Order) error) error {
	s.repo.mu.Lock()
	o, ok := s.repo.orders[orderID]
	if !ok {
		s.repo.mu.Unlock()
		return domain.ErrOrderNotFound
	}
	order := cloneOrder(o)
	s.repo.mu.Unlock()

	if err := fn(ctx, order); err != nil {
		return err
	}
	return s.repo.Save(ctx, order)
}

type fakeStock struct {
	mu           sync.Mutex
	failOn       uint64
	reserveOrder []uint64
	released     map[uint64]int64
}

func newFakeStock() *fakeStock {
	return &fakeStock{released: make(map[uint64]int64)}
}

func (f *fakeStock) Reserve(ctx context.Context, productID uint64, qty int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != 0 && productID == f.failOn {
		return -1, stock.ErrOutOfStock
	}
	f.reserveOrder = append(f.reserveOrder, productID)
	return 0, nil
}

func (f *fakeStock) Release(ctx context.Context, productID uint64, qty int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released[productID] += qty
	return 0, nil
}

type fakeCouponPort struct {
	discount    int64
	quoteErr    error
	deallocated []uint64
	deallocErr  error
}

func (f *fakeCouponPort) QuoteDiscount(ctx context.Context, userID, couponID uint64, subtotal int64) (int64, error) {
	if f.quoteErr != nil {
		return 0, f.quoteErr
	}
	return f.discount, nil
}

func (f *fakeCouponPort) Deallocate(ctx context.Context, userID, couponID uint64) error {
	if f.deallocErr != nil {
		return f.deallocErr
	}
	f.deallocated = append(f.deallocated, couponID)
	return nil
}

type fakePointPort struct {
	mu         sync.Mutex
	affordErr  error
	deducted   int64
	restoreErr error
	restored   int
}

func (f *fakePointPort) CheckAffordable(ctx context.Context, userID uint64, amount int64) error {
	return f.affordErr
}

func (f *fakePointPort) DeductCached(ctx context.Context, userID uint64, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deducted += amount
}

func (f *fakePointPort) Restore(ctx context.Context, orderID string, userID uint64) (int64, error) {
	if f.restoreErr != nil {
		return 0, f.restoreErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restored++
	return 0, nil
}

var errProductMissing = errors.New("product not found")

type fakeCatalog struct {
	products map[uint64]port.ProductInfo
}

func (f *fakeCatalog) GetProduct(ctx context.Context, productID uint64) (*port.ProductInfo, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, errProductMissing
	}
	return &p, nil
}

type fakeUsers struct {
	active bool
}

func (f *fakeUsers) GetUser(ctx context.Context, userID uint64) (*port.UserInfo, error) {
	return &port.UserInfo{ID: userID, IsActive: f.active}, nil
}

type fakeCarts struct {
	lines   []port.CartLine
	deleted []uint64
}

func (f *fakeCarts) GetCartItems(ctx context.Context, userID uint64, itemIDs []uint64) ([]port.CartLine, error) {
	return f.lines, nil
}

func (f *fakeCarts) DeleteCartItem(ctx context.Context, itemID uint64) error {
	f.deleted = append(f.deleted, itemID)
	return nil
}

type fakeCommitUnit struct {
	mu        sync.Mutex
	repo      *memOrderRepo
	conflicts int
	err       error
	calls     int
}

// Commit 与真实提交单元同契约：成功时订单以待支付状态随"事务"落库。
func (f *fakeCommitUnit) Commit(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	f.calls++
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return retry.ErrOptimisticConflict
	}
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := order.MarkPendingPayment(); err != nil {
		return err
	}
	return f.repo.Save(ctx, order)
}

type fakeNotifier struct {
	mu        sync.Mutex
	err       error
	published int
}

func (f *fakeNotifier) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published++
	return nil
}

type testEnv struct {
	svc      *OrderApplicationService
	repo     *memOrderRepo
	stock    *fakeStock
	coupons  *fakeCouponPort
	points   *fakePointPort
	catalog  *fakeCatalog
	carts    *fakeCarts
	commit   *fakeCommitUnit
	notifier *fakeNotifier
}

func newTestEnv() *testEnv {
	repo := newMemOrderRepo()
	st := newFakeStock()
	coupons := &fakeCouponPort{}
	points := &fakePointPort{}
	cat := &fakeCatalog{products: map[uint64]port.ProductInfo{
		100: {ID: 100, Price: 10000, IsActive: true},
		200: {ID: 200, Price: 5000, IsActive: true},
	}}
	carts := &fakeCarts{}
	commit := &fakeCommitUnit{repo: repo}
	notifier := &fakeNotifier{}

	comp := NewCompensationService(st, coupons, points)
	svc := NewOrderApplicationService(
		repo,
		&memSettlement{repo: repo},
		comp,
		cat,
		&fakeUsers{active: true},
		carts,
		st,
		coupons,
		points,
		commit,
		notifier,
	)
	return &testEnv{
		svc: svc, repo: repo, stock: st, coupons: coupons, points: points,
		catalog: cat, carts: carts, commit: commit, notifier: notifier,
	}
}
