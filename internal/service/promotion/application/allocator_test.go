package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecommerce/internal/pkg/lock"
	"ecommerce/internal/service/promotion/domain"
)

type memCouponRepo struct {
	mu     sync.Mutex
	coupon domain.Coupon
}

func (r *memCouponRepo) FindByID(ctx context.Context, couponID uint64) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if couponID != r.coupon.ID {
		return nil, domain.ErrCouponNotFound
	}
	c := r.coupon
	return &c, nil
}

func (r *memCouponRepo) IncrementIssued(ctx context.Context, couponID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coupon.IssuedQuantity >= r.coupon.TotalQuantity {
		return domain.ErrCapacityExceeded
	}
	r.coupon.IssuedQuantity++
	return nil
}

func (r *memCouponRepo) DecrementIssued(ctx context.Context, couponID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.coupon.IssuedQuantity > 0 {
		r.coupon.IssuedQuantity--
	}
	return nil
}

func (r *memCouponRepo) IncrementUsage(ctx context.Context, couponID uint64) error { return nil }
func (r *memCouponRepo) DecrementUsage(ctx context.Context, couponID uint64) error { return nil }

type memUserCouponRepo struct {
	mu     sync.Mutex
	owners map[uint64]bool
}

func newMemUserCouponRepo() *memUserCouponRepo {
	return &memUserCouponRepo{owners: make(map[uint64]bool)}
}

func (r *memUserCouponRepo) Create(ctx context.Context, uc *domain.UserCoupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[uc.UserID] {
		return domain.ErrAlreadyIssued
	}
	r.owners[uc.UserID] = true
	return nil
}

func (r *memUserCouponRepo) FindByUserAndCoupon(ctx context.Context, userID, couponID uint64) (*domain.UserCoupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.owners[userID] {
		return nil, domain.ErrCouponNotOwned
	}
	return &domain.UserCoupon{UserID: userID, CouponID: couponID, Status: domain.UserCouponAvailable}, nil
}

func (r *memUserCouponRepo) Exists(ctx context.Context, userID, couponID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owners[userID], nil
}

func (r *memUserCouponRepo) AllocateUsage(ctx context.Context, userCouponID uint64, version, perUserLimit int64) error {
	return nil
}

func (r *memUserCouponRepo) DeallocateUsage(ctx context.Context, userCouponID uint64) error {
	return nil
}

func TestLockedAllocator_AtMostCapacityGrants(t *testing.T) {
	coupons := &memCouponRepo{coupon: domain.Coupon{ID: 1, TotalQuantity: 10}}
	userCoupons := newMemUserCouponRepo()
	allocator := NewLockedAllocator(lock.NewKeyMutex(), coupons, userCoupons)

	const contenders = 50
	var wg sync.WaitGroup
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			coupon, _ := coupons.FindByID(context.Background(), 1)
			results <- allocator.TryIssue(context.Background(), coupon, userID, func(ctx context.Context) error {
				if err := coupons.IncrementIssued(ctx, 1); err != nil {
					return err
				}
				return userCoupons.Create(ctx, &domain.UserCoupon{UserID: userID, CouponID: 1})
			})
		}(uint64(i + 1))
	}
	wg.Wait()
	close(results)

	var granted, capacity int
	for err := range results {
		switch {
		case err == nil:
			granted++
		case errors.Is(err, domain.ErrCapacityExceeded):
			capacity++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 10, granted)
	assert.Equal(t, 40, capacity)
	assert.Equal(t, int64(10), coupons.coupon.IssuedQuantity)
}

func TestLockedAllocator_SameUserWinsAtMostOnce(t *testing.T) {
	coupons := &memCouponRepo{coupon: domain.Coupon{ID: 1, TotalQuantity: 100}}
	userCoupons := newMemUserCouponRepo()
	allocator := NewLockedAllocator(lock.NewKeyMutex(), coupons, userCoupons)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coupon, _ := coupons.FindByID(context.Background(), 1)
			results <- allocator.TryIssue(context.Background(), coupon, 7, func(ctx context.Context) error {
				if err := coupons.IncrementIssued(ctx, 1); err != nil {
					return err
				}
				return userCoupons.Create(ctx, &domain.UserCoupon{UserID: 7, CouponID: 1})
			})
		}()
	}
	wg.Wait()
	close(results)

	var granted, duplicated int
	for err := range results {
		switch {
		case err == nil:
			granted++
		case errors.Is(err, domain.ErrAlreadyIssued):
			duplicated++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, granted)
	assert.Equal(t, attempts-1, duplicated)
}

type memIssueQueue struct {
	mu      sync.Mutex
	members map[uint64]int64
	next    int64
}

func newMemIssueQueue() *memIssueQueue {
	return &memIssueQueue{members: make(map[uint64]int64)}
}

func (q *memIssueQueue) Join(ctx context.Context, couponID, userID uint64, capacity int64) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.members[userID]; ok {
		return 0, domain.ErrAlreadyIssued
	}
	if int64(len(q.members)) >= capacity {
		return 0, domain.ErrCapacityExceeded
	}
	q.members[userID] = q.next
	q.next++
	return int64(len(q.members)) - 1, nil
}

func (q *memIssueQueue) Leave(ctx context.Context, couponID, userID uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.members, userID)
	return nil
}

func TestFCFSAllocator_GrantFailureReleasesSlot(t *testing.T) {
	queue := newMemIssueQueue()
	allocator := NewFCFSAllocator(queue)
	coupon := &domain.Coupon{ID: 1, TotalQuantity: 1}

	boom := errors.New("db down")
	err := allocator.TryIssue(context.Background(), coupon, 1, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	// 名额被让出，下一个用户仍然能领到
	err = allocator.TryIssue(context.Background(), coupon, 2, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestFCFSAllocator_DuplicateJoinRejected(t *testing.T) {
	queue := newMemIssueQueue()
	allocator := NewFCFSAllocator(queue)
	coupon := &domain.Coupon{ID: 1, TotalQuantity: 5}

	require.NoError(t, allocator.TryIssue(context.Background(), coupon, 1, func(ctx context.Context) error { return nil }))
	err := allocator.TryIssue(context.Background(), coupon, 1, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrAlreadyIssued)
}

func TestFCFSAllocator_CapacityExhausted(t *testing.T) {
	queue := newMemIssueQueue()
	allocator := NewFCFSAllocator(queue)
	coupon := &domain.Coupon{ID: 1, TotalQuantity: 2}

	require.NoError(t, allocator.TryIssue(context.Background(), coupon, 1, func(ctx context.Context) error { return nil }))
	require.NoError(t, allocator.TryIssue(context.Background(), coupon, 2, func(ctx context.Context) error { return nil }))
	err := allocator.TryIssue(context.Background(), coupon, 3, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
}
