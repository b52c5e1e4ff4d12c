// internal/service/promotion/application/allocator.go
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce/internal/pkg/lock"
	"ecommerce/internal/service/promotion/domain"
)

// Allocator 是限量发放原语：对容量为 C 的券，至多产生 C 次成功，
// 且每个用户至多成功一次。grant 是胜出后的落库动作，由发放器在
// 自身的并发保护范围内调用；grant 失败时发放器负责撤销本次名额。
type Allocator interface {
	TryIssue(ctx context.Context, coupon *domain.Coupon, userID uint64, grant func(ctx context.Context) error) error
}

// IssueQueue 是先到先得排队的端口，由 infrastructure.FCFSQueue 满足。
type IssueQueue interface {
	Join(ctx context.Context, couponID, userID uint64, capacity int64) (int64, error)
	Leave(ctx context.Context, couponID, userID uint64) error
}

// FCFSAllocator 用原子的"不存在才加入"有序集合做先到先得判定，
// 不需要显式锁，排队与排名读取本身就是原子原语。
type FCFSAllocator struct {
	queue IssueQueue
}

func NewFCFSAllocator(queue IssueQueue) *FCFSAllocator {
	return &FCFSAllocator{queue: queue}
}

func (a *FCFSAllocator) TryIssue(ctx context.Context, coupon *domain.Coupon, userID uint64, grant func(ctx context.Context) error) error {
	if _, err := a.queue.Join(ctx, coupon.ID, userID, coupon.TotalQuantity); err != nil {
		return err
	}
	if err := grant(ctx); err != nil {
		// 落库失败要让出名额，否则队列占位会吃掉一个容量
		if leaveErr := a.queue.Leave(ctx, coupon.ID, userID); leaveErr != nil {
			return errors.Join(err, leaveErr)
		}
		return err
	}
	return nil
}

// LockedAllocator 是按券加互斥区的发放器：区内先查重、再核对已发数量、
// 最后执行落库。锁的实现可在进程内互斥与 ZooKeeper 间切换，调用点不变。
type LockedAllocator struct {
	locker      lock.KeyLocker
	coupons     domain.CouponRepository
	userCoupons domain.UserCouponRepository
	wait        time.Duration
	lease       time.Duration
}

func NewLockedAllocator(locker lock.KeyLocker, coupons domain.CouponRepository, userCoupons domain.UserCouponRepository) *LockedAllocator {
	return &LockedAllocator{
		locker:      locker,
		coupons:     coupons,
		userCoupons: userCoupons,
		wait:        3 * time.Second,
		lease:       10 * time.Second,
	}
}

func (a *LockedAllocator) TryIssue(ctx context.Context, coupon *domain.Coupon, userID uint64, grant func(ctx context.Context) error) error {
	// 查重不需要锁：已领取的拒绝是幂等的
	issued, err := a.userCoupons.Exists(ctx, userID, coupon.ID)
	if err != nil {
		return err
	}
	if issued {
		return domain.ErrAlreadyIssued
	}

	release, err := a.locker.Acquire(ctx, fmt.Sprintf("coupon-issue-%d", coupon.ID), a.wait, a.lease)
	if err != nil {
		return err
	}
	defer release()

	// 进入互斥区后重查一次，挡住排队期间先行完成的同用户请求
	issued, err = a.userCoupons.Exists(ctx, userID, coupon.ID)
	if err != nil {
		return err
	}
	if issued {
		return domain.ErrAlreadyIssued
	}

	fresh, err := a.coupons.FindByID(ctx, coupon.ID)
	if err != nil {
		return err
	}
	if fresh.IssuedQuantity >= fresh.TotalQuantity {
		return domain.ErrCapacityExceeded
	}

	return grant(ctx)
}
