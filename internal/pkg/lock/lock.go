// internal/pkg/lock/lock.go
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockAcquisitionFailed 在等待预算内未能拿到锁时返回。
// 调用方不应无限等待，拿不到锁就快速失败。
var ErrLockAcquisitionFailed = errors.New("lock acquisition failed")

// Release 释放已持有的锁。重复调用无副作用。
type Release func()

// KeyLocker 按 key 提供互斥区。
// wait 是获取锁的最长等待时间，lease 是持有上限，
// 超过 lease 仍未释放的锁会被强制回收，防止持有者挂死拖垮整条 key。
type KeyLocker interface {
	Acquire(ctx context.Context, key string, wait, lease time.Duration) (Release, error)
}
