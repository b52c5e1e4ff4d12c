// internal/pkg/lock/keymutex.go
package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// KeyMutex 是 KeyLocker 的进程内实现，每个 key 一个容量为 1 的
// 令牌通道。单实例部署时用它，多实例部署换 ZKLocker，调用方不变。
type KeyMutex struct {
	mu      sync.Mutex
	entries map[string]*kmEntry
}

type kmEntry struct {
	token chan struct{}
	refs  int
}

func NewKeyMutex() *KeyMutex {
	return &KeyMutex{entries: make(map[string]*kmEntry)}
}

func (m *KeyMutex) acquireEntry(key string) *kmEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &kmEntry{token: make(chan struct{}, 1)}
		e.token <- struct{}{}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *KeyMutex) releaseEntry(key string, e *kmEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}

// Acquire 在 wait 预算内竞争 key 的令牌。
// 拿到后启动租约计时器，到期未释放则强制归还令牌。
func (m *KeyMutex) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Release, error) {
	e := m.acquireEntry(key)

	waitTimer := time.NewTimer(wait)
	defer waitTimer.Stop()

	select {
	case <-e.token:
	case <-waitTimer.C:
		m.releaseEntry(key, e)
		return nil, ErrLockAcquisitionFailed
	case <-ctx.Done():
		m.releaseEntry(key, e)
		return nil, ctx.Err()
	}

	// released 保证令牌只被归还一次：正常 Release 与租约到期二选一
	var released int32
	giveBack := func() {
		if atomic.CompareAndSwapInt32(&released, 0, 1) {
			e.token <- struct{}{}
			m.releaseEntry(key, e)
		}
	}

	leaseTimer := time.AfterFunc(lease, giveBack)

	return func() {
		leaseTimer.Stop()
		giveBack()
	}, nil
}
