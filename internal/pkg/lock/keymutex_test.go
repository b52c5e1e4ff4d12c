package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyMutex_MutualExclusion(t *testing.T) {
	m := NewKeyMutex()
	ctx := context.Background()

	var counter, max int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Acquire(ctx, "k", time.Second, time.Second)
			require.NoError(t, err)
			defer release()

			mu.Lock()
			counter++
			if counter > max {
				max = counter
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			counter--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, max)
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	m := NewKeyMutex()
	ctx := context.Background()

	r1, err := m.Acquire(ctx, "a", 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	defer r1()

	r2, err := m.Acquire(ctx, "b", 10*time.Millisecond, time.Second)
	require.NoError(t, err)
	defer r2()
}

func TestKeyMutex_WaitBudgetExceeded(t *testing.T) {
	m := NewKeyMutex()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "k", time.Second, time.Minute)
	require.NoError(t, err)
	defer release()

	_, err = m.Acquire(ctx, "k", 20*time.Millisecond, time.Minute)
	assert.ErrorIs(t, err, ErrLockAcquisitionFailed)
}

func TestKeyMutex_ContextCanceledWhileWaiting(t *testing.T) {
	m := NewKeyMutex()

	release, err := m.Acquire(context.Background(), "k", time.Second, time.Minute)
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err = m.Acquire(ctx, "k", time.Minute, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyMutex_LeaseExpiryFreesToken(t *testing.T) {
	m := NewKeyMutex()
	ctx := context.Background()

	// 拿到锁后不释放，租约到期应自动归还令牌
	_, err := m.Acquire(ctx, "k", time.Second, 20*time.Millisecond)
	require.NoError(t, err)

	release, err := m.Acquire(ctx, "k", time.Second, time.Minute)
	require.NoError(t, err)
	release()
}

func TestKeyMutex_DoubleReleaseSafe(t *testing.T) {
	m := NewKeyMutex()
	ctx := context.Background()

	release, err := m.Acquire(ctx, "k", time.Second, time.Minute)
	require.NoError(t, err)
	release()
	release()

	r2, err := m.Acquire(ctx, "k", 20*time.Millisecond, time.Minute)
	require.NoError(t, err)
	r2()
}
