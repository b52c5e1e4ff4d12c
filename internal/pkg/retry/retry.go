// internal/pkg/retry/retry.go
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrOptimisticConflict 表示带版本号的写入没有命中期望的版本。
// 调用方用 OnConflict 做有限次重试，重试耗尽后按内部错误上抛。
var ErrOptimisticConflict = errors.New("optimistic concurrency conflict")

// OnConflict 只在乐观冲突时重试，其他错误立即返回。
func OnConflict(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	return Do(ctx, attempts, backoff, func(err error) bool {
		return errors.Is(err, ErrOptimisticConflict)
	}, fn)
}

// Do 以固定间隔重试 fn，最多 attempts 次。
// 仅当 retryable 判定为真时继续重试，否则立即返回该错误。
// 重试耗尽时返回最后一次的错误，由调用方决定如何包装。
func Do(ctx context.Context, attempts int, backoff time.Duration, retryable func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
