package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnConflict_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	err := OnConflict(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return ErrOptimisticConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestOnConflict_NonConflictErrorNotRetried(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := OnConflict(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestOnConflict_ExhaustedReturnsLastError(t *testing.T) {
	calls := 0
	err := OnConflict(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return ErrOptimisticConflict
	})
	assert.ErrorIs(t, err, ErrOptimisticConflict)
	assert.Equal(t, 3, calls)
}

func TestOnConflict_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := OnConflict(ctx, 3, time.Hour, func() error {
		calls++
		return ErrOptimisticConflict
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_WrappedConflictRetried(t *testing.T) {
	calls := 0
	wrapped := errors.Join(errors.New("update user_coupons"), ErrOptimisticConflict)
	err := OnConflict(context.Background(), 2, time.Millisecond, func() error {
		calls++
		if calls == 1 {
			return wrapped
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
