// internal/service/promotion/infrastructure/fcfs_queue_adapter.go
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"ecommerce/internal/pkg/redis"
	"ecommerce/internal/service/promotion/domain"
)

const (
	fcfsScriptName = "coupon_fcfs_issue"

	// KEYS[1]: 排队有序集合, ARGV[1]: 用户ID, ARGV[2]: 容量, ARGV[3]: 到达时间戳
	// 返回值: 名次(0 起); -1 已领取; -2 超出容量
	fcfsScript = `
local added = redis.call('ZADD', KEYS[1], 'NX', ARGV[3], ARGV[1])
if added == 0 then
    return -1
end
local rank = redis.call('ZRANK', KEYS[1], ARGV[1])
if rank >= tonumber(ARGV[2]) then
    redis.call('ZREM', KEYS[1], ARGV[1])
    return -2
end
return rank
`

	// 与库存键、目录缓存键分属不同命名空间
	couponQueueKeyPattern = "coupon:queue:{%d}"
)

// FCFS 排队脚本的哨兵返回值
const (
	fcfsAlreadyIssued    = -1
	fcfsCapacityExceeded = -2
)

// FCFSQueue 用 Redis 有序集合实现先到先得的领券排队。
// ZADD NX 与 ZRANK 在同一脚本内执行，无需显式锁。
type FCFSQueue struct {
	redisClient *redis.Client
}

func NewFCFSQueue(redisClient *redis.Client) (*FCFSQueue, error) {
	if err := redisClient.LoadScriptFromContent(fcfsScriptName, fcfsScript); err != nil {
		return nil, err
	}
	return &FCFSQueue{redisClient: redisClient}, nil
}

func couponQueueKey(couponID uint64) string {
	return fmt.Sprintf(couponQueueKeyPattern, couponID)
}

// Join 尝试以当前时间戳入队，返回名次。
// 重复入队返回 ErrAlreadyIssued，排满返回 ErrCapacityExceeded。
func (q *FCFSQueue) Join(ctx context.Context, couponID, userID uint64, capacity int64) (int64, error) {
	keys := []string{couponQueueKey(couponID)}
	score := time.Now().UnixMicro()
	result, err := q.redisClient.RunScript(ctx, fcfsScriptName, keys, userID, capacity, score)
	if err != nil {
		return 0, errors.Wrap(err, "fcfs issue script")
	}
	rank, ok := result.(int64)
	if !ok {
		return 0, errors.Errorf("unexpected fcfs script result: %v", result)
	}
	switch rank {
	case fcfsAlreadyIssued:
		return 0, domain.ErrAlreadyIssued
	case fcfsCapacityExceeded:
		return 0, domain.ErrCapacityExceeded
	}
	return rank, nil
}

// Leave 把用户移出队列，用于落库失败后的回滚。
func (q *FCFSQueue) Leave(ctx context.Context, couponID, userID uint64) error {
	return q.redisClient.GetClient().
		ZRem(ctx, couponQueueKey(couponID), fmt.Sprintf("%d", userID)).Err()
}
