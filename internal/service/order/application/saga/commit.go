// internal/service/order/application/saga/commit.go
package saga

import (
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"

	"ecommerce/internal/pkg/retry"
)

const (
	commitAttempts = 3
	commitBackoff  = 100 * time.Millisecond
)

// CommitHandler 执行持久化提交事务。
// 只有乐观冲突会触发有限次重试，其他错误立即失败。
type CommitHandler struct {
	NextHandler
}

func NewCommitHandler() *CommitHandler {
	return &CommitHandler{}
}

func (h *CommitHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.Commit")
	defer span.End()

	order := orderCtx.Order
	if err := order.MarkCommitting(); err != nil {
		return err
	}

	err := retry.OnConflict(ctx, commitAttempts, commitBackoff, func() error {
		return orderCtx.CommitUnit.Commit(ctx, order)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order commit failed")
		return errors.Wrap(err, "order commit")
	}
	span.AddEvent("order committed")

	// 提交已成功，缓存余额扣减只是加速视图，失败由缓存自身重建修正
	orderCtx.PointService.DeductCached(ctx, order.UserID, order.PointAmount)

	return h.executeNext(orderCtx)
}
