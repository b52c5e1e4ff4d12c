// internal/service/point/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/point/domain"
)

// BalanceCache 是余额缓存端口，由 infrastructure.BalanceCache 满足。
type BalanceCache interface {
	Get(ctx context.Context, userID uint64) (int64, bool, error)
	Set(ctx context.Context, userID uint64, balance int64) error
	Add(ctx context.Context, userID uint64, delta int64) error
}

// PointStore 在仓储端口上追加事务绑定能力。
type PointStore interface {
	domain.Repository
	WithTx(tx *gorm.DB) domain.Repository
}

// PointService 处理积分的入账、余额查询、下单扣减与补偿回滚。
type PointService struct {
	repo   PointStore
	cache  BalanceCache
	tracer trace.Tracer
}

func NewPointService(repo PointStore, cache BalanceCache) *PointService {
	return &PointService{
		repo:   repo,
		cache:  cache,
		tracer: otel.Tracer("point.application"),
	}
}

// Charge 新增一笔积分入账并同步缓存余额。
func (s *PointService) Charge(ctx context.Context, userID uint64, amount int64, pointType domain.PointType, validFor time.Duration) (*domain.Point, error) {
	ctx, span := s.tracer.Start(ctx, "PointService.Charge", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("point.amount", amount),
	))
	defer span.End()

	point := &domain.Point{
		UserID:    userID,
		Amount:    amount,
		PointType: pointType,
		ExpiresAt: time.Now().Add(validFor),
	}
	if err := s.repo.Create(ctx, point); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "charge failed")
		return nil, err
	}

	if err := s.cache.Add(ctx, userID, amount); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("user_id", userID).Msg("point balance cache add failed")
	}
	return point, nil
}

// GetBalance 读缓存余额，未命中时回源重建。
func (s *PointService) GetBalance(ctx context.Context, userID uint64) (int64, error) {
	balance, exists, err := s.cache.Get(ctx, userID)
	if err == nil && exists {
		return balance, nil
	}
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("user_id", userID).Msg("point balance cache read failed")
	}

	now := time.Now()
	entries, err := s.repo.ListAvailable(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	balance = domain.TotalUsable(entries, now)

	if err := s.cache.Set(ctx, userID, balance); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Uint64("user_id", userID).Msg("point balance cache rebuild failed")
	}
	return balance, nil
}

// CheckAffordable 校验可用余额能否覆盖 amount，不足返回 ErrInsufficientPoints。
// 只做预检，权威判定在提交事务内的 ConsumeInTx。
func (s *PointService) CheckAffordable(ctx context.Context, userID uint64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	balance, err := s.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	if balance < amount {
		return domain.ErrInsufficientPoints
	}
	return nil
}

// ConsumeInTx 在订单提交事务内按先进先出扣减积分并写使用记录。
// 版本未命中以 retry.ErrOptimisticConflict 上抛，由提交重试兜住。
func (s *PointService) ConsumeInTx(ctx context.Context, tx *gorm.DB, userID uint64, orderID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	repo := s.repo.WithTx(tx)
	now := time.Now()

	entries, err := repo.ListAvailable(ctx, userID, now)
	if err != nil {
		return err
	}
	plan, err := domain.PlanConsumption(entries, amount, now)
	if err != nil {
		return err
	}
	for _, draw := range plan {
		if err := repo.ApplyDraw(ctx, draw); err != nil {
			return err
		}
		usage := &domain.UsageHistory{
			PointID: draw.PointID,
			OrderID: orderID,
			Amount:  draw.Amount,
		}
		if err := repo.SaveUsage(ctx, usage); err != nil {
			return err
		}
	}
	return nil
}

// DeductCached 在订单提交成功后调整缓存余额，失败只记日志。
func (s *PointService) DeductCached(ctx context.Context, userID uint64, amount int64) {
	if amount <= 0 {
		return
	}
	if err := s.cache.Add(ctx, userID, -amount); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Uint64("user_id", userID).
			Int64("amount", amount).
			Msg("point balance cache deduct failed")
	}
}

// Restore 回滚某订单的全部积分扣减，返回实际还回的总额。
// 已撤销的记录再次撤销会收集 ErrUsageAlreadyCanceled，
// 但不会阻止其余记录继续回滚。
func (s *PointService) Restore(ctx context.Context, orderID string, userID uint64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "PointService.Restore", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	usages, err := s.repo.ListUsagesByOrder(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	var restored int64
	var errs []error
	for i := range usages {
		usage := &usages[i]
		if usage.Canceled() {
			errs = append(errs, domain.ErrUsageAlreadyCanceled)
			continue
		}
		if err := s.repo.RestoreDraw(ctx, usage.PointID, usage.Amount); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.repo.CancelUsage(ctx, usage.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		restored += usage.Amount
	}

	if restored > 0 {
		if err := s.cache.Add(ctx, userID, restored); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Uint64("user_id", userID).Msg("point balance cache restore failed")
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		span.RecordError(joined)
		span.SetStatus(codes.Error, "point restore incomplete")
		return restored, joined
	}

	span.SetAttributes(attribute.Int64("point.restored", restored))
	return restored, nil
}
