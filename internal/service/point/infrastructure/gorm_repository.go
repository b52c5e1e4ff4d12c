// internal/service/point/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ecommerce/internal/pkg/retry"
	"ecommerce/internal/service/point/domain"
)

// GormPointRepository 是 domain.Repository 的 GORM 实现。
type GormPointRepository struct {
	db *gorm.DB
}

func NewGormPointRepository(db *gorm.DB) *GormPointRepository {
	return &GormPointRepository{db: db}
}

// WithTx 返回绑定到指定事务的仓储副本，供跨上下文事务编排使用。
func (r *GormPointRepository) WithTx(tx *gorm.DB) domain.Repository {
	return &GormPointRepository{db: tx}
}

func (r *GormPointRepository) Create(ctx context.Context, point *domain.Point) error {
	model := FromDomainPoint(point)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	point.ID = model.ID
	return nil
}

func (r *GormPointRepository) ListAvailable(ctx context.Context, userID uint64, now time.Time) ([]domain.Point, error) {
	var models []PointModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND used_amount < amount AND expires_at > ? AND point_type IN ?",
			userID, now, []string{string(domain.PointTypeCharge), string(domain.PointTypeRefund)}).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	points := make([]domain.Point, 0, len(models))
	for i := range models {
		points = append(points, ToDomainPoint(&models[i]))
	}
	return points, nil
}

// ApplyDraw 带版本比对地扣减一笔积分。
// 没有命中期望版本说明有并发写入，返回冲突让上层重试。
func (r *GormPointRepository) ApplyDraw(ctx context.Context, draw domain.Draw) error {
	result := r.db.WithContext(ctx).Model(&PointModel{}).
		Where("id = ? AND version = ? AND used_amount + ? <= amount", draw.PointID, draw.Version, draw.Amount).
		Updates(map[string]interface{}{
			"used_amount": gorm.Expr("used_amount + ?", draw.Amount),
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return retry.ErrOptimisticConflict
	}
	return nil
}

func (r *GormPointRepository) SaveUsage(ctx context.Context, usage *domain.UsageHistory) error {
	model := &PointUsageHistoryModel{
		PointID: usage.PointID,
		OrderID: usage.OrderID,
		Amount:  usage.Amount,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	usage.ID = model.ID
	return nil
}

func (r *GormPointRepository) ListUsagesByOrder(ctx context.Context, orderID string) ([]domain.UsageHistory, error) {
	var models []PointUsageHistoryModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	usages := make([]domain.UsageHistory, 0, len(models))
	for i := range models {
		usages = append(usages, ToDomainUsage(&models[i]))
	}
	return usages, nil
}

func (r *GormPointRepository) RestoreDraw(ctx context.Context, pointID uint64, amount int64) error {
	return r.db.WithContext(ctx).Model(&PointModel{}).
		Where("id = ? AND used_amount >= ?", pointID, amount).
		Updates(map[string]interface{}{
			"used_amount": gorm.Expr("used_amount - ?", amount),
			"version":     gorm.Expr("version + 1"),
		}).Error
}

// CancelUsage 把使用记录标记为已撤销。已撤销的记录再次撤销会命中
// 零行，按 ErrUsageAlreadyCanceled 上抛。
func (r *GormPointRepository) CancelUsage(ctx context.Context, usageID uint64) error {
	result := r.db.WithContext(ctx).Model(&PointUsageHistoryModel{}).
		Where("id = ? AND canceled_at IS NULL", usageID).
		Update("canceled_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUsageAlreadyCanceled
	}
	return nil
}
