// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecommerce/internal/service/order/domain"
)

// GormOrderRepository 是 OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save 按主键插入或整体更新订单行，不触碰行项目。
func (r *GormOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, orderID string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	var items []OrderItemModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return ToDomainOrder(&model, items), nil
}

func (r *GormOrderRepository) ListPendingIDs(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&OrderModel{}).
		Where("status = ? AND created_at < ?", string(domain.StatusPendingPayment), before).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GormSettlementUnit 以独立事务和订单行锁执行结算回调。
type GormSettlementUnit struct {
	db *gorm.DB
}

func NewGormSettlementUnit(db *gorm.DB) *GormSettlementUnit {
	return &GormSettlementUnit{db: db}
}

// WithLockedOrder 在事务内以 FOR UPDATE 重取订单，执行回调后把
// 状态变更写回。回调返回错误则整体回滚。
func (u *GormSettlementUnit) WithLockedOrder(ctx context.Context, orderID string, fn func(ctx context.Context, order *domain.Order) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model OrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&model, "id = ?", orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrOrderNotFound
			}
			return err
		}
		var items []OrderItemModel
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}

		order := ToDomainOrder(&model, items)
		if err := fn(ctx, order); err != nil {
			return err
		}

		updated := FromDomainOrder(order)
		return tx.Model(&OrderModel{}).
			Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"status":     updated.Status,
				"updated_at": updated.UpdatedAt,
			}).Error
	})
}
