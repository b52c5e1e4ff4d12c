// internal/service/order/infrastructure/commit_unit.go
package infrastructure

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecommerce/internal/service/order/domain"
	pointapp "ecommerce/internal/service/point/application"
	promotionapp "ecommerce/internal/service/promotion/application"
)

// GormCommitUnit 在一个数据库事务里完成订单提交:
// 券使用额度分配、积分先进先出扣减、订单行更新与行项目插入。
// 任一步失败整体回滚；乐观冲突原样上抛，由 Saga 的提交重试兜住。
type GormCommitUnit struct {
	db      *gorm.DB
	coupons *promotionapp.CouponService
	points  *pointapp.PointService
}

func NewGormCommitUnit(db *gorm.DB, coupons *promotionapp.CouponService, points *pointapp.PointService) *GormCommitUnit {
	return &GormCommitUnit{db: db, coupons: coupons, points: points}
}

func (u *GormCommitUnit) Commit(ctx context.Context, order *domain.Order) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if order.CouponID != nil {
			if err := u.coupons.AllocateInTx(ctx, tx, order.UserID, *order.CouponID); err != nil {
				return err
			}
		}
		if order.PointAmount > 0 {
			if err := u.points.ConsumeInTx(ctx, tx, order.UserID, order.ID, order.PointAmount); err != nil {
				return err
			}
		}

		// 状态列直接写成待支付，领域对象的流转在事务成功后进行，
		// 重试的中间失败不会把内存状态推过头
		model := FromDomainOrder(order)
		model.Status = string(domain.StatusPendingPayment)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(model).Error; err != nil {
			return err
		}

		items := FromDomainItems(order)
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return order.MarkPendingPayment()
}
