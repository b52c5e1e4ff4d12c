// internal/service/point/infrastructure/mapper.go
package infrastructure

import (
	"ecommerce/internal/service/point/domain"
)

// ToDomainPoint 将数据库模型转换为领域模型。
func ToDomainPoint(model *PointModel) domain.Point {
	return domain.Point{
		ID:         model.ID,
		UserID:     model.UserID,
		Amount:     model.Amount,
		UsedAmount: model.UsedAmount,
		PointType:  domain.PointType(model.PointType),
		ExpiresAt:  model.ExpiresAt,
		Version:    model.Version,
		CreatedAt:  model.CreatedAt,
	}
}

// ToDomainUsage 将使用记录模型转换为领域模型。
func ToDomainUsage(model *PointUsageHistoryModel) domain.UsageHistory {
	return domain.UsageHistory{
		ID:         model.ID,
		PointID:    model.PointID,
		OrderID:    model.OrderID,
		Amount:     model.Amount,
		CanceledAt: model.CanceledAt,
	}
}

// FromDomainPoint 将领域模型转换为数据库模型，用于新增入账。
func FromDomainPoint(dmn *domain.Point) *PointModel {
	return &PointModel{
		ID:         dmn.ID,
		UserID:     dmn.UserID,
		Amount:     dmn.Amount,
		UsedAmount: dmn.UsedAmount,
		PointType:  string(dmn.PointType),
		ExpiresAt:  dmn.ExpiresAt,
		Version:    dmn.Version,
	}
}
