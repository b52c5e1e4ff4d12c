// internal/service/order/infrastructure/mapper.go
package infrastructure

import (
	"ecommerce/internal/service/order/domain"
)

// FromDomainOrder 将领域模型转换为数据库模型（不含行项目）。
func FromDomainOrder(order *domain.Order) *OrderModel {
	return &OrderModel{
		ID:             order.ID,
		UserID:         order.UserID,
		Status:         string(order.Status),
		TotalAmount:    order.TotalAmount,
		ShippingFee:    order.ShippingFee,
		DiscountAmount: order.DiscountAmount,
		PointAmount:    order.PointAmount,
		FinalAmount:    order.FinalAmount,
		CouponID:       order.CouponID,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

// FromDomainItems 将行项目转换为数据库模型。
func FromDomainItems(order *domain.Order) []OrderItemModel {
	items := make([]OrderItemModel, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemModel{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return items
}

// ToDomainOrder 将数据库模型转换为领域模型。
func ToDomainOrder(model *OrderModel, itemModels []OrderItemModel) *domain.Order {
	items := make([]domain.OrderItem, 0, len(itemModels))
	for _, item := range itemModels {
		items = append(items, domain.OrderItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return &domain.Order{
		ID:             model.ID,
		UserID:         model.UserID,
		Status:         domain.Status(model.Status),
		Items:          items,
		TotalAmount:    model.TotalAmount,
		ShippingFee:    model.ShippingFee,
		DiscountAmount: model.DiscountAmount,
		PointAmount:    model.PointAmount,
		FinalAmount:    model.FinalAmount,
		CouponID:       model.CouponID,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}
}
