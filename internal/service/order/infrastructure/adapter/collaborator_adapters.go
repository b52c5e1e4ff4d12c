// internal/service/order/infrastructure/adapter/collaborator_adapters.go
package adapter

import (
	"context"

	"ecommerce/internal/service/cart"
	"ecommerce/internal/service/catalog"
	"ecommerce/internal/service/order/domain/port"
	"ecommerce/internal/service/user"
)

// CatalogAdapter 把目录服务适配成订单侧的出站端口。
type CatalogAdapter struct {
	svc *catalog.Service
}

func NewCatalogAdapter(svc *catalog.Service) *CatalogAdapter {
	return &CatalogAdapter{svc: svc}
}

func (a *CatalogAdapter) GetProduct(ctx context.Context, productID uint64) (*port.ProductInfo, error) {
	product, err := a.svc.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &port.ProductInfo{
		ID:           product.ID,
		Name:         product.Name,
		Price:        product.Price,
		IsActive:     product.IsActive,
		IsOutOfStock: product.IsOutOfStock,
	}, nil
}

// UserAdapter 把用户服务适配成订单侧的出站端口。
type UserAdapter struct {
	svc *user.Service
}

func NewUserAdapter(svc *user.Service) *UserAdapter {
	return &UserAdapter{svc: svc}
}

func (a *UserAdapter) GetUser(ctx context.Context, userID uint64) (*port.UserInfo, error) {
	u, err := a.svc.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &port.UserInfo{ID: u.ID, IsActive: u.IsActive}, nil
}

// CartAdapter 把购物车服务适配成订单侧的出站端口。
type CartAdapter struct {
	svc *cart.Service
}

func NewCartAdapter(svc *cart.Service) *CartAdapter {
	return &CartAdapter{svc: svc}
}

func (a *CartAdapter) GetCartItems(ctx context.Context, userID uint64, itemIDs []uint64) ([]port.CartLine, error) {
	items, err := a.svc.GetCartItems(ctx, userID, itemIDs)
	if err != nil {
		return nil, err
	}
	lines := make([]port.CartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, port.CartLine{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

func (a *CartAdapter) DeleteCartItem(ctx context.Context, itemID uint64) error {
	return a.svc.DeleteCartItem(ctx, itemID)
}
