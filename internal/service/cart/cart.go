// internal/service/cart/cart.go
package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrCartItemNotFound 表示购物车条目不存在。
var ErrCartItemNotFound = errors.New("cart item not found")

// CartItem 是购物车里的一行。
type CartItem struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"index"`
	ProductID uint64
	Quantity  int64
}

func (CartItem) TableName() string { return "cart_items" }

// Service 提供购物车读取与清理。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) ListCartItems(ctx context.Context, userID uint64) ([]CartItem, error) {
	var items []CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) GetCartItems(ctx context.Context, userID uint64, itemIDs []uint64) ([]CartItem, error) {
	var items []CartItem
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) != len(itemIDs) {
		return nil, ErrCartItemNotFound
	}
	return items, nil
}

func (s *Service) DeleteCartItem(ctx context.Context, itemID uint64) error {
	return s.db.WithContext(ctx).Delete(&CartItem{}, itemID).Error
}
