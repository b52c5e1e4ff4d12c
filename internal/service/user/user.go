// internal/service/user/user.go
package user

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserNotFound 表示用户不存在。
var ErrUserNotFound = errors.New("user not found")

// User 是订单侧消费的用户只读视图。
type User struct {
	ID       uint64 `gorm:"primaryKey"`
	Email    string
	Nickname string
	IsActive bool
}

func (User) TableName() string { return "users" }

// Service 提供用户读取。
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) GetUser(ctx context.Context, userID uint64) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserWithLock 在给定事务内以行锁读取用户。
func (s *Service) GetUserWithLock(ctx context.Context, tx *gorm.DB, userID uint64) (*User, error) {
	var u User
	err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&u, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}
