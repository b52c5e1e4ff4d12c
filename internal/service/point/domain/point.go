// internal/service/point/domain/point.go
package domain

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientPoints 表示可用积分不足以覆盖本次扣减。
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrUsageAlreadyCanceled 表示同一条使用记录被二次撤销。
	// 这是补偿路径的异常信号，必须上抛而不是静默吞掉。
	ErrUsageAlreadyCanceled = errors.New("point usage already canceled")
)

type PointType string

const (
	PointTypeCharge PointType = "CHARGE"
	PointTypeUse    PointType = "USE"
	PointTypeRefund PointType = "REFUND"
)

// Consumable 判断该类型的条目能否被下单扣减。USE 条目只是流水，不可再消费。
func (t PointType) Consumable() bool {
	return t == PointTypeCharge || t == PointTypeRefund
}

// Point 是一笔积分入账，扣减时按入账时间先进先出。
type Point struct {
	ID         uint64
	UserID     uint64
	Amount     int64
	UsedAmount int64
	PointType  PointType
	ExpiresAt  time.Time
	Version    int64
	CreatedAt  time.Time
}

// Remaining 返回本笔尚未使用的余量。
func (p *Point) Remaining() int64 {
	return p.Amount - p.UsedAmount
}

// Usable 判断本笔在 now 时刻是否可用。
func (p *Point) Usable(now time.Time) bool {
	return p.PointType.Consumable() && p.Remaining() > 0 && p.ExpiresAt.After(now)
}

// UsageHistory 记录一次下单对某笔积分的扣减，补偿时按记录逐笔回滚。
type UsageHistory struct {
	ID         uint64
	PointID    uint64
	OrderID    string
	Amount     int64
	CanceledAt *time.Time
}

// Canceled 判断该条使用记录是否已被撤销。
func (h *UsageHistory) Canceled() bool {
	return h.CanceledAt != nil
}

// Draw 是消费计划中的一步：从某笔积分扣走多少。
type Draw struct {
	PointID uint64
	Version int64
	Amount  int64
}

// PlanConsumption 按入账时间从旧到新规划扣减，直到覆盖 required。
// entries 必须已按 CreatedAt 升序排列。余量不足返回 ErrInsufficientPoints，
// 不产生任何部分计划。
func PlanConsumption(entries []Point, required int64, now time.Time) ([]Draw, error) {
	if required <= 0 {
		return nil, nil
	}

	var plan []Draw
	remaining := required
	for _, entry := range entries {
		if !entry.Usable(now) {
			continue
		}
		draw := entry.Remaining()
		if draw > remaining {
			draw = remaining
		}
		plan = append(plan, Draw{PointID: entry.ID, Version: entry.Version, Amount: draw})
		remaining -= draw
		if remaining == 0 {
			return plan, nil
		}
	}
	return nil, ErrInsufficientPoints
}

// TotalUsable 汇总 now 时刻的可用余额。
func TotalUsable(entries []Point, now time.Time) int64 {
	var total int64
	for _, entry := range entries {
		if entry.Usable(now) {
			total += entry.Remaining()
		}
	}
	return total
}
