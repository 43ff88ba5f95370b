package models

import (
	"time"

	"github.com/dushixiang/papertrade/pkg/pricing"
)

// 持仓方向
const (
	SideLong  = "long"
	SideShort = "short"
)

// 交易状态，open → closed 单向流转
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Trade 一笔模拟杠杆交易
// 开仓后保存在内存中的投资组合里，平仓后追加写入历史表
type Trade struct {
	ID         string    `gorm:"primaryKey;type:varchar(26)" json:"id"`
	UserID     string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Pair       string    `gorm:"type:varchar(20);not null;index" json:"pair"`    // 交易对，如 SOL-USDC
	Side       string    `gorm:"type:varchar(10);not null" json:"side"`          // long/short
	EntryPrice float64   `gorm:"type:decimal(20,8);not null" json:"entry_price"` // 滑点调整后的入场价
	Size       float64   `gorm:"type:decimal(20,8);not null" json:"size"`        // 本金（计价币种，不含杠杆）
	Leverage   float64   `gorm:"type:decimal(10,2);not null" json:"leverage"`    // 杠杆倍数
	StopLoss   float64   `gorm:"type:decimal(20,8)" json:"stop_loss"`            // 止损价格，0表示未设置
	TakeProfit float64   `gorm:"type:decimal(20,8)" json:"take_profit"`          // 止盈价格，0表示未设置
	Status     string    `gorm:"type:varchar(10);not null;index" json:"status"`  // open/closed
	ExitPrice  float64   `gorm:"type:decimal(20,8)" json:"exit_price"`           // 平仓价格（仅平仓后有值）
	Pnl        float64   `gorm:"type:decimal(20,8)" json:"pnl"`                  // 净盈亏（仅平仓后有值）
	Fees       float64   `gorm:"type:decimal(20,8)" json:"fees"`                 // 开仓手续费
	Slippage   float64   `gorm:"type:decimal(10,8)" json:"slippage"`             // 入场滑点比例
	OpenedAt   time.Time `gorm:"not null;index" json:"opened_at"`
	ClosedAt   time.Time `json:"closed_at"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}

// UnrealizedPnlAt 按当前价格计算未实现盈亏（不含手续费）
func (t *Trade) UnrealizedPnlAt(currentPrice float64) float64 {
	return pricing.RawPnl(pricing.Side(t.Side), t.EntryPrice, currentPrice, t.Size, t.Leverage)
}

// HitStopLoss 当前价格是否触发止损
func (t *Trade) HitStopLoss(currentPrice float64) bool {
	if t.StopLoss == 0 {
		return false
	}
	if t.Side == SideLong {
		return currentPrice <= t.StopLoss
	}
	return currentPrice >= t.StopLoss
}

// HitTakeProfit 当前价格是否触发止盈
func (t *Trade) HitTakeProfit(currentPrice float64) bool {
	if t.TakeProfit == 0 {
		return false
	}
	if t.Side == SideLong {
		return currentPrice >= t.TakeProfit
	}
	return currentPrice <= t.TakeProfit
}
