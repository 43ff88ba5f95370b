package models

import (
	"time"

	"gorm.io/datatypes"
)

// PortfolioSnapshot 投资组合快照
// 风控巡检触发平仓后记录一次，用于资金曲线展示；尽力而为，不作为权威数据
type PortfolioSnapshot struct {
	ID               string                      `gorm:"primaryKey;type:varchar(26)" json:"id"`
	UserID           string                      `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Balance          float64                     `gorm:"type:decimal(20,8);not null" json:"balance"`    // 可用余额
	TotalValue       float64                     `gorm:"type:decimal(20,8)" json:"total_value"`         // 余额 + 未实现盈亏
	UnrealizedPnl    float64                     `gorm:"type:decimal(20,8)" json:"unrealized_pnl"`      // 未实现盈亏
	TotalRealizedPnl float64                     `gorm:"type:decimal(20,8)" json:"total_realized_pnl"`  // 已实现盈亏累计
	WinRate          float64                     `gorm:"type:decimal(10,4)" json:"win_rate"`            // 胜率
	TotalTrades      int                         `gorm:"type:int" json:"total_trades"`                  // 累计开仓次数
	OpenTradeIDs     datatypes.JSONSlice[string] `gorm:"type:json" json:"open_trade_ids"`               // 快照时刻的持仓ID
	RecordedAt       time.Time                   `gorm:"not null;index" json:"recorded_at"`
	CreatedAt        time.Time                   `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}
