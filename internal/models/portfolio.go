package models

import "time"

// Portfolio 单个用户的虚拟投资组合
// 全程驻留内存，资金的唯一权威来源；进程重启后不保证恢复
type Portfolio struct {
	UserID           string    `json:"user_id"`
	Balance          float64   `json:"balance"`            // 可用余额（未被持仓占用的部分）
	InitialBalance   float64   `json:"initial_balance"`    // 创建时的初始余额，收益率基准
	TotalRealizedPnl float64   `json:"total_realized_pnl"` // 已实现盈亏累计
	UnrealizedPnl    float64   `json:"unrealized_pnl"`     // 未实现盈亏缓存，按需重算，仅派生值
	OpenPositions    []*Trade  `json:"open_positions"`     // 持仓中的交易，按开仓顺序
	ClosedPositions  []*Trade  `json:"closed_positions"`   // 历史交易，只追加
	TotalTrades      int       `json:"total_trades"`       // 累计开仓次数，只增不减
	WinRate          float64   `json:"win_rate"`           // 盈利平仓占比
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FindOpen 按ID查找持仓中的交易
func (p *Portfolio) FindOpen(tradeID string) *Trade {
	for _, t := range p.OpenPositions {
		if t.ID == tradeID {
			return t
		}
	}
	return nil
}

// FindClosed 按ID查找历史交易
func (p *Portfolio) FindClosed(tradeID string) *Trade {
	for _, t := range p.ClosedPositions {
		if t.ID == tradeID {
			return t
		}
	}
	return nil
}
