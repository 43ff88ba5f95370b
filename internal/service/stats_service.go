package service

import (
	"context"

	"go.uber.org/zap"
)

// StatsService 投资组合统计
// 只读派生指标，除刷新未实现盈亏缓存外不改变任何状态
type StatsService struct {
	logger     *zap.Logger
	market     *MarketService
	portfolios *PortfolioService
}

// NewStatsService 创建统计服务
func NewStatsService(market *MarketService, portfolios *PortfolioService, logger *zap.Logger) *StatsService {
	return &StatsService{
		logger:     logger,
		market:     market,
		portfolios: portfolios,
	}
}

// PortfolioStats 投资组合统计指标
type PortfolioStats struct {
	TotalValue        float64 `json:"total_value"`         // 余额 + 未实现盈亏
	TotalReturn       float64 `json:"total_return"`        // 相对初始余额的绝对收益
	ReturnPct         float64 `json:"return_pct"`          // 收益率(%)
	WinRate           float64 `json:"win_rate"`            // 胜率
	TotalTrades       int     `json:"total_trades"`        // 累计开仓次数
	OpenPositionCount int     `json:"open_position_count"` // 当前持仓数
	Balance           float64 `json:"balance"`             // 可用余额
	UnrealizedPnl     float64 `json:"unrealized_pnl"`      // 未实现盈亏
}

// GetPortfolioStats 计算用户的统计指标
// 未实现盈亏与平仓用同一公式，但不含手续费：手续费只在结算时实现
func (s *StatsService) GetPortfolioStats(ctx context.Context, userID string) (*PortfolioStats, error) {
	portfolio, err := s.portfolios.Get(userID)
	if err != nil {
		return nil, err
	}

	unrealized := 0.0
	for _, t := range portfolio.OpenPositions {
		price, err := s.market.GetPrice(ctx, t.Pair)
		if err != nil {
			// 行情缺失的持仓本轮按0计入，下次查询自然修正
			s.logger.Warn("skip unrealized pnl for pair without price",
				zap.String("user_id", userID),
				zap.String("pair", t.Pair),
				zap.Error(err))
			continue
		}
		unrealized += t.UnrealizedPnlAt(price)
	}

	// 派生缓存刷新，不属于资金变更
	if err := s.portfolios.SetUnrealizedPnl(userID, unrealized); err != nil {
		s.logger.Warn("failed to refresh unrealized pnl cache", zap.Error(err))
	}

	totalValue := portfolio.Balance + unrealized
	totalReturn := totalValue - portfolio.InitialBalance
	returnPct := 0.0
	if portfolio.InitialBalance > 0 {
		returnPct = totalReturn / portfolio.InitialBalance * 100
	}

	return &PortfolioStats{
		TotalValue:        totalValue,
		TotalReturn:       totalReturn,
		ReturnPct:         returnPct,
		WinRate:           portfolio.WinRate,
		TotalTrades:       portfolio.TotalTrades,
		OpenPositionCount: len(portfolio.OpenPositions),
		Balance:           portfolio.Balance,
		UnrealizedPnl:     unrealized,
	}, nil
}
