package service

import (
	"context"
	"testing"

	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/xe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteAndCloseTradeScenario(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.source.setLiquidity("SOL-USDC", 1e12)
	engine.portfolios.Initialize("alice", 10000)

	trade, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair:     "SOL-USDC",
		Side:     models.SideLong,
		Size:     100,
		Leverage: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, trade.Status)
	assert.InDelta(t, 200, trade.EntryPrice, 1e-3)
	assert.InDelta(t, 0.6, trade.Fees, 1e-9)

	// 本金100 + 手续费0.6 已扣除
	p, _ := engine.portfolios.Get("alice")
	assert.InDelta(t, 9899.4, p.Balance, 1e-9)

	// 价格涨到220后平仓：毛盈亏50，两段手续费各0.6
	engine.source.setPrice("SOL-USDC", 220)

	closed, err := engine.trades.CloseTrade(context.Background(), "alice", trade.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.InDelta(t, 220, closed.ExitPrice, 1e-9)
	assert.InDelta(t, 48.8, closed.Pnl, 1e-3)

	p, _ = engine.portfolios.Get("alice")
	assert.InDelta(t, 10048.2, p.Balance, 1e-3)
	assert.InDelta(t, 48.8, p.TotalRealizedPnl, 1e-3)
}

func TestExecuteTradeRequiresPortfolio(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)

	_, err := engine.trades.ExecuteTrade(context.Background(), "nobody", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	assert.ErrorIs(t, err, xe.ErrPortfolioNotFound)
}

func TestExecuteTradeValidation(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.portfolios.Initialize("alice", 10000)

	tests := []struct {
		name string
		req  *TradeRequest
		want error
	}{
		{
			name: "zero size",
			req:  &TradeRequest{Pair: "SOL-USDC", Side: models.SideLong, Size: 0, Leverage: 5},
			want: xe.ErrInvalidParams,
		},
		{
			name: "leverage below one",
			req:  &TradeRequest{Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 0.5},
			want: xe.ErrInvalidParams,
		},
		{
			name: "leverage above max",
			req:  &TradeRequest{Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 101},
			want: xe.ErrInvalidParams,
		},
		{
			name: "unknown side",
			req:  &TradeRequest{Pair: "SOL-USDC", Side: "sideways", Size: 100, Leverage: 5},
			want: xe.ErrInvalidParams,
		},
		{
			name: "long stop loss above take profit",
			req:  &TradeRequest{Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5, StopLoss: 110, TakeProfit: 100},
			want: xe.ErrInvalidThresholds,
		},
		{
			name: "short stop loss below take profit",
			req:  &TradeRequest{Pair: "SOL-USDC", Side: models.SideShort, Size: 100, Leverage: 5, StopLoss: 90, TakeProfit: 100},
			want: xe.ErrInvalidThresholds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.trades.ExecuteTrade(context.Background(), "alice", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// 只设置单侧阈值始终合法
	trade, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5, StopLoss: 180,
	})
	require.NoError(t, err)
	assert.Equal(t, 180.0, trade.StopLoss)
}

func TestExecuteTradeUnsupportedPair(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.source.setPrice("MEME-USDC", 0.01)
	engine.source.setUnsupported("MEME-USDC")
	engine.portfolios.Initialize("alice", 10000)

	_, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "MEME-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	assert.ErrorIs(t, err, xe.ErrPairNotSupported)

	// 行情源完全不认识的交易对
	_, err = engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "NOPE-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	assert.ErrorIs(t, err, xe.ErrPairNotSupported)
}

func TestExecuteTradeZeroPrice(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 0)
	engine.portfolios.Initialize("alice", 10000)

	_, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	assert.ErrorIs(t, err, xe.ErrPriceUnavailable)

	// 报价为0时拒绝开仓且不动资金
	p, _ := engine.portfolios.Get("alice")
	assert.Equal(t, 10000.0, p.Balance)
	assert.Empty(t, p.OpenPositions)
}

func TestExecuteTradeInsufficientFunds(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.portfolios.Initialize("alice", 50)

	_, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	assert.ErrorIs(t, err, xe.ErrInsufficientFunds)

	p, _ := engine.portfolios.Get("alice")
	assert.Equal(t, 50.0, p.Balance)
	assert.Empty(t, p.OpenPositions)
}

func TestExecuteTradeSlippageDirection(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.source.setLiquidity("SOL-USDC", 1_000_000)
	engine.portfolios.Initialize("alice", 10000)

	long, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	require.NoError(t, err)
	// 做多成交价向上偏移
	assert.Greater(t, long.EntryPrice, 200.0)

	short, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideShort, Size: 100, Leverage: 5,
	})
	require.NoError(t, err)
	// 做空成交价向下偏移
	assert.Less(t, short.EntryPrice, 200.0)
}

func TestCloseTradeOwnership(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.portfolios.Initialize("alice", 10000)
	engine.portfolios.Initialize("bob", 10000)

	trade, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	require.NoError(t, err)

	_, err = engine.trades.CloseTrade(context.Background(), "bob", trade.ID)
	assert.ErrorIs(t, err, xe.ErrTradeNotOwned)

	_, err = engine.trades.CloseTrade(context.Background(), "alice", "no-such-trade")
	assert.ErrorIs(t, err, xe.ErrTradeNotFound)

	// 被拒绝的平仓不得改变持仓
	p, _ := engine.portfolios.Get("alice")
	assert.Len(t, p.OpenPositions, 1)
}

func TestCloseTradePriceUnavailable(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.portfolios.Initialize("alice", 10000)

	trade, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	require.NoError(t, err)

	engine.source.setFailing("SOL-USDC", true)

	_, err = engine.trades.CloseTrade(context.Background(), "alice", trade.ID)
	assert.ErrorIs(t, err, xe.ErrPriceUnavailable)

	// 行情失败时持仓保持不变
	p, _ := engine.portfolios.Get("alice")
	assert.Len(t, p.OpenPositions, 1)
	assert.Empty(t, p.ClosedPositions)
}

func TestCloseTradeTwice(t *testing.T) {
	engine := newTestEngine(t)
	engine.source.setPrice("SOL-USDC", 200)
	engine.portfolios.Initialize("alice", 10000)

	trade, err := engine.trades.ExecuteTrade(context.Background(), "alice", &TradeRequest{
		Pair: "SOL-USDC", Side: models.SideLong, Size: 100, Leverage: 5,
	})
	require.NoError(t, err)

	_, err = engine.trades.CloseTrade(context.Background(), "alice", trade.ID)
	require.NoError(t, err)

	_, err = engine.trades.CloseTrade(context.Background(), "alice", trade.ID)
	assert.ErrorIs(t, err, xe.ErrAlreadyClosed)
}
