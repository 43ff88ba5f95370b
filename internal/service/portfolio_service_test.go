package service

import (
	"sync"
	"testing"
	"time"

	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/xe"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenTrade(userID string) *models.Trade {
	return &models.Trade{
		ID:         ulid.Make().String(),
		UserID:     userID,
		Pair:       "SOL-USDC",
		Side:       models.SideLong,
		EntryPrice: 200,
		Size:       100,
		Leverage:   5,
		Status:     models.StatusOpen,
		Fees:       0.6,
		OpenedAt:   time.Now(),
	}
}

func TestInitializeReturnsExistingPortfolio(t *testing.T) {
	engine := newTestEngine(t)

	first := engine.portfolios.Initialize("alice", 5000)
	assert.Equal(t, 5000.0, first.Balance)
	assert.Equal(t, 5000.0, first.InitialBalance)

	// 重复初始化返回现有组合，不覆盖
	second := engine.portfolios.Initialize("alice", 99999)
	assert.Equal(t, 5000.0, second.Balance)
	assert.Equal(t, 5000.0, second.InitialBalance)
}

func TestInitializeDefaultBalance(t *testing.T) {
	engine := newTestEngine(t)

	p := engine.portfolios.Initialize("bob", 0)
	assert.Equal(t, 10000.0, p.Balance)
}

func TestDebitCredit(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 1000)

	require.NoError(t, engine.portfolios.Debit("alice", 400))
	p, err := engine.portfolios.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, 600.0, p.Balance)

	// 余额不足时拒绝且不产生变更
	err = engine.portfolios.Debit("alice", 601)
	assert.ErrorIs(t, err, xe.ErrInsufficientFunds)
	p, _ = engine.portfolios.Get("alice")
	assert.Equal(t, 600.0, p.Balance)

	require.NoError(t, engine.portfolios.Credit("alice", 400))
	p, _ = engine.portfolios.Get("alice")
	assert.Equal(t, 1000.0, p.Balance)

	assert.ErrorIs(t, engine.portfolios.Debit("nobody", 1), xe.ErrPortfolioNotFound)
}

func TestOpenTradeAtomicity(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 100)

	trade := newOpenTrade("alice")
	// 本金100 + 手续费0.6 > 余额100
	err := engine.portfolios.OpenTrade("alice", trade)
	assert.ErrorIs(t, err, xe.ErrInsufficientFunds)

	p, _ := engine.portfolios.Get("alice")
	assert.Equal(t, 100.0, p.Balance)
	assert.Empty(t, p.OpenPositions)
	assert.Equal(t, 0, p.TotalTrades)
}

func TestTradeExclusivity(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)

	trade := newOpenTrade("alice")
	require.NoError(t, engine.portfolios.OpenTrade("alice", trade))

	// 开仓后只出现在持仓列表
	p, _ := engine.portfolios.Get("alice")
	assert.NotNil(t, p.FindOpen(trade.ID))
	assert.Nil(t, p.FindClosed(trade.ID))

	closed, err := engine.portfolios.CloseTrade("alice", trade.ID, 220, 48.8)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClosed, closed.Status)
	assert.Equal(t, 220.0, closed.ExitPrice)
	assert.False(t, closed.ClosedAt.IsZero())

	// 平仓后只出现在历史列表
	p, _ = engine.portfolios.Get("alice")
	assert.Nil(t, p.FindOpen(trade.ID))
	assert.NotNil(t, p.FindClosed(trade.ID))
}

func TestCloseTradeSettlement(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)

	trade := newOpenTrade("alice")
	require.NoError(t, engine.portfolios.OpenTrade("alice", trade))

	p, _ := engine.portfolios.Get("alice")
	assert.InDelta(t, 9899.4, p.Balance, 1e-9)
	assert.Equal(t, 1, p.TotalTrades)

	_, err := engine.portfolios.CloseTrade("alice", trade.ID, 220, 48.8)
	require.NoError(t, err)

	p, _ = engine.portfolios.Get("alice")
	assert.InDelta(t, 10048.2, p.Balance, 1e-9)
	assert.InDelta(t, 48.8, p.TotalRealizedPnl, 1e-9)
	assert.Equal(t, 1.0, p.WinRate)
}

func TestDoubleCloseIsIdempotent(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)

	trade := newOpenTrade("alice")
	require.NoError(t, engine.portfolios.OpenTrade("alice", trade))

	_, err := engine.portfolios.CloseTrade("alice", trade.ID, 220, 48.8)
	require.NoError(t, err)

	_, err = engine.portfolios.CloseTrade("alice", trade.ID, 220, 48.8)
	assert.ErrorIs(t, err, xe.ErrAlreadyClosed)

	// 资金只结算了一次
	p, _ := engine.portfolios.Get("alice")
	assert.InDelta(t, 10048.2, p.Balance, 1e-9)
}

func TestConcurrentCloseSingleWinner(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)

	trade := newOpenTrade("alice")
	require.NoError(t, engine.portfolios.OpenTrade("alice", trade))

	const closers = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, closers)

	for i := 0; i < closers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.portfolios.CloseTrade("alice", trade.ID, 220, 48.8); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "exactly one closer must win")

	p, _ := engine.portfolios.Get("alice")
	assert.InDelta(t, 10048.2, p.Balance, 1e-9)
	assert.Len(t, p.ClosedPositions, 1)
	assert.Empty(t, p.OpenPositions)
}

func TestWinRate(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)

	winners := 0
	for i, pnl := range []float64{10, -5, 20, -1} {
		trade := newOpenTrade("alice")
		require.NoError(t, engine.portfolios.OpenTrade("alice", trade))
		_, err := engine.portfolios.CloseTrade("alice", trade.ID, 200, pnl)
		require.NoError(t, err, "trade %d", i)
		if pnl > 0 {
			winners++
		}
	}

	p, _ := engine.portfolios.Get("alice")
	assert.Equal(t, float64(winners)/4.0, p.WinRate)
	assert.Equal(t, 4, p.TotalTrades)
}

func TestOwnerIndex(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)
	engine.portfolios.Initialize("bob", 10000)

	trade := newOpenTrade("alice")
	require.NoError(t, engine.portfolios.OpenTrade("alice", trade))

	owner, ok := engine.portfolios.Owner(trade.ID)
	require.True(t, ok)
	assert.Equal(t, "alice", owner)

	_, ok = engine.portfolios.Owner("missing")
	assert.False(t, ok)
}

func TestUsersWithOpenPositions(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)
	engine.portfolios.Initialize("bob", 10000)

	require.NoError(t, engine.portfolios.OpenTrade("alice", newOpenTrade("alice")))

	users := engine.portfolios.UsersWithOpenPositions()
	assert.Equal(t, []string{"alice"}, users)
}

func TestGetReturnsSnapshot(t *testing.T) {
	engine := newTestEngine(t)
	engine.portfolios.Initialize("alice", 10000)

	trade := newOpenTrade("alice")
	require.NoError(t, engine.portfolios.OpenTrade("alice", trade))

	p, _ := engine.portfolios.Get("alice")
	p.Balance = -1
	p.OpenPositions[0].Size = -1

	// 修改快照不影响内部状态
	fresh, _ := engine.portfolios.Get("alice")
	assert.InDelta(t, 9899.4, fresh.Balance, 1e-9)
	assert.Equal(t, 100.0, fresh.OpenPositions[0].Size)
}
