package service

import (
	"context"
	"sync"
	"testing"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/pkg/pricefeed"
	"go.uber.org/zap"
)

// fakeSource 可编程行情源，服务层测试共用
type fakeSource struct {
	mu          sync.Mutex
	prices      map[string]float64
	changes     map[string]float64
	liquidity   map[string]float64
	failing     map[string]bool
	unsupported map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		prices:      make(map[string]float64),
		changes:     make(map[string]float64),
		liquidity:   make(map[string]float64),
		failing:     make(map[string]bool),
		unsupported: make(map[string]bool),
	}
}

func (f *fakeSource) setPrice(pairID string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[pairID] = price
}

func (f *fakeSource) setLiquidity(pairID string, liquidity float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.liquidity[pairID] = liquidity
}

func (f *fakeSource) setFailing(pairID string, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[pairID] = failing
}

func (f *fakeSource) setUnsupported(pairID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsupported[pairID] = true
}

func (f *fakeSource) GetSupportedPairs(ctx context.Context) ([]*pricefeed.TradingPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pairs := make([]*pricefeed.TradingPair, 0, len(f.prices))
	for id, price := range f.prices {
		liquidity := f.liquidity[id]
		if liquidity == 0 {
			liquidity = 100_000_000
		}
		pairs = append(pairs, &pricefeed.TradingPair{
			ID:             id,
			CurrentPrice:   price,
			PriceChange24h: f.changes[id],
			Liquidity:      liquidity,
			Supported:      !f.unsupported[id],
		})
	}
	return pairs, nil
}

func (f *fakeSource) GetPrice(ctx context.Context, pairID string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failing[pairID] {
		return 0, pricefeed.ErrUnavailable
	}
	price, ok := f.prices[pairID]
	if !ok {
		return 0, pricefeed.ErrUnknownPair
	}
	return price, nil
}

// testEngine 服务层测试用的完整引擎（无数据库、无Telegram）
type testEngine struct {
	source     *fakeSource
	market     *MarketService
	portfolios *PortfolioService
	trades     *TradeService
	stats      *StatsService
	monitor    *MonitorService
	conf       *config.Config
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	conf := &config.Config{}
	conf.Normalize()

	logger := zap.NewNop()
	source := newFakeSource()
	market := NewMarketService(source, conf, logger)
	portfolios := NewPortfolioService(conf, logger)
	trades := NewTradeService(conf, market, portfolios, nil, logger)
	stats := NewStatsService(market, portfolios, logger)
	monitor := NewMonitorService(conf, market, trades, portfolios, stats, nil, nil, logger)

	return &testEngine{
		source:     source,
		market:     market,
		portfolios: portfolios,
		trades:     trades,
		stats:      stats,
		monitor:    monitor,
		conf:       conf,
	}
}
