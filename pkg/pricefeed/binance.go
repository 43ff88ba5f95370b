package pricefeed

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"
)

// BinanceSource Binance 现货行情适配器
// 交易对标识 SOL-USDC 映射为现货 symbol SOLUSDC
type BinanceSource struct {
	client *binance.Client
	pairs  []PairSpec
	logger *zap.Logger
}

// NewBinanceSource 创建 Binance 行情源（公开行情接口无需密钥）
func NewBinanceSource(apiKey, secret string, pairs []PairSpec, logger *zap.Logger) *BinanceSource {
	return &BinanceSource{
		client: binance.NewClient(apiKey, secret),
		pairs:  pairs,
		logger: logger,
	}
}

func pairSymbol(pairID string) string {
	return strings.ReplaceAll(pairID, "-", "")
}

// GetSupportedPairs 获取所有配置的交易对及实时价格
func (b *BinanceSource) GetSupportedPairs(ctx context.Context) ([]*TradingPair, error) {
	result := make([]*TradingPair, 0, len(b.pairs))

	for _, spec := range b.pairs {
		pair := &TradingPair{
			ID:        spec.ID,
			BaseMint:  spec.BaseMint,
			QuoteMint: spec.QuoteMint,
			Liquidity: spec.Liquidity,
		}

		stats, err := b.client.NewListPriceChangeStatsService().
			Symbol(pairSymbol(spec.ID)).
			Do(ctx)
		if err != nil || len(stats) == 0 {
			b.logger.Warn("binance ticker unavailable",
				zap.String("pair", spec.ID),
				zap.Error(err))
			result = append(result, pair)
			continue
		}

		lastPrice, _ := strconv.ParseFloat(stats[0].LastPrice, 64)
		changePercent, _ := strconv.ParseFloat(stats[0].PriceChangePercent, 64)

		pair.CurrentPrice = lastPrice
		pair.PriceChange24h = changePercent
		pair.Supported = lastPrice > 0

		result = append(result, pair)
	}

	return result, nil
}

// GetPrice 获取单个交易对的当前价格
func (b *BinanceSource) GetPrice(ctx context.Context, pairID string) (float64, error) {
	found := false
	for i := range b.pairs {
		if b.pairs[i].ID == pairID {
			found = true
			break
		}
	}
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPair, pairID)
	}

	prices, err := b.client.NewListPricesService().
		Symbol(pairSymbol(pairID)).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("%w: no price for %s", ErrUnavailable, pairID)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("%w: bad price for %s", ErrUnavailable, pairID)
	}

	return price, nil
}
