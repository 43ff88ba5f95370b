package pricefeed

import (
	"context"
	"errors"
)

// 通用行情源类型定义，独立于任何特定聚合器
// 这样可以方便地支持多个行情来源（Jupiter、Binance等）

var (
	// ErrUnknownPair 交易对未配置
	ErrUnknownPair = errors.New("unknown trading pair")
	// ErrUnavailable 上游行情暂时不可用
	ErrUnavailable = errors.New("price unavailable")
)

// TradingPair 交易对行情
type TradingPair struct {
	ID             string  `json:"id"`               // 交易对标识，如 SOL-USDC
	BaseMint       string  `json:"base_mint"`        // 基础币种 mint 地址
	QuoteMint      string  `json:"quote_mint"`       // 计价币种 mint 地址
	CurrentPrice   float64 `json:"current_price"`    // 当前价格
	PriceChange24h float64 `json:"price_change_24h"` // 24小时涨跌幅(%)
	Liquidity      float64 `json:"liquidity"`        // 可用流动性（计价币种）
	Supported      bool    `json:"supported"`        // 是否支持交易
}

// PairSpec 交易对静态配置
type PairSpec struct {
	ID        string  `json:"id"`
	BaseMint  string  `json:"base_mint"`
	QuoteMint string  `json:"quote_mint"`
	Liquidity float64 `json:"liquidity"`
}

// Source 行情源接口，引擎只依赖这一个契约
type Source interface {
	// GetSupportedPairs 获取所有支持的交易对（含实时价格）
	GetSupportedPairs(ctx context.Context) ([]*TradingPair, error)
	// GetPrice 获取单个交易对的当前价格
	GetPrice(ctx context.Context, pairID string) (float64, error)
}
