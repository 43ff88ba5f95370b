package config

import "github.com/dushixiang/papertrade/pkg/pricefeed"

type Config struct {
	Telegram TelegramConf `json:"telegram"`
	Pricing  PricingConf  `json:"pricing"`
	Trading  TradingConf  `json:"trading"`
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

type PricingConf struct {
	Provider       string               `json:"provider"`        // 行情来源：jupiter 或 binance，默认 jupiter
	BaseURL        string               `json:"base_url"`        // Jupiter API 基础URL，留空使用官方地址
	APIKey         string               `json:"api_key"`         // Binance API密钥（公开行情可留空）
	Secret         string               `json:"secret"`          // Binance API Secret
	TimeoutSeconds int                  `json:"timeout_seconds"` // 上游请求超时（秒），默认5
	CacheTTLMillis int                  `json:"cache_ttl_ms"`    // 行情缓存TTL（毫秒），默认2000
	MaxStaleMillis int                  `json:"max_stale_ms"`    // 上游故障时允许的报价过期窗口（毫秒），默认30000
	Pairs          []pricefeed.PairSpec `json:"pairs"`           // 支持的交易对
}

type TradingConf struct {
	DefaultInitialBalance  float64 `json:"default_initial_balance"`  // 默认初始余额，默认10000
	MaxLeverage            float64 `json:"max_leverage"`             // 最大杠杆，默认100
	MonitorIntervalSeconds int     `json:"monitor_interval_seconds"` // 风控巡检周期（秒），默认5
}

// Normalize 填充默认值
func (c *Config) Normalize() {
	if c.Pricing.Provider == "" {
		c.Pricing.Provider = "jupiter"
	}
	if c.Pricing.TimeoutSeconds <= 0 {
		c.Pricing.TimeoutSeconds = 5
	}
	if c.Pricing.CacheTTLMillis <= 0 {
		c.Pricing.CacheTTLMillis = 2000
	}
	if c.Pricing.MaxStaleMillis <= 0 {
		c.Pricing.MaxStaleMillis = 30000
	}
	if c.Trading.DefaultInitialBalance <= 0 {
		c.Trading.DefaultInitialBalance = 10000
	}
	if c.Trading.MaxLeverage <= 0 {
		c.Trading.MaxLeverage = 100
	}
	if c.Trading.MonitorIntervalSeconds <= 0 {
		c.Trading.MonitorIntervalSeconds = 5
	}
}
