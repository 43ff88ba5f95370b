package internal

import (
	"net/http"
	"time"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/telegram"
	"github.com/dushixiang/papertrade/pkg/pricefeed"
	"go.uber.org/zap"
)

const telegramHTTPTimeout = 10 * time.Second

// providePriceSource 按配置构建行情源并套上TTL缓存
func providePriceSource(conf *config.Config, logger *zap.Logger) pricefeed.Source {
	var inner pricefeed.Source

	switch conf.Pricing.Provider {
	case "binance":
		inner = pricefeed.NewBinanceSource(
			conf.Pricing.APIKey,
			conf.Pricing.Secret,
			conf.Pricing.Pairs,
			logger,
		)
	default:
		inner = pricefeed.NewJupiterClient(
			conf.Pricing.BaseURL,
			time.Duration(conf.Pricing.TimeoutSeconds)*time.Second,
			conf.Pricing.Pairs,
			logger,
		)
	}

	logger.Info("price source initialized",
		zap.String("provider", conf.Pricing.Provider),
		zap.Int("pairs", len(conf.Pricing.Pairs)),
		zap.Int("cache_ttl_ms", conf.Pricing.CacheTTLMillis))

	return pricefeed.NewCachedSource(
		inner,
		time.Duration(conf.Pricing.CacheTTLMillis)*time.Millisecond,
		time.Duration(conf.Pricing.MaxStaleMillis)*time.Millisecond,
	)
}

// provideTelegram 构建 Telegram 通知器，未启用时返回 nil
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}

	return tg
}
