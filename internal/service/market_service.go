package service

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/xe"
	"github.com/dushixiang/papertrade/pkg/pricefeed"
	"go.uber.org/zap"
)

// MarketService 行情查询服务
// 包装行情源（已带TTL缓存），统一超时控制与错误语义
type MarketService struct {
	logger  *zap.Logger
	source  pricefeed.Source
	timeout time.Duration
}

// NewMarketService 创建行情服务
func NewMarketService(source pricefeed.Source, conf *config.Config, logger *zap.Logger) *MarketService {
	return &MarketService{
		logger:  logger,
		source:  source,
		timeout: time.Duration(conf.Pricing.TimeoutSeconds) * time.Second,
	}
}

// GetSupportedPairs 获取支持的交易对及实时行情
func (s *MarketService) GetSupportedPairs(ctx context.Context) ([]*pricefeed.TradingPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pairs, err := s.source.GetSupportedPairs(ctx)
	if err != nil {
		s.logger.Warn("failed to get supported pairs", zap.Error(err))
		return nil, xe.ErrPriceUnavailable
	}
	return pairs, nil
}

// GetPair 获取单个交易对行情
func (s *MarketService) GetPair(ctx context.Context, pairID string) (*pricefeed.TradingPair, error) {
	pairs, err := s.GetSupportedPairs(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if p.ID == pairID {
			return p, nil
		}
	}
	return nil, xe.ErrPairNotSupported
}

// GetPrice 获取单个交易对当前价格
func (s *MarketService) GetPrice(ctx context.Context, pairID string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	price, err := s.source.GetPrice(ctx, pairID)
	if err != nil {
		if errors.Is(err, pricefeed.ErrUnknownPair) {
			return 0, xe.ErrPairNotSupported
		}
		s.logger.Warn("price lookup failed",
			zap.String("pair", pairID),
			zap.Error(err))
		return 0, xe.ErrPriceUnavailable
	}
	if price <= 0 {
		return 0, xe.ErrPriceUnavailable
	}
	return price, nil
}
