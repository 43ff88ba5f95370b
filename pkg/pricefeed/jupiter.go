package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultJupiterBaseURL = "https://lite-api.jup.ag"

// JupiterClient Jupiter 聚合器价格客户端
type JupiterClient struct {
	baseURL string
	client  *http.Client
	pairs   []PairSpec
	logger  *zap.Logger
}

// NewJupiterClient 创建 Jupiter 价格客户端
func NewJupiterClient(baseURL string, timeout time.Duration, pairs []PairSpec, logger *zap.Logger) *JupiterClient {
	if baseURL == "" {
		baseURL = defaultJupiterBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &JupiterClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		pairs:   pairs,
		logger:  logger,
	}
}

// jupiterPrice price/v3 单个 mint 的返回结构
type jupiterPrice struct {
	UsdPrice       float64 `json:"usdPrice"`
	PriceChange24h float64 `json:"priceChange24h"`
}

// fetchPrices 批量获取 mint 的美元价格
func (j *JupiterClient) fetchPrices(ctx context.Context, mints []string) (map[string]jupiterPrice, error) {
	endpoint := fmt.Sprintf("%s/price/v3?ids=%s", j.baseURL, url.QueryEscape(strings.Join(mints, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: jupiter returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var prices map[string]jupiterPrice
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	return prices, nil
}

// GetSupportedPairs 获取所有配置的交易对及实时价格
func (j *JupiterClient) GetSupportedPairs(ctx context.Context) ([]*TradingPair, error) {
	mintSet := make(map[string]struct{})
	for _, p := range j.pairs {
		mintSet[p.BaseMint] = struct{}{}
		mintSet[p.QuoteMint] = struct{}{}
	}
	mints := make([]string, 0, len(mintSet))
	for m := range mintSet {
		mints = append(mints, m)
	}

	prices, err := j.fetchPrices(ctx, mints)
	if err != nil {
		return nil, err
	}

	result := make([]*TradingPair, 0, len(j.pairs))
	for _, spec := range j.pairs {
		base, baseOK := prices[spec.BaseMint]
		quote, quoteOK := prices[spec.QuoteMint]

		pair := &TradingPair{
			ID:        spec.ID,
			BaseMint:  spec.BaseMint,
			QuoteMint: spec.QuoteMint,
			Liquidity: spec.Liquidity,
			Supported: baseOK,
		}

		if baseOK {
			pair.CurrentPrice = base.UsdPrice
			pair.PriceChange24h = base.PriceChange24h
			// 计价币种非美元锚定时按两者比价折算
			if quoteOK && quote.UsdPrice > 0 {
				pair.CurrentPrice = base.UsdPrice / quote.UsdPrice
			}
		} else {
			j.logger.Warn("jupiter price missing for pair",
				zap.String("pair", spec.ID),
				zap.String("base_mint", spec.BaseMint))
		}

		result = append(result, pair)
	}

	return result, nil
}

// GetPrice 获取单个交易对的当前价格
func (j *JupiterClient) GetPrice(ctx context.Context, pairID string) (float64, error) {
	var spec *PairSpec
	for i := range j.pairs {
		if j.pairs[i].ID == pairID {
			spec = &j.pairs[i]
			break
		}
	}
	if spec == nil {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPair, pairID)
	}

	prices, err := j.fetchPrices(ctx, []string{spec.BaseMint, spec.QuoteMint})
	if err != nil {
		return 0, err
	}

	base, ok := prices[spec.BaseMint]
	if !ok || base.UsdPrice <= 0 {
		return 0, fmt.Errorf("%w: no price for %s", ErrUnavailable, pairID)
	}

	price := base.UsdPrice
	if quote, ok := prices[spec.QuoteMint]; ok && quote.UsdPrice > 0 {
		price = base.UsdPrice / quote.UsdPrice
	}

	return price, nil
}
