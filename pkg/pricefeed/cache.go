package pricefeed

import (
	"context"
	"sync"
	"time"
)

// CachedSource 行情缓存装饰器
// 短TTL缓存限制对上游的请求频率；上游失败时在允许的过期窗口内返回最近一次成功的报价
type CachedSource struct {
	inner    Source
	ttl      time.Duration
	maxStale time.Duration

	mu        sync.Mutex
	prices    map[string]cachedPrice
	pairs     []*TradingPair
	pairsAt   time.Time
	clockFunc func() time.Time // 测试注入
}

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// NewCachedSource 创建行情缓存
func NewCachedSource(inner Source, ttl, maxStale time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	if maxStale < ttl {
		maxStale = 30 * time.Second
	}
	return &CachedSource{
		inner:     inner,
		ttl:       ttl,
		maxStale:  maxStale,
		prices:    make(map[string]cachedPrice),
		clockFunc: time.Now,
	}
}

// GetPrice 获取价格，TTL 内直接命中缓存
func (c *CachedSource) GetPrice(ctx context.Context, pairID string) (float64, error) {
	c.mu.Lock()
	cached, ok := c.prices[pairID]
	now := c.clockFunc()
	c.mu.Unlock()

	if ok && now.Sub(cached.fetchedAt) < c.ttl {
		return cached.price, nil
	}

	price, err := c.inner.GetPrice(ctx, pairID)
	if err != nil {
		// 允许的过期窗口内降级使用旧报价
		if ok && now.Sub(cached.fetchedAt) < c.maxStale {
			return cached.price, nil
		}
		return 0, err
	}

	c.mu.Lock()
	c.prices[pairID] = cachedPrice{price: price, fetchedAt: now}
	c.mu.Unlock()

	return price, nil
}

// GetSupportedPairs 获取交易对列表，TTL 内直接命中缓存
func (c *CachedSource) GetSupportedPairs(ctx context.Context) ([]*TradingPair, error) {
	c.mu.Lock()
	now := c.clockFunc()
	if c.pairs != nil && now.Sub(c.pairsAt) < c.ttl {
		pairs := c.pairs
		c.mu.Unlock()
		return pairs, nil
	}
	c.mu.Unlock()

	pairs, err := c.inner.GetSupportedPairs(ctx)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.pairs != nil && now.Sub(c.pairsAt) < c.maxStale {
			return c.pairs, nil
		}
		return nil, err
	}

	c.mu.Lock()
	c.pairs = pairs
	c.pairsAt = now
	// 同步刷新单价缓存，减少一次上游往返
	for _, p := range pairs {
		if p.Supported && p.CurrentPrice > 0 {
			c.prices[p.ID] = cachedPrice{price: p.CurrentPrice, fetchedAt: now}
		}
	}
	c.mu.Unlock()

	return pairs, nil
}
