package service

import (
	"sync"
	"time"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/xe"
	"go.uber.org/zap"
)

// PortfolioService 投资组合存储
// 所有资金与持仓状态的唯一权威来源，全部驻留内存
// 同一用户的全部变更经由该用户的互斥锁串行化，不同用户互不阻塞
type PortfolioService struct {
	logger *zap.Logger
	conf   config.TradingConf

	mu         sync.RWMutex
	portfolios map[string]*portfolioEntry
	owners     map[string]string // 交易ID -> 用户ID，用于区分"不存在"与"无权操作"
}

type portfolioEntry struct {
	mu sync.Mutex
	p  *models.Portfolio
}

// NewPortfolioService 创建投资组合存储
func NewPortfolioService(conf *config.Config, logger *zap.Logger) *PortfolioService {
	return &PortfolioService{
		logger:     logger,
		conf:       conf.Trading,
		portfolios: make(map[string]*portfolioEntry),
		owners:     make(map[string]string),
	}
}

// Initialize 初始化用户的投资组合
// 已存在时返回现有组合，不覆盖也不报错
func (s *PortfolioService) Initialize(userID string, initialBalance float64) *models.Portfolio {
	if initialBalance <= 0 {
		initialBalance = s.conf.DefaultInitialBalance
	}

	s.mu.Lock()
	entry, ok := s.portfolios[userID]
	if !ok {
		now := time.Now()
		entry = &portfolioEntry{
			p: &models.Portfolio{
				UserID:          userID,
				Balance:         initialBalance,
				InitialBalance:  initialBalance,
				OpenPositions:   make([]*models.Trade, 0),
				ClosedPositions: make([]*models.Trade, 0),
				CreatedAt:       now,
				UpdatedAt:       now,
			},
		}
		s.portfolios[userID] = entry
		s.logger.Info("portfolio initialized",
			zap.String("user_id", userID),
			zap.Float64("initial_balance", initialBalance))
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshotPortfolio(entry.p)
}

func (s *PortfolioService) entry(userID string) (*portfolioEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.portfolios[userID]
	return entry, ok
}

// Get 获取投资组合快照
func (s *PortfolioService) Get(userID string) (*models.Portfolio, error) {
	entry, ok := s.entry(userID)
	if !ok {
		return nil, xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return snapshotPortfolio(entry.p), nil
}

// Debit 扣减可用余额
func (s *PortfolioService) Debit(userID string, amount float64) error {
	entry, ok := s.entry(userID)
	if !ok {
		return xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.p.Balance < amount {
		return xe.ErrInsufficientFunds
	}
	entry.p.Balance -= amount
	entry.p.UpdatedAt = time.Now()
	return nil
}

// Credit 增加可用余额
func (s *PortfolioService) Credit(userID string, amount float64) error {
	entry, ok := s.entry(userID)
	if !ok {
		return xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.p.Balance += amount
	entry.p.UpdatedAt = time.Now()
	return nil
}

// OpenTrade 开仓：扣减本金+手续费并登记持仓，整体原子
// 余额不足时不产生任何变更
func (s *PortfolioService) OpenTrade(userID string, trade *models.Trade) error {
	entry, ok := s.entry(userID)
	if !ok {
		return xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	cost := trade.Size + trade.Fees
	if entry.p.Balance < cost {
		return xe.ErrInsufficientFunds
	}

	entry.p.Balance -= cost
	entry.p.OpenPositions = append(entry.p.OpenPositions, trade)
	entry.p.TotalTrades++
	entry.p.UpdatedAt = time.Now()

	s.mu.Lock()
	s.owners[trade.ID] = userID
	s.mu.Unlock()

	return nil
}

// CloseTrade 平仓：持仓移入历史、回笼本金与净盈亏、刷新胜率，整体原子
// 这里是人工平仓与风控平仓竞争时的唯一裁决点，后到者得到 ErrAlreadyClosed
func (s *PortfolioService) CloseTrade(userID, tradeID string, exitPrice, netPnl float64) (*models.Trade, error) {
	entry, ok := s.entry(userID)
	if !ok {
		return nil, xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	idx := -1
	for i, t := range entry.p.OpenPositions {
		if t.ID == tradeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		if entry.p.FindClosed(tradeID) != nil {
			return nil, xe.ErrAlreadyClosed
		}
		return nil, xe.ErrTradeNotFound
	}

	trade := entry.p.OpenPositions[idx]
	entry.p.OpenPositions = append(entry.p.OpenPositions[:idx], entry.p.OpenPositions[idx+1:]...)

	trade.Status = models.StatusClosed
	trade.ExitPrice = exitPrice
	trade.Pnl = netPnl
	trade.ClosedAt = time.Now()
	entry.p.ClosedPositions = append(entry.p.ClosedPositions, trade)

	entry.p.Balance += trade.Size + netPnl
	entry.p.TotalRealizedPnl += netPnl
	entry.p.WinRate = winRate(entry.p.ClosedPositions)
	entry.p.UpdatedAt = time.Now()

	copied := *trade
	return &copied, nil
}

// GetOpenTrade 获取持仓中的交易副本
func (s *PortfolioService) GetOpenTrade(userID, tradeID string) (models.Trade, error) {
	entry, ok := s.entry(userID)
	if !ok {
		return models.Trade{}, xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if t := entry.p.FindOpen(tradeID); t != nil {
		return *t, nil
	}
	if entry.p.FindClosed(tradeID) != nil {
		return models.Trade{}, xe.ErrAlreadyClosed
	}
	return models.Trade{}, xe.ErrTradeNotFound
}

// Owner 查询交易归属的用户
func (s *PortfolioService) Owner(tradeID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.owners[tradeID]
	return userID, ok
}

// OpenPositions 获取持仓中的交易
func (s *PortfolioService) OpenPositions(userID string) ([]models.Trade, error) {
	entry, ok := s.entry(userID)
	if !ok {
		return nil, xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	result := make([]models.Trade, 0, len(entry.p.OpenPositions))
	for _, t := range entry.p.OpenPositions {
		result = append(result, *t)
	}
	return result, nil
}

// ClosedPositions 获取历史交易（按平仓先后顺序）
func (s *PortfolioService) ClosedPositions(userID string) ([]models.Trade, error) {
	entry, ok := s.entry(userID)
	if !ok {
		return nil, xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	result := make([]models.Trade, 0, len(entry.p.ClosedPositions))
	for _, t := range entry.p.ClosedPositions {
		result = append(result, *t)
	}
	return result, nil
}

// UsersWithOpenPositions 当前存在持仓的用户列表，风控巡检用
func (s *PortfolioService) UsersWithOpenPositions() []string {
	s.mu.RLock()
	entries := make(map[string]*portfolioEntry, len(s.portfolios))
	for userID, entry := range s.portfolios {
		entries[userID] = entry
	}
	s.mu.RUnlock()

	users := make([]string, 0)
	for userID, entry := range entries {
		entry.mu.Lock()
		if len(entry.p.OpenPositions) > 0 {
			users = append(users, userID)
		}
		entry.mu.Unlock()
	}
	return users
}

// SetUnrealizedPnl 刷新未实现盈亏缓存（派生值，不属于资金变更）
func (s *PortfolioService) SetUnrealizedPnl(userID string, pnl float64) error {
	entry, ok := s.entry(userID)
	if !ok {
		return xe.ErrPortfolioNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.p.UnrealizedPnl = pnl
	return nil
}

// winRate 盈利平仓占全部平仓的比例
func winRate(closed []*models.Trade) float64 {
	if len(closed) == 0 {
		return 0
	}
	wins := 0
	for _, t := range closed {
		if t.Pnl > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(closed))
}

// snapshotPortfolio 深拷贝，调用方拿到的快照与内部状态解耦
func snapshotPortfolio(p *models.Portfolio) *models.Portfolio {
	copied := *p
	copied.OpenPositions = make([]*models.Trade, 0, len(p.OpenPositions))
	for _, t := range p.OpenPositions {
		ct := *t
		copied.OpenPositions = append(copied.OpenPositions, &ct)
	}
	copied.ClosedPositions = make([]*models.Trade, 0, len(p.ClosedPositions))
	for _, t := range p.ClosedPositions {
		ct := *t
		copied.ClosedPositions = append(copied.ClosedPositions, &ct)
	}
	return &copied
}
