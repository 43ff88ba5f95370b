package service

import (
	"context"
	"time"

	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/repo"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HistoryService 历史数据落库服务
// 平仓记录与投资组合快照的持久化，全部尽力而为：内存状态才是权威
type HistoryService struct {
	logger *zap.Logger

	*orz.Service
	*repo.TradeRepo

	snapshotRepo *repo.SnapshotRepo
}

// NewHistoryService 创建历史服务
func NewHistoryService(db *gorm.DB, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		logger:       logger,
		Service:      orz.NewService(db),
		TradeRepo:    repo.NewTradeRepo(db),
		snapshotRepo: repo.NewSnapshotRepo(db),
	}
}

// RecordClosedTrade 写入一条平仓记录
func (s *HistoryService) RecordClosedTrade(ctx context.Context, trade models.Trade) error {
	return s.TradeRepo.Create(ctx, &trade)
}

// RecentClosedTrades 获取用户最近的平仓记录
func (s *HistoryService) RecentClosedTrades(ctx context.Context, userID string, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.TradeRepo.FindRecentByUser(ctx, userID, limit)
}

// SaveSnapshot 写入一条投资组合快照
func (s *HistoryService) SaveSnapshot(ctx context.Context, p *models.Portfolio, unrealizedPnl float64) error {
	openIDs := make([]string, 0, len(p.OpenPositions))
	for _, t := range p.OpenPositions {
		openIDs = append(openIDs, t.ID)
	}

	snapshot := &models.PortfolioSnapshot{
		ID:               ulid.Make().String(),
		UserID:           p.UserID,
		Balance:          p.Balance,
		TotalValue:       p.Balance + unrealizedPnl,
		UnrealizedPnl:    unrealizedPnl,
		TotalRealizedPnl: p.TotalRealizedPnl,
		WinRate:          p.WinRate,
		TotalTrades:      p.TotalTrades,
		OpenTradeIDs:     openIDs,
		RecordedAt:       time.Now(),
	}

	return s.snapshotRepo.Create(ctx, snapshot)
}

// EquityCurve 获取用户的快照序列（按时间排序）
func (s *HistoryService) EquityCurve(ctx context.Context, userID string) ([]models.PortfolioSnapshot, error) {
	return s.snapshotRepo.FindByUserOrderByRecordedAt(ctx, userID)
}
