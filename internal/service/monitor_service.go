package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/telegram"
	"github.com/dushixiang/papertrade/internal/xe"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MonitorService 风控巡检
// 定时检查所有持仓的止损止盈，触发时走与人工平仓完全相同的路径
// 自身不持有任何交易状态，每轮巡检都从存储重新读取
type MonitorService struct {
	logger     *zap.Logger
	conf       config.TradingConf
	tgConf     config.TelegramConf
	market     *MarketService
	trades     *TradeService
	portfolios *PortfolioService
	stats      *StatsService
	history    *HistoryService
	tg         *telegram.Telegram

	// 状态字段同时被cron协程与HTTP查询读写
	mu        sync.Mutex
	startTime time.Time
	cycles    int
	isRunning bool
	stopChan  chan struct{}
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewMonitorService 创建风控巡检服务
func NewMonitorService(
	conf *config.Config,
	market *MarketService,
	trades *TradeService,
	portfolios *PortfolioService,
	stats *StatsService,
	history *HistoryService,
	tg *telegram.Telegram,
	logger *zap.Logger,
) *MonitorService {
	return &MonitorService{
		logger:     logger,
		conf:       conf.Trading,
		tgConf:     conf.Telegram,
		market:     market,
		trades:     trades,
		portfolios: portfolios,
		stats:      stats,
		history:    history,
		tg:         tg,
		stopChan:   make(chan struct{}),
	}
}

// Start 启动巡检，阻塞直到 Stop 或 ctx 取消
func (m *MonitorService) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("risk monitor is already running")
	}
	m.isRunning = true
	m.startTime = time.Now()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cron = cron.New(cron.WithSeconds())
	m.mu.Unlock()

	cronExpr := fmt.Sprintf("*/%d * * * * *", m.conf.MonitorIntervalSeconds)

	m.logger.Info("risk monitor started",
		zap.Int("interval_seconds", m.conf.MonitorIntervalSeconds),
		zap.String("cron_expression", cronExpr))

	_, err := m.cron.AddFunc(cronExpr, func() {
		closed := m.CheckStopLossAndTakeProfit(context.Background())
		if len(closed) > 0 {
			m.logger.Info("risk monitor closed positions",
				zap.Int("count", len(closed)))
		}
	})
	if err != nil {
		m.mu.Lock()
		m.isRunning = false
		m.mu.Unlock()
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	m.cron.Start()

	select {
	case <-m.stopChan:
		m.logger.Info("risk monitor stopped by user")
		return nil
	case <-ctx.Done():
		m.logger.Info("risk monitor stopped by context")
		return ctx.Err()
	}
}

// Stop 停止巡检
func (m *MonitorService) Stop() {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return
	}
	m.isRunning = false
	c, cancel := m.cron, m.cancel
	m.mu.Unlock()

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
	}
	if cancel != nil {
		cancel()
	}

	close(m.stopChan)
	m.logger.Info("risk monitor stopped")
}

// IsRunning 检查是否正在运行
func (m *MonitorService) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isRunning
}

// GetStatus 获取巡检状态
func (m *MonitorService) GetStatus() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"is_running":       m.isRunning,
		"cycles":           m.cycles,
		"start_time":       m.startTime,
		"interval_seconds": m.conf.MonitorIntervalSeconds,
	}
}

// CheckStopLossAndTakeProfit 执行一轮巡检，返回本轮自动平仓的交易
// 某个交易对行情获取失败只跳过该持仓，下轮重试，不影响其他用户
func (m *MonitorService) CheckStopLossAndTakeProfit(ctx context.Context) []*models.Trade {
	m.mu.Lock()
	m.cycles++
	m.mu.Unlock()

	closedThisCycle := make([]*models.Trade, 0)

	for _, userID := range m.portfolios.UsersWithOpenPositions() {
		positions, err := m.portfolios.OpenPositions(userID)
		if err != nil {
			continue
		}

		userClosed := false
		for i := range positions {
			t := &positions[i]

			price, err := m.market.GetPrice(ctx, t.Pair)
			if err != nil {
				m.logger.Warn("skip position, price unavailable this cycle",
					zap.String("trade_id", t.ID),
					zap.String("pair", t.Pair),
					zap.Error(err))
				continue
			}

			hitSL := t.HitStopLoss(price)
			hitTP := t.HitTakeProfit(price)
			if !hitSL && !hitTP {
				continue
			}

			closed, err := m.trades.CloseTrade(ctx, userID, t.ID)
			if err != nil {
				// 与人工平仓竞争失败是正常结果
				if errors.Is(err, xe.ErrAlreadyClosed) {
					m.logger.Debug("position already closed by another caller",
						zap.String("trade_id", t.ID))
					continue
				}
				m.logger.Error("failed to auto close position",
					zap.String("trade_id", t.ID),
					zap.Error(err))
				continue
			}

			reason := "止损"
			if hitTP {
				reason = "止盈"
			}
			m.logger.Info("position auto closed",
				zap.String("user_id", userID),
				zap.String("trade_id", closed.ID),
				zap.String("pair", closed.Pair),
				zap.String("reason", reason),
				zap.Float64("trigger_price", price),
				zap.Float64("pnl", closed.Pnl))

			m.notify(closed, reason, price)

			closedThisCycle = append(closedThisCycle, closed)
			userClosed = true
		}

		if userClosed {
			m.snapshot(ctx, userID)
		}
	}

	return closedThisCycle
}

// notify 推送自动平仓通知
func (m *MonitorService) notify(trade *models.Trade, reason string, price float64) {
	if m.tg == nil || m.tgConf.ChatID == "" {
		return
	}

	msg := fmt.Sprintf("*%s自动平仓* %s %s\n触发价: %.6f\n净盈亏: %.2f",
		reason, trade.Pair, trade.Side, price, trade.Pnl)
	if err := m.tg.Notify(m.tgConf.ChatID, msg); err != nil {
		m.logger.Warn("failed to send telegram notification", zap.Error(err))
	}
}

// snapshot 对发生自动平仓的用户记录一次资金快照
func (m *MonitorService) snapshot(ctx context.Context, userID string) {
	if m.history == nil {
		return
	}

	stats, err := m.stats.GetPortfolioStats(ctx, userID)
	if err != nil {
		m.logger.Warn("failed to compute stats for snapshot",
			zap.String("user_id", userID),
			zap.Error(err))
		return
	}

	portfolio, err := m.portfolios.Get(userID)
	if err != nil {
		return
	}

	if err := m.history.SaveSnapshot(ctx, portfolio, stats.UnrealizedPnl); err != nil {
		m.logger.Warn("failed to save portfolio snapshot",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}
