package service

import (
	"context"
	"time"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/xe"
	"github.com/dushixiang/papertrade/pkg/pricing"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// TradeService 交易生命周期管理
// 负责开仓与平仓的编排：行情 → 费用/滑点计算 → 投资组合存储
type TradeService struct {
	logger     *zap.Logger
	conf       config.TradingConf
	market     *MarketService
	portfolios *PortfolioService
	history    *HistoryService
}

// NewTradeService 创建交易服务
func NewTradeService(conf *config.Config, market *MarketService,
	portfolios *PortfolioService, history *HistoryService, logger *zap.Logger) *TradeService {
	return &TradeService{
		logger:     logger,
		conf:       conf.Trading,
		market:     market,
		portfolios: portfolios,
		history:    history,
	}
}

// TradeRequest 开仓请求
type TradeRequest struct {
	Pair       string  `json:"pair" validate:"required"`
	Side       string  `json:"side" validate:"required,oneof=long short"`
	Size       float64 `json:"size" validate:"required,gt=0"`
	Leverage   float64 `json:"leverage" validate:"required,gte=1,lte=100"`
	StopLoss   float64 `json:"stop_loss" validate:"omitempty,gt=0"`
	TakeProfit float64 `json:"take_profit" validate:"omitempty,gt=0"`
}

// validate 引擎级校验，不依赖HTTP层的validator
func (s *TradeService) validate(req *TradeRequest) error {
	if req.Size <= 0 {
		return xe.ErrInvalidParams
	}
	if req.Leverage < 1 || req.Leverage > s.conf.MaxLeverage {
		return xe.ErrInvalidParams
	}
	if req.Side != models.SideLong && req.Side != models.SideShort {
		return xe.ErrInvalidParams
	}

	// 两个阈值都设置时必须分布在正确的两侧：
	// 做多止损在止盈之下，做空止损在止盈之上
	if req.StopLoss > 0 && req.TakeProfit > 0 {
		if req.Side == models.SideLong && req.StopLoss >= req.TakeProfit {
			return xe.ErrInvalidThresholds
		}
		if req.Side == models.SideShort && req.StopLoss <= req.TakeProfit {
			return xe.ErrInvalidThresholds
		}
	}
	return nil
}

// ExecuteTrade 开仓
// 校验全部通过之前不产生任何资金变更
func (s *TradeService) ExecuteTrade(ctx context.Context, userID string, req *TradeRequest) (*models.Trade, error) {
	if _, err := s.portfolios.Get(userID); err != nil {
		return nil, err
	}

	if err := s.validate(req); err != nil {
		return nil, err
	}

	pair, err := s.market.GetPair(ctx, req.Pair)
	if err != nil {
		return nil, err
	}
	if !pair.Supported {
		return nil, xe.ErrPairNotSupported
	}
	if pair.CurrentPrice <= 0 {
		return nil, xe.ErrPriceUnavailable
	}

	fees := pricing.Fees(req.Size, req.Leverage)
	slippage := pricing.Slippage(req.Size, pair.CurrentPrice, pair.Liquidity)
	entryPrice := pricing.EntryPrice(pricing.Side(req.Side), pair.CurrentPrice, slippage)

	trade := &models.Trade{
		ID:         ulid.Make().String(),
		UserID:     userID,
		Pair:       req.Pair,
		Side:       req.Side,
		EntryPrice: entryPrice,
		Size:       req.Size,
		Leverage:   req.Leverage,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Status:     models.StatusOpen,
		Fees:       fees,
		Slippage:   slippage,
		OpenedAt:   time.Now(),
	}

	// 余额检查与扣款、登记持仓在存储层原子完成
	if err := s.portfolios.OpenTrade(userID, trade); err != nil {
		return nil, err
	}

	s.logger.Info("trade opened",
		zap.String("user_id", userID),
		zap.String("trade_id", trade.ID),
		zap.String("pair", trade.Pair),
		zap.String("side", trade.Side),
		zap.Float64("size", trade.Size),
		zap.Float64("leverage", trade.Leverage),
		zap.Float64("entry_price", trade.EntryPrice),
		zap.Float64("fees", trade.Fees),
		zap.Float64("slippage", trade.Slippage))

	copied := *trade
	return &copied, nil
}

// CloseTrade 平仓
// 平仓手续费按开仓时的本金与杠杆再收取一次，净盈亏扣除两段手续费
func (s *TradeService) CloseTrade(ctx context.Context, userID, tradeID string) (*models.Trade, error) {
	owner, ok := s.portfolios.Owner(tradeID)
	if !ok {
		return nil, xe.ErrTradeNotFound
	}
	if owner != userID {
		return nil, xe.ErrTradeNotOwned
	}

	trade, err := s.portfolios.GetOpenTrade(userID, tradeID)
	if err != nil {
		return nil, err
	}

	currentPrice, err := s.market.GetPrice(ctx, trade.Pair)
	if err != nil {
		return nil, err
	}

	rawPnl := pricing.RawPnl(pricing.Side(trade.Side), trade.EntryPrice, currentPrice, trade.Size, trade.Leverage)
	exitFees := pricing.Fees(trade.Size, trade.Leverage)
	netPnl := pricing.NetPnl(rawPnl, trade.Fees, exitFees)

	// 竞争裁决在存储层：已被风控或另一次人工平仓抢先时返回 ErrAlreadyClosed
	closed, err := s.portfolios.CloseTrade(userID, tradeID, currentPrice, netPnl)
	if err != nil {
		return nil, err
	}

	s.logger.Info("trade closed",
		zap.String("user_id", userID),
		zap.String("trade_id", closed.ID),
		zap.String("pair", closed.Pair),
		zap.Float64("exit_price", closed.ExitPrice),
		zap.Float64("pnl", closed.Pnl))

	// 历史落库尽力而为，失败不影响内存状态
	if s.history != nil {
		if err := s.history.RecordClosedTrade(ctx, *closed); err != nil {
			s.logger.Warn("failed to persist closed trade",
				zap.String("trade_id", closed.ID),
				zap.Error(err))
		}
	}

	return closed, nil
}
