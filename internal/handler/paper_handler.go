package handler

import (
	"errors"
	"net/http"

	"github.com/dushixiang/papertrade/internal/middleware"
	"github.com/dushixiang/papertrade/internal/service"
	"github.com/dushixiang/papertrade/internal/xe"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// PaperHandler 模拟交易引擎的HTTP处理器
type PaperHandler struct {
	tradeService     *service.TradeService
	portfolioService *service.PortfolioService
	statsService     *service.StatsService
	marketService    *service.MarketService
	historyService   *service.HistoryService
	monitorService   *service.MonitorService
	logger           *zap.Logger
}

// NewPaperHandler 创建模拟交易处理器
func NewPaperHandler(
	tradeService *service.TradeService,
	portfolioService *service.PortfolioService,
	statsService *service.StatsService,
	marketService *service.MarketService,
	historyService *service.HistoryService,
	monitorService *service.MonitorService,
	logger *zap.Logger,
) *PaperHandler {
	return &PaperHandler{
		tradeService:     tradeService,
		portfolioService: portfolioService,
		statsService:     statsService,
		marketService:    marketService,
		historyService:   historyService,
		monitorService:   monitorService,
		logger:           logger,
	}
}

// initializeRequest 初始化投资组合请求
type initializeRequest struct {
	InitialBalance float64 `json:"initial_balance" validate:"omitempty,gt=0"`
}

// InitializePortfolio 初始化投资组合
// POST /api/paper/portfolio
func (h *PaperHandler) InitializePortfolio(c echo.Context) error {
	var req initializeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	portfolio := h.portfolioService.Initialize(middleware.GetUserID(c), req.InitialBalance)
	return c.JSON(http.StatusOK, portfolio)
}

// GetPortfolio 获取投资组合
// GET /api/paper/portfolio
func (h *PaperHandler) GetPortfolio(c echo.Context) error {
	portfolio, err := h.portfolioService.Get(middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, portfolio)
}

// GetStats 获取投资组合统计
// GET /api/paper/portfolio/stats
func (h *PaperHandler) GetStats(c echo.Context) error {
	stats, err := h.statsService.GetPortfolioStats(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// GetEquityCurve 获取资金曲线
// GET /api/paper/portfolio/equity-curve
func (h *PaperHandler) GetEquityCurve(c echo.Context) error {
	snapshots, err := h.historyService.EquityCurve(c.Request().Context(), middleware.GetUserID(c))
	if err != nil {
		return err
	}

	data := make([]map[string]interface{}, 0, len(snapshots))
	for _, s := range snapshots {
		data = append(data, map[string]interface{}{
			"timestamp":      s.RecordedAt.Unix(),
			"time":           s.RecordedAt,
			"balance":        s.Balance,
			"total_value":    s.TotalValue,
			"unrealized_pnl": s.UnrealizedPnl,
			"realized_pnl":   s.TotalRealizedPnl,
			"win_rate":       s.WinRate,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(data),
		"data":  data,
	})
}

// GetPositions 获取持仓列表
// GET /api/paper/positions
func (h *PaperHandler) GetPositions(c echo.Context) error {
	positions, err := h.portfolioService.OpenPositions(middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(positions),
		"positions": positions,
	})
}

// GetTradeHistory 获取平仓历史
// GET /api/paper/trades?limit=20
func (h *PaperHandler) GetTradeHistory(c echo.Context) error {
	userID := middleware.GetUserID(c)
	limit := cast.ToInt(c.QueryParam("limit"))

	closed, err := h.portfolioService.ClosedPositions(userID)
	if err != nil {
		// 进程重启后内存组合丢失，回退到历史表
		if errors.Is(err, xe.ErrPortfolioNotFound) && h.historyService != nil {
			persisted, herr := h.historyService.RecentClosedTrades(c.Request().Context(), userID, limit)
			if herr != nil {
				return herr
			}
			return c.JSON(http.StatusOK, map[string]interface{}{
				"count":  len(persisted),
				"trades": persisted,
			})
		}
		return err
	}

	// 最新的排在前面
	for i, j := 0, len(closed)-1; i < j; i, j = i+1, j-1 {
		closed[i], closed[j] = closed[j], closed[i]
	}

	if limit > 0 && limit < len(closed) {
		closed = closed[:limit]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(closed),
		"trades": closed,
	})
}

// ExecuteTrade 开仓
// POST /api/paper/trades
func (h *PaperHandler) ExecuteTrade(c echo.Context) error {
	var req service.TradeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	trade, err := h.tradeService.ExecuteTrade(c.Request().Context(), middleware.GetUserID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trade)
}

// CloseTrade 平仓
// POST /api/paper/trades/:id/close
func (h *PaperHandler) CloseTrade(c echo.Context) error {
	trade, err := h.tradeService.CloseTrade(c.Request().Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trade)
}

// GetPairs 获取支持的交易对
// GET /api/paper/pairs
func (h *PaperHandler) GetPairs(c echo.Context) error {
	pairs, err := h.marketService.GetSupportedPairs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(pairs),
		"pairs": pairs,
	})
}

// GetMonitorStatus 获取风控巡检状态
// GET /api/paper/monitor/status
func (h *PaperHandler) GetMonitorStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.monitorService.GetStatus())
}

// RegisterRoutes 注册路由
func (h *PaperHandler) RegisterRoutes(g *echo.Group) {
	paper := g.Group("/paper")

	paper.POST("/portfolio", h.InitializePortfolio)
	paper.GET("/portfolio", h.GetPortfolio)
	paper.GET("/portfolio/stats", h.GetStats)
	paper.GET("/portfolio/equity-curve", h.GetEquityCurve)

	paper.GET("/positions", h.GetPositions)
	paper.GET("/trades", h.GetTradeHistory)
	paper.POST("/trades", h.ExecuteTrade)
	paper.POST("/trades/:id/close", h.CloseTrade)

	paper.GET("/pairs", h.GetPairs)
	paper.GET("/monitor/status", h.GetMonitorStatus)
}
