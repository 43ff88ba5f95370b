//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/handler"
	"github.com/dushixiang/papertrade/internal/service"
)

var (
	handlerSet = wire.NewSet(
		handler.NewPaperHandler,
	)

	engineSet = wire.NewSet(
		providePriceSource,
		service.NewMarketService,
		service.NewPortfolioService,
		service.NewHistoryService,
		service.NewTradeService,
		service.NewStatsService,
		service.NewMonitorService,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		engineSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
