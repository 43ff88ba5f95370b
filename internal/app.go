package internal

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dushixiang/papertrade/internal/config"
	"github.com/dushixiang/papertrade/internal/handler"
	appmw "github.com/dushixiang/papertrade/internal/middleware"
	"github.com/dushixiang/papertrade/internal/models"
	"github.com/dushixiang/papertrade/internal/service"
	"github.com/dushixiang/papertrade/internal/telegram"
	"github.com/dushixiang/papertrade/pkg/nostd"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewPaperTradeApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewPaperTradeApp() orz.Application {
	return &PaperTradeApp{}
}

var _ orz.Application = (*PaperTradeApp)(nil)

type AppComponents struct {
	PaperHandler *handler.PaperHandler

	MonitorService   *service.MonitorService
	MarketService    *service.MarketService
	PortfolioService *service.PortfolioService
	TradeService     *service.TradeService
	StatsService     *service.StatsService
	HistoryService   *service.HistoryService

	tg *telegram.Telegram
}

type PaperTradeApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *PaperTradeApp) GetComponents() *AppComponents {
	return r.components
}

func (r *PaperTradeApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.Normalize()

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Trade{}, models.PortfolioSnapshot{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	api := e.Group("/api", appmw.UserAuth(appmw.UserAuthConfig{Logger: logger}))
	{
		if r.components.PaperHandler != nil {
			r.components.PaperHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *PaperTradeApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("PaperTrade Simulated Trading Engine Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	if components.MonitorService == nil {
		return fmt.Errorf("risk monitor not available, please check pricing configuration")
	}

	if components.tg != nil {
		components.tg.Start()
	}

	logger.Info("risk monitor initialized, starting...")

	go func() {
		if err := components.MonitorService.Start(context.Background()); err != nil {
			logger.Error("risk monitor error", zap.Error(err))
		}
	}()
	return nil
}
