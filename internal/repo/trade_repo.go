package repo

import (
	"context"

	"github.com/dushixiang/papertrade/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewTradeRepo(db *gorm.DB) *TradeRepo {
	return &TradeRepo{
		Repository: orz.NewRepository[models.Trade, string](db),
	}
}

type TradeRepo struct {
	orz.Repository[models.Trade, string]
}

// FindRecentByUser 获取用户最近的平仓记录
func (r TradeRepo) FindRecentByUser(ctx context.Context, userID string, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("user_id = ?", userID).
		Order("closed_at DESC").
		Limit(limit).
		Find(&trades).Error
	return trades, err
}
