package repo

import (
	"context"

	"github.com/dushixiang/papertrade/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewSnapshotRepo(db *gorm.DB) *SnapshotRepo {
	return &SnapshotRepo{
		Repository: orz.NewRepository[models.PortfolioSnapshot, string](db),
	}
}

type SnapshotRepo struct {
	orz.Repository[models.PortfolioSnapshot, string]
}

// FindByUserOrderByRecordedAt 获取用户的快照（按时间排序）
func (r SnapshotRepo) FindByUserOrderByRecordedAt(ctx context.Context, userID string) ([]models.PortfolioSnapshot, error) {
	var snapshots []models.PortfolioSnapshot
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("user_id = ?", userID).
		Order("recorded_at ASC").
		Find(&snapshots).Error
	return snapshots, err
}
