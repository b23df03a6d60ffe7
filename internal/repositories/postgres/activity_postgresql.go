package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
)

type ActivityPostgreSQL struct {
	db *gorm.DB
}

func NewActivityPostgreSQL(db *gorm.DB) repositories.ActivityRepository {
	return &ActivityPostgreSQL{db: db}
}

func (a *ActivityPostgreSQL) Create(ctx context.Context, activity *models.UserActivity) error {
	return a.db.WithContext(ctx).Create(activity).Error
}

func (a *ActivityPostgreSQL) GetByUser(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.UserActivity, error) {
	query := a.db.WithContext(ctx).Where("user_id = ?", userID)

	if filters.From != nil {
		query = query.Where("timestamp >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("timestamp <= ?", *filters.To)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var activities []*models.UserActivity
	err := query.Order("timestamp DESC").Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}
