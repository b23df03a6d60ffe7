package repositories

import (
	"context"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// ActivityRepository stores best-effort audit rows. Writes are never on
// a request's critical path.
type ActivityRepository interface {
	Create(ctx context.Context, activity *models.UserActivity) error
	GetByUser(ctx context.Context, userID uint, filters ActivityFilters) ([]*models.UserActivity, error)
}
