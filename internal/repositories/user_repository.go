package repositories

import (
	"context"
	"time"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// UserRepository abstracts user storage. Lookups are by unique email
// (matched exactly as stored) or numeric id; this service is the owner
// of user data.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailToken(ctx context.Context, token string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error

	List(ctx context.Context) ([]*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Presence tracking
	UpdateLastSeen(ctx context.Context, id uint, seenAt time.Time, isActive bool) error

	// Dashboard statistics
	GetStats(ctx context.Context, activeSince time.Time) (*UserStats, error)
}
