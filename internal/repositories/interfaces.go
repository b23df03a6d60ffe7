package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// Repository is the injected data-access entry point. Nothing in the
// service layer touches a shared client directly; every component gets
// this interface through its constructor.
type Repository interface {
	User() UserRepository
	Record() RecordRepository
	Activity() ActivityRepository

	// WithTransaction runs fn against a Repository bound to a single
	// transaction; any error rolls the whole unit back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// ===== SHARED FILTER STRUCTS =====

type RecordFilters struct {
	MatricNumber *models.MatricNumber `json:"matric_number"`
	Status       *string              `json:"status"`
	Department   *string              `json:"department"`
	DateFrom     *time.Time           `json:"date_from"`
	DateTo       *time.Time           `json:"date_to"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

type ActivityFilters struct {
	From  *time.Time `json:"from"`
	To    *time.Time `json:"to"`
	Limit int        `json:"limit"`
}

// ===== SHARED STATISTICS STRUCTS =====

type UserStats struct {
	TotalUsers  int64 `json:"total_users"`
	AdminUsers  int64 `json:"admin_users"`
	NormalUsers int64 `json:"normal_users"`
	ActiveUsers int64 `json:"active_users"`
}

// IsNotFoundError reports whether err is the store's row-missing condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-key violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
