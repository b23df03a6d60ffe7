package repositories

import (
	"context"
	"time"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// RecordRepository is the sole mutator of persisted record rows.
type RecordRepository interface {
	Create(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, id uint) (*models.Record, error)
	Update(ctx context.Context, record *models.Record) error

	// SoftDelete marks an active record deleted and Restore brings a
	// deleted one back. Both are conditional on the row's current state
	// and report not-found when no row in that state matched, which is
	// how a lost race with a concurrent transition surfaces.
	SoftDelete(ctx context.Context, id uint, deletedAt time.Time) error
	Restore(ctx context.Context, id uint) error

	// ListActive excludes soft-deleted rows; ListDeleted returns only
	// soft-deleted rows ordered by deletion time, most recent first.
	ListActive(ctx context.Context, filters RecordFilters) ([]*models.Record, int64, error)
	ListDeleted(ctx context.Context, filters RecordFilters) ([]*models.Record, int64, error)

	// GetActiveByStudentForUpdate fetches a student's active records
	// ordered by case date (id as tiebreak), locking the rows for the
	// duration of the surrounding transaction. Only meaningful inside
	// Repository.WithTransaction.
	GetActiveByStudentForUpdate(ctx context.Context, matric models.MatricNumber) ([]*models.Record, error)

	// UpdateOffenseCount writes only the derived sequence field.
	UpdateOffenseCount(ctx context.Context, id uint, count int) error
}
