package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
)

type repository struct {
	db       *gorm.DB
	user     repositories.UserRepository
	record   repositories.RecordRepository
	activity repositories.ActivityRepository
}

// NewRepository wires the GORM-backed repositories around one shared
// connection pool.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		db:       db,
		user:     NewUserPostgreSQL(db),
		record:   NewRecordPostgreSQL(db),
		activity: NewActivityPostgreSQL(db),
	}
}

func (r *repository) User() repositories.UserRepository         { return r.user }
func (r *repository) Record() repositories.RecordRepository     { return r.record }
func (r *repository) Activity() repositories.ActivityRepository { return r.activity }

func (r *repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates the schema for all owned tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Record{},
		&models.UserActivity{},
	)
}
