package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
)

type RecordPostgreSQL struct {
	db *gorm.DB
}

func NewRecordPostgreSQL(db *gorm.DB) repositories.RecordRepository {
	return &RecordPostgreSQL{db: db}
}

func (r *RecordPostgreSQL) Create(ctx context.Context, record *models.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *RecordPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Record, error) {
	var record models.Record
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RecordPostgreSQL) Update(ctx context.Context, record *models.Record) error {
	// Select("*") so restoring a record writes deleted_at back to NULL.
	return r.db.WithContext(ctx).Model(record).Select("*").Omit("created_at").Updates(record).Error
}

func (r *RecordPostgreSQL) SoftDelete(ctx context.Context, id uint, deletedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(map[string]interface{}{"is_deleted": true, "deleted_at": deletedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RecordPostgreSQL) Restore(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ? AND is_deleted = ?", id, true).
		Updates(map[string]interface{}{"is_deleted": false, "deleted_at": nil})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RecordPostgreSQL) ListActive(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("is_deleted = ?", false)

	query = r.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset(filters.Offset)
	}

	var records []*models.Record
	err := query.Order("date ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *RecordPostgreSQL) ListDeleted(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("is_deleted = ?", true)

	query = r.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit).Offset(filters.Offset)
	}

	var records []*models.Record
	err := query.Order("deleted_at DESC").Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *RecordPostgreSQL) GetActiveByStudentForUpdate(ctx context.Context, matric models.MatricNumber) ([]*models.Record, error) {
	var records []*models.Record
	// Row locks serialize concurrent recomputes for the same student;
	// recomputes for different students proceed in parallel.
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("matric_number = ? AND is_deleted = ?", matric, false).
		Order("date ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *RecordPostgreSQL) UpdateOffenseCount(ctx context.Context, id uint, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.Record{}).
		Where("id = ?", id).
		Update("offense_count", count).Error
}

func (r *RecordPostgreSQL) applyFilters(query *gorm.DB, filters repositories.RecordFilters) *gorm.DB {
	if filters.MatricNumber != nil {
		query = query.Where("matric_number = ?", *filters.MatricNumber)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Department != nil {
		query = query.Where("department = ?", *filters.Department)
	}
	if filters.DateFrom != nil {
		query = query.Where("date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("date <= ?", *filters.DateTo)
	}
	return query
}
