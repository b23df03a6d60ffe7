package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmailToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).
		Where("email_token = ?", token).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	// Save with Select("*") so clearing the email token writes the NULLs.
	return u.db.WithContext(ctx).Model(user).Select("*").Omit("created_at").Updates(user).Error
}

func (u *UserPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := u.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (u *UserPostgreSQL) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := u.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

func (u *UserPostgreSQL) UpdateLastSeen(ctx context.Context, id uint, seenAt time.Time, isActive bool) error {
	result := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_seen_at": seenAt,
			"is_active":    isActive,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (u *UserPostgreSQL) GetStats(ctx context.Context, activeSince time.Time) (*repositories.UserStats, error) {
	stats := &repositories.UserStats{}
	db := u.db.WithContext(ctx).Model(&models.User{})

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("role = ?", models.RoleAdmin).Count(&stats.AdminUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("role = ?", models.RoleUser).Count(&stats.NormalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("last_seen_at >= ?", activeSince).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
