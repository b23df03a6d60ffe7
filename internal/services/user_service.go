package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SDARS-2025/discipline-service/internal/auth"
	"github.com/SDARS-2025/discipline-service/internal/cache"
	apperrors "github.com/SDARS-2025/discipline-service/internal/errors"
	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/validator"
)

const (
	userStatsCacheKey     = "users:stats"
	userStatsCachePattern = "users:stats*"
	userStatsCacheTTL     = time.Minute
)

// UserService covers profile access, presence tracking, the dashboard
// statistics and admin-side user management.
type UserService interface {
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error)
	ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error
	Heartbeat(ctx context.Context, userID uint) error

	GetStats(ctx context.Context) (*repositories.UserStats, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	UpdateUserRole(ctx context.Context, actorID uint, id uint, role string) (*models.User, error)
	DeleteUser(ctx context.Context, actorID uint, id uint) error

	GetActivities(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.UserActivity, error)
	RecordActivity(ctx context.Context, activity *models.UserActivity)
}

// ===== REQUEST STRUCTS =====

type UpdateProfileRequest struct {
	Name string `json:"name" validate:"required,not_blank,max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type userService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
}

func NewUserService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	logger *slog.Logger,
	v *validator.Validator,
) UserService {
	return &userService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: v,
	}
}

// ===== PROFILE =====

func (s *userService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	// The stored flag goes stale between heartbeats; derive it fresh.
	user.IsActive = user.SeenWithin(models.ActiveWindow, time.Now())
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, req *UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return nil, ve
		}
		return nil, err
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = req.Name
	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("profile updated", "user_id", userID)
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		if ve := apperrors.ToValidationErrors(err); len(ve) > 0 {
			return ve
		}
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = hash
	if err := s.repo.User().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// ===== PRESENCE =====

// Heartbeat marks the caller as seen now. The active flag is derived
// again at read time, so a stale true here only survives until the
// next stats query.
func (s *userService) Heartbeat(ctx context.Context, userID uint) error {
	if err := s.repo.User().UpdateLastSeen(ctx, userID, time.Now(), true); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

// ===== STATISTICS =====

func (s *userService) GetStats(ctx context.Context) (*repositories.UserStats, error) {
	var cached repositories.UserStats
	if err := s.cache.Get(ctx, userStatsCacheKey, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("stats cache read failed", "error", err)
		// Evict the unreadable entry so it cannot shadow a fresh write.
		if err := s.cache.Delete(ctx, userStatsCacheKey); err != nil {
			s.logger.Warn("stats cache eviction failed", "error", err)
		}
	}

	stats, err := s.repo.User().GetStats(ctx, time.Now().Add(-models.ActiveWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to compute user stats: %w", err)
	}

	if err := s.cache.Set(ctx, userStatsCacheKey, stats, userStatsCacheTTL); err != nil {
		s.logger.Warn("stats cache write failed", "error", err)
	}

	return stats, nil
}

// ===== ADMIN USER MANAGEMENT =====

func (s *userService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.User().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	now := time.Now()
	for _, user := range users {
		user.IsActive = user.SeenWithin(models.ActiveWindow, now)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.GetProfile(ctx, id)
}

func (s *userService) UpdateUserRole(ctx context.Context, actorID uint, id uint, role string) (*models.User, error) {
	parsed, ok := models.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}

	user, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Role = parsed
	if err := s.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	s.invalidateStats(ctx)
	s.logger.Info("user role updated", "user_id", id, "role", parsed, "actor_id", actorID)
	return user, nil
}

// DeleteUser removes the account row outright. User rows carry no
// offense history, so there is nothing to soft-delete here.
func (s *userService) DeleteUser(ctx context.Context, actorID uint, id uint) error {
	if err := s.repo.User().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.invalidateStats(ctx)
	s.logger.Info("user deleted", "user_id", id, "actor_id", actorID)
	return nil
}

// invalidateStats drops every cached stats entry by pattern, covering
// any keys derived from userStatsCacheKey in a single sweep.
func (s *userService) invalidateStats(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, userStatsCachePattern); err != nil {
		s.logger.Warn("stats cache invalidation failed", "error", err)
	}
}

// ===== ACTIVITY LOG =====

func (s *userService) GetActivities(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.UserActivity, error) {
	activities, err := s.repo.Activity().GetByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return activities, nil
}

// RecordActivity writes an audit row. Failures are logged and dropped;
// auditing never fails the action it describes.
func (s *userService) RecordActivity(ctx context.Context, activity *models.UserActivity) {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}
	if err := s.repo.Activity().Create(ctx, activity); err != nil {
		s.logger.Warn("failed to record activity",
			"user_id", activity.UserID,
			"action", activity.Action,
			"error", err)
	}
}
