package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SDARS-2025/discipline-service/internal/auth"
	"github.com/SDARS-2025/discipline-service/internal/cache"
	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/validator"
)

func newUserFixture(t *testing.T) (UserService, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewUserService(repo, cache.NoopCache{}, logger, validator.New())
	return service, repo
}

func seedUser(t *testing.T, repo *memoryRepo, email string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := auth.HashPassword("passw0rd")
	require.NoError(t, err)
	user := &models.User{
		Name:           "Seeded User",
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		EmailConfirmed: true,
	}
	require.NoError(t, repo.User().Create(context.Background(), user))
	return user
}

// recordingCache captures cache traffic so tests can assert on
// invalidation without a Redis server.
type recordingCache struct {
	getErr   error
	deleted  []string
	patterns []string
}

func (c *recordingCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	return cache.ErrCacheMiss
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *recordingCache) DeletePattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

// Role changes and deletions sweep the cached stats by pattern; an
// unreadable cached entry is evicted by key so it cannot stick around.
func TestStatsCacheMaintenance(t *testing.T) {
	repo := newMemoryRepo()
	recording := &recordingCache{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewUserService(repo, recording, logger, validator.New())
	ctx := context.Background()

	user := seedUser(t, repo, "ada@university.edu", models.RoleUser)

	_, err := service.UpdateUserRole(ctx, 1, user.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"users:stats*"}, recording.patterns)

	require.NoError(t, service.DeleteUser(ctx, 1, user.ID))
	assert.Equal(t, []string{"users:stats*", "users:stats*"}, recording.patterns)
	assert.Empty(t, recording.deleted)

	recording.getErr = errors.New("corrupt entry")
	_, err = service.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users:stats"}, recording.deleted)
}

func TestChangePassword(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()
	user := seedUser(t, repo, "ada@university.edu", models.RoleUser)

	err := service.ChangePassword(ctx, user.ID, &ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newpassword",
		ConfirmPassword: "newpassword",
	})
	assert.ErrorIs(t, err, ErrWrongPassword)

	err = service.ChangePassword(ctx, user.ID, &ChangePasswordRequest{
		CurrentPassword: "passw0rd",
		NewPassword:     "newpassword",
		ConfirmPassword: "different",
	})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	err = service.ChangePassword(ctx, user.ID, &ChangePasswordRequest{
		CurrentPassword: "passw0rd",
		NewPassword:     "newpassword",
		ConfirmPassword: "newpassword",
	})
	require.NoError(t, err)

	stored, err := repo.User().GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("newpassword", stored.PasswordHash))
	assert.False(t, auth.CheckPassword("passw0rd", stored.PasswordHash))
}

func TestHeartbeatAndStats(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()

	active := seedUser(t, repo, "active@university.edu", models.RoleUser)
	seedUser(t, repo, "idle@university.edu", models.RoleUser)
	seedUser(t, repo, "admin@university.edu", models.RoleAdmin)

	require.NoError(t, service.Heartbeat(ctx, active.ID))

	stats, err := service.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.AdminUsers)
	assert.Equal(t, int64(2), stats.NormalUsers)
	assert.Equal(t, int64(1), stats.ActiveUsers)

	assert.ErrorIs(t, service.Heartbeat(ctx, 9999), ErrUserNotFound)

	// Profiles report the freshly derived flag, not the stored one.
	profile, err := service.GetProfile(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, profile.IsActive)
}

func TestUpdateProfile(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()
	user := seedUser(t, repo, "ada@university.edu", models.RoleUser)

	updated, err := service.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{Name: "Ada Lovelace"})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)

	_, err = service.UpdateProfile(ctx, user.ID, &UpdateProfileRequest{Name: "   "})
	var ve ValidationErrors
	assert.ErrorAs(t, err, &ve)
}

// A heartbeat older than the active window no longer counts.
func TestStats_ActiveWindow(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()
	user := seedUser(t, repo, "stale@university.edu", models.RoleUser)

	stale := time.Now().Add(-models.ActiveWindow - time.Minute)
	require.NoError(t, repo.User().UpdateLastSeen(ctx, user.ID, stale, true))

	stats, err := service.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ActiveUsers)
}

func TestUpdateUserRole(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()
	user := seedUser(t, repo, "ada@university.edu", models.RoleUser)

	updated, err := service.UpdateUserRole(ctx, 1, user.ID, "Security")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSecurity, updated.Role)

	_, err = service.UpdateUserRole(ctx, 1, user.ID, "emperor")
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = service.UpdateUserRole(ctx, 1, 9999, "admin")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()
	user := seedUser(t, repo, "ada@university.edu", models.RoleUser)

	require.NoError(t, service.DeleteUser(ctx, 1, user.ID))
	assert.ErrorIs(t, service.DeleteUser(ctx, 1, user.ID), ErrUserNotFound)

	_, err := service.GetProfile(ctx, user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestActivities(t *testing.T) {
	service, repo := newUserFixture(t)
	ctx := context.Background()
	user := seedUser(t, repo, "ada@university.edu", models.RoleUser)

	service.RecordActivity(ctx, &models.UserActivity{
		UserID: user.ID,
		Action: "POST /api/records",
	})
	service.RecordActivity(ctx, &models.UserActivity{
		UserID: user.ID,
		Action: "DELETE /api/records/:id",
	})
	service.RecordActivity(ctx, &models.UserActivity{
		UserID: 9999,
		Action: "POST /api/records",
	})

	activities, err := service.GetActivities(ctx, user.ID, repositories.ActivityFilters{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, activities, 2)
	for _, activity := range activities {
		assert.Equal(t, user.ID, activity.UserID)
		assert.False(t, activity.Timestamp.IsZero())
	}
}
