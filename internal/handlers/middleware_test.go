package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/SDARS-2025/discipline-service/internal/auth"
	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
	"github.com/SDARS-2025/discipline-service/internal/utils"
)

// stubUserRepo serves only GetByID; the guard needs nothing else.
type stubUserRepo struct {
	users map[uint]*models.User
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error { return nil }
func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) GetByEmailToken(ctx context.Context, token string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error { return nil }
func (s *stubUserRepo) Delete(ctx context.Context, id uint) error           { return nil }
func (s *stubUserRepo) List(ctx context.Context) ([]*models.User, error)    { return nil, nil }
func (s *stubUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return false, nil
}
func (s *stubUserRepo) UpdateLastSeen(ctx context.Context, id uint, seenAt time.Time, isActive bool) error {
	return nil
}
func (s *stubUserRepo) GetStats(ctx context.Context, activeSince time.Time) (*repositories.UserStats, error) {
	return &repositories.UserStats{}, nil
}

type stubRepo struct {
	users *stubUserRepo
}

func (s *stubRepo) User() repositories.UserRepository         { return s.users }
func (s *stubRepo) Record() repositories.RecordRepository     { return nil }
func (s *stubRepo) Activity() repositories.ActivityRepository { return nil }
func (s *stubRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(s)
}
func (s *stubRepo) Ping(ctx context.Context) error { return nil }
func (s *stubRepo) Close() error                   { return nil }

type guardFixture struct {
	tokens *auth.TokenService
	repo   *stubRepo
	router *gin.Engine
}

func newGuardFixture(roles ...string) *guardFixture {
	gin.SetMode(gin.TestMode)

	repo := &stubRepo{users: &stubUserRepo{users: map[uint]*models.User{}}}
	tokens := auth.NewTokenService("session-secret", "exchange-secret", time.Hour, time.Hour)
	mw := NewMiddleware(tokens, repo, nil, utils.NewDevelopmentLogger())

	router := gin.New()
	group := router.Group("/protected", mw.RequireAuth())
	if len(roles) > 0 {
		group.Use(mw.RequireRoles(roles...))
	}
	group.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.MustGet("user_id")})
	})

	return &guardFixture{tokens: tokens, repo: repo, router: router}
}

func (f *guardFixture) addUser(id uint, role models.UserRole) string {
	f.repo.users.users[id] = &models.User{ID: id, Role: role, EmailConfirmed: true}
	token, err := f.tokens.IssueSession(id, role)
	if err != nil {
		panic(err)
	}
	return token
}

func (f *guardFixture) get(authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// Rejections carry a machine-readable reason so clients can tell a
// missing credential from a stale one without parsing the message.
func TestRequireAuth_MissingAndMalformed(t *testing.T) {
	f := newGuardFixture()

	rec := f.get("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"missing_token"`)

	for _, header := range []string{"Token abc", "Bearer"} {
		rec = f.get(header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"reason":"malformed_header"`)
	}

	rec = f.get("Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"malformed_token"`)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	f := newGuardFixture()
	token := f.addUser(1, models.RoleUser)

	rec := f.get("Bearer " + token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":1`)
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	f := newGuardFixture()
	f.addUser(1, models.RoleUser)

	// Issue from two hours in the past so a 1h token is already stale.
	past := f.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	token, err := past.IssueSession(1, models.RoleUser)
	require.NoError(t, err)

	rec := f.get("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"expired_token"`)
}

// A session for a deleted account is rejected like any bad token.
func TestRequireAuth_StalePrincipal(t *testing.T) {
	f := newGuardFixture()
	token := f.addUser(1, models.RoleUser)
	delete(f.repo.users.users, 1)

	rec := f.get("Bearer " + token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"stale_principal"`)
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name    string
		allowed []string
		role    models.UserRole
		want    int
	}{
		{"admin on admin route", []string{"admin"}, models.RoleAdmin, http.StatusOK},
		{"user on admin route", []string{"admin"}, models.RoleUser, http.StatusForbidden},
		{"security on read route", []string{"admin", "security"}, models.RoleSecurity, http.StatusOK},
		{"user on read route", []string{"admin", "security"}, models.RoleUser, http.StatusForbidden},
		{"case-insensitive config", []string{"Admin"}, models.RoleAdmin, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGuardFixture(tc.allowed...)
			token := f.addUser(1, tc.role)
			rec := f.get("Bearer " + token)
			assert.Equal(t, tc.want, rec.Code)

			// A denial names the roles the route accepts.
			if tc.want == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), `"required_roles"`)
				for _, role := range tc.allowed {
					assert.Contains(t, rec.Body.String(), strings.ToLower(role))
				}
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS("http://localhost:3000"))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
