package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SDARS-2025/discipline-service/internal/models"
	"github.com/SDARS-2025/discipline-service/internal/repositories"
)

// memoryRepo is an in-memory repositories.Repository used by the
// service tests. Transactions are not simulated; fn just runs against
// the same state, which is enough for single-goroutine scenarios.
type memoryRepo struct {
	users    *memoryUserRepo
	records  *memoryRecordRepo
	activity *memoryActivityRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:    &memoryUserRepo{byID: map[uint]models.User{}},
		records:  &memoryRecordRepo{byID: map[uint]models.Record{}},
		activity: &memoryActivityRepo{},
	}
}

func (m *memoryRepo) User() repositories.UserRepository         { return m.users }
func (m *memoryRepo) Record() repositories.RecordRepository     { return m.records }
func (m *memoryRepo) Activity() repositories.ActivityRepository { return m.activity }

func (m *memoryRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}

func (m *memoryRepo) Ping(ctx context.Context) error { return nil }
func (m *memoryRepo) Close() error                   { return nil }

// ===== USERS =====

type memoryUserRepo struct {
	mu     sync.Mutex
	byID   map[uint]models.User
	nextID uint
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.byID[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (r *memoryUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if user.Email == email {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepo) GetByEmailToken(ctx context.Context, token string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.byID {
		if user.EmailToken != nil && *user.EmailToken == token {
			u := user
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memoryUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.byID[user.ID] = *user
	return nil
}

func (r *memoryUserRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memoryUserRepo) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.byID))
	for _, user := range r.byID {
		u := user
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryUserRepo) UpdateLastSeen(ctx context.Context, id uint, seenAt time.Time, isActive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.LastSeenAt = &seenAt
	user.IsActive = isActive
	r.byID[id] = user
	return nil
}

func (r *memoryUserRepo) GetStats(ctx context.Context, activeSince time.Time) (*repositories.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &repositories.UserStats{}
	for _, user := range r.byID {
		stats.TotalUsers++
		switch user.Role {
		case models.RoleAdmin:
			stats.AdminUsers++
		case models.RoleUser:
			stats.NormalUsers++
		}
		if user.LastSeenAt != nil && user.LastSeenAt.After(activeSince) {
			stats.ActiveUsers++
		}
	}
	return stats, nil
}

// ===== RECORDS =====

type memoryRecordRepo struct {
	mu     sync.Mutex
	byID   map[uint]models.Record
	nextID uint
}

func (r *memoryRecordRepo) Create(ctx context.Context, record *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	record.ID = r.nextID
	record.CreatedAt = time.Now()
	r.byID[record.ID] = *record
	return nil
}

func (r *memoryRecordRepo) GetByID(ctx context.Context, id uint) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (r *memoryRecordRepo) Update(ctx context.Context, record *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[record.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.byID[record.ID] = *record
	return nil
}

func (r *memoryRecordRepo) SoftDelete(ctx context.Context, id uint, deletedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byID[id]
	if !ok || record.IsDeleted {
		return gorm.ErrRecordNotFound
	}
	record.IsDeleted = true
	record.DeletedAt = &deletedAt
	r.byID[id] = record
	return nil
}

func (r *memoryRecordRepo) Restore(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byID[id]
	if !ok || !record.IsDeleted {
		return gorm.ErrRecordNotFound
	}
	record.IsDeleted = false
	record.DeletedAt = nil
	r.byID[id] = record
	return nil
}

func (r *memoryRecordRepo) ListActive(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error) {
	records := r.snapshot(func(rec models.Record) bool {
		return !rec.IsDeleted && matchesFilters(rec, filters)
	})
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date.Equal(records[j].Date) {
			return records[i].ID < records[j].ID
		}
		return records[i].Date.Before(records[j].Date)
	})
	return records, int64(len(records)), nil
}

func (r *memoryRecordRepo) ListDeleted(ctx context.Context, filters repositories.RecordFilters) ([]*models.Record, int64, error) {
	records := r.snapshot(func(rec models.Record) bool {
		return rec.IsDeleted && matchesFilters(rec, filters)
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].DeletedAt.After(*records[j].DeletedAt)
	})
	return records, int64(len(records)), nil
}

func (r *memoryRecordRepo) GetActiveByStudentForUpdate(ctx context.Context, matric models.MatricNumber) ([]*models.Record, error) {
	records := r.snapshot(func(rec models.Record) bool {
		return !rec.IsDeleted && rec.MatricNumber == matric
	})
	sort.Slice(records, func(i, j int) bool {
		if records[i].Date.Equal(records[j].Date) {
			return records[i].ID < records[j].ID
		}
		return records[i].Date.Before(records[j].Date)
	})
	return records, nil
}

func (r *memoryRecordRepo) UpdateOffenseCount(ctx context.Context, id uint, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	record.OffenseCount = count
	r.byID[id] = record
	return nil
}

func (r *memoryRecordRepo) snapshot(keep func(models.Record) bool) []*models.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Record
	for _, record := range r.byID {
		if keep(record) {
			rec := record
			out = append(out, &rec)
		}
	}
	return out
}

func matchesFilters(rec models.Record, filters repositories.RecordFilters) bool {
	if filters.MatricNumber != nil && rec.MatricNumber != *filters.MatricNumber {
		return false
	}
	if filters.Status != nil && rec.Status != *filters.Status {
		return false
	}
	if filters.Department != nil && rec.Department != *filters.Department {
		return false
	}
	if filters.DateFrom != nil && rec.Date.Before(*filters.DateFrom) {
		return false
	}
	if filters.DateTo != nil && rec.Date.After(*filters.DateTo) {
		return false
	}
	return true
}

// ===== ACTIVITIES =====

type memoryActivityRepo struct {
	mu   sync.Mutex
	rows []models.UserActivity
}

func (r *memoryActivityRepo) Create(ctx context.Context, activity *models.UserActivity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	activity.ID = uint(len(r.rows) + 1)
	r.rows = append(r.rows, *activity)
	return nil
}

func (r *memoryActivityRepo) GetByUser(ctx context.Context, userID uint, filters repositories.ActivityFilters) ([]*models.UserActivity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.UserActivity
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		if filters.From != nil && row.Timestamp.Before(*filters.From) {
			continue
		}
		if filters.To != nil && row.Timestamp.After(*filters.To) {
			continue
		}
		activity := row
		out = append(out, &activity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}
