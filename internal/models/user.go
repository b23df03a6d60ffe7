package models

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleUser     UserRole = "user"
	RoleAdmin    UserRole = "admin"
	RoleSecurity UserRole = "security"
)

// AllRoles is the canonical closed role set. Comparison against it is
// case-normalized at the boundary only (see ParseRole).
var AllRoles = []UserRole{RoleUser, RoleAdmin, RoleSecurity}

// ParseRole normalizes a client-supplied role string to a canonical role.
// Returns false for anything outside the closed set.
func ParseRole(s string) (UserRole, bool) {
	normalized := UserRole(strings.ToLower(strings.TrimSpace(s)))
	for _, role := range AllRoles {
		if role == normalized {
			return role, true
		}
	}
	return "", false
}

func (r UserRole) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// ActiveWindow is how recently a user must have been seen to count as active.
const ActiveWindow = 5 * time.Minute

type User struct {
	ID           uint     `json:"id" gorm:"primaryKey"`
	Name         string   `json:"name" gorm:"not null;size:100"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"column:password;not null;size:255"`
	Role         UserRole `json:"role" gorm:"not null;default:user;size:20"`

	// Email confirmation state. EmailConfirmed == true implies both
	// token fields are null (single use is enforced by clearing).
	EmailConfirmed   bool       `json:"email_confirmed" gorm:"default:false"`
	EmailToken       *string    `json:"-" gorm:"index;size:64"`
	EmailTokenExpiry *time.Time `json:"-"`

	// Presence tracking
	LastSeenAt *time.Time `json:"last_seen_at"`
	IsActive   bool       `json:"is_active" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SeenWithin reports whether the user was seen within the given window of now.
func (u *User) SeenWithin(window time.Duration, now time.Time) bool {
	return u.LastSeenAt != nil && u.LastSeenAt.After(now.Add(-window))
}
