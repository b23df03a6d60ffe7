package models

import (
	"time"

	"gorm.io/datatypes"
)

// UserActivity is a best-effort audit row written for authenticated actions.
type UserActivity struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	UserID    uint           `json:"user_id" gorm:"not null;index"`
	Action    string         `json:"action" gorm:"not null;size:255"`
	IPAddress string         `json:"ip_address" gorm:"size:45"`
	UserAgent string         `json:"user_agent" gorm:"size:255"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp" gorm:"not null;index"`
}

func (UserActivity) TableName() string {
	return "user_activities"
}
