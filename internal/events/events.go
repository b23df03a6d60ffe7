package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// EventType identifies the audit event kinds the service emits.
type EventType string

const (
	UserRegistered EventType = "user.registered"
	UserConfirmed  EventType = "user.confirmed"
	RecordCreated  EventType = "record.created"
	RecordUpdated  EventType = "record.updated"
	RecordDeleted  EventType = "record.deleted"
	RecordRestored EventType = "record.restored"
)

// DisciplineEvent is the envelope published for every auditable change.
type DisciplineEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	// ActorID is the authenticated user who caused the change; zero for
	// self-service flows such as registration.
	ActorID uint `json:"actor_id,omitempty"`

	// Exactly one of the payloads is set, matching Type.
	User   *UserPayload   `json:"user,omitempty"`
	Record *RecordPayload `json:"record,omitempty"`
}

type UserPayload struct {
	UserID uint            `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
}

type RecordPayload struct {
	RecordID     uint                `json:"record_id"`
	MatricNumber models.MatricNumber `json:"matric_number"`
	OffenseCount int                 `json:"offense_count"`
}

const eventSource = "discipline-service"

func newEvent(eventType EventType, actorID uint) *DisciplineEvent {
	return &DisciplineEvent{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    eventSource,
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		ActorID:   actorID,
	}
}

// NewUserEvent builds an event for a user lifecycle change.
func NewUserEvent(eventType EventType, user *models.User) *DisciplineEvent {
	ev := newEvent(eventType, 0)
	ev.User = &UserPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}
	return ev
}

// NewRecordEvent builds an event for a record lifecycle change.
func NewRecordEvent(eventType EventType, actorID uint, record *models.Record) *DisciplineEvent {
	ev := newEvent(eventType, actorID)
	ev.Record = &RecordPayload{
		RecordID:     record.ID,
		MatricNumber: record.MatricNumber,
		OffenseCount: record.OffenseCount,
	}
	return ev
}
