package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// NilSentinel is the stored value for punishment duration and resumption
// period when the field is absent or blank.
const NilSentinel = "Nil"

// MatricNumber is a student identifier. Matric numbers can exceed the
// 32-bit range, so they are held as int64 and serialized as decimal
// strings to survive numeric-JSON transports without precision loss.
type MatricNumber int64

func (m MatricNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(m), 10))
}

func (m *MatricNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*m = MatricNumber(v)
	return nil
}

func (m MatricNumber) String() string {
	return strconv.FormatInt(int64(m), 10)
}

// Record is one disciplinary case against a student.
type Record struct {
	ID uint `json:"id" gorm:"primaryKey"`

	StudentName  string       `json:"student_name" gorm:"not null;size:100"`
	MatricNumber MatricNumber `json:"matric_number" gorm:"not null;index"`

	Level      string `json:"level" gorm:"not null;size:50"`
	Department string `json:"department" gorm:"not null;size:100"`
	Offense    string `json:"offense" gorm:"not null;size:500"`
	Punishment string `json:"punishment" gorm:"not null;size:500"`
	Status     string `json:"status" gorm:"not null;size:50"`

	// Date is the offense date, distinct from row creation metadata.
	Date time.Time `json:"date" gorm:"not null;index"`

	PunishmentDuration string `json:"punishment_duration" gorm:"not null;default:Nil;size:100"`
	ResumptionPeriod   string `json:"resumption_period" gorm:"not null;default:Nil;size:100"`

	// OffenseCount is the 1-based rank of this record among the student's
	// active records ordered by Date. Recomputed by the service layer,
	// never edited by clients.
	OffenseCount int `json:"offense_count" gorm:"not null;default:1"`

	// Soft-delete state. IsDeleted == false implies DeletedAt is null.
	IsDeleted bool       `json:"is_deleted" gorm:"not null;default:false;index"`
	DeletedAt *time.Time `json:"deleted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Record) TableName() string {
	return "records"
}

// NormalizeEffectivePeriod maps a blank or "nil" client value to the Nil
// sentinel, and prefixes anything else the way the case office words it.
func NormalizeEffectivePeriod(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || strings.EqualFold(trimmed, NilSentinel) {
		return NilSentinel
	}
	return "Effective from " + trimmed
}
