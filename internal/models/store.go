package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DaySchedule is either {closed:true} or {open:"HH:MM", close:"HH:MM"} in
// the store's local time, stored as JSONB.
type DaySchedule struct {
	Closed bool   `json:"closed,omitempty"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
}

// OperatingHours maps a Go time.Weekday (0=Sunday..6=Saturday) to its
// schedule. Encoded/decoded through the JSONB column on Store.
type OperatingHours map[time.Weekday]DaySchedule

// Store is a tenant venue: its own timezone, operating hours, and quotas.
type Store struct {
	ID       string `gorm:"type:uuid;primary_key" json:"id"`
	Name     string `gorm:"not null" json:"name"`
	Timezone string `gorm:"not null" json:"timezone"` // IANA zone name, e.g. "America/New_York"

	OperatingHours OperatingHours `gorm:"type:jsonb;serializer:json" json:"operatingHours"`

	// Quota settings.
	MaxDailyBookings      *int `json:"maxDailyBookings"`
	MaxConcurrentBookings *int `json:"maxConcurrentBookings"`
	BufferTimeMinutes     int  `gorm:"default:15" json:"bufferTimeMinutes"`
	MaxAdvanceBookingDays int  `gorm:"default:90" json:"maxAdvanceBookingDays"`
	CancellationDeadlineHours int `gorm:"default:24" json:"cancellationDeadlineHours"`
	AllowOnlineBooking    bool `gorm:"default:true" json:"allowOnlineBooking"`
	RequireApproval       bool `gorm:"default:false" json:"requireApproval"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

func (Store) TableName() string {
	return "stores"
}
