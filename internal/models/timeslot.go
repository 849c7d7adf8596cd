package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Timeslot is a half-open time bucket for a store: [StartTime, EndTime).
// Active timeslots for one store never overlap.
type Timeslot struct {
	ID      string    `gorm:"type:uuid;primary_key" json:"id"`
	StoreID string    `gorm:"type:uuid;index;not null" json:"storeId"`
	StartTime time.Time `gorm:"index;not null" json:"startTime"`
	EndTime   time.Time `gorm:"not null" json:"endTime"`

	MaxCapacity     int  `gorm:"not null;default:1" json:"maxCapacity"`
	CurrentBookings int  `gorm:"not null;default:0" json:"currentBookings"`
	IsActive        bool `gorm:"default:true" json:"isActive"`

	// AllowedTreatmentIDs / AllowedStaffIDs are optional whitelists; an
	// empty array means "all"/"any". Stored as Postgres text arrays.
	AllowedTreatmentIDs pq.StringArray `gorm:"type:text[];column:allowed_treatment_ids" json:"allowedTreatmentIds"`
	AllowedStaffIDs     pq.StringArray `gorm:"type:text[];column:allowed_staff_ids" json:"allowedStaffIds"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Timeslot) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

func (Timeslot) TableName() string {
	return "timeslots"
}

// HasCapacity reports whether the slot can admit one more booking.
func (t *Timeslot) HasCapacity() bool {
	return t.CurrentBookings < t.MaxCapacity
}

// AllowsTreatment reports whether the slot's treatment whitelist permits
// treatmentID (empty whitelist means all are allowed).
func (t *Timeslot) AllowsTreatment(treatmentID string) bool {
	if len(t.AllowedTreatmentIDs) == 0 {
		return true
	}
	for _, id := range t.AllowedTreatmentIDs {
		if id == treatmentID {
			return true
		}
	}
	return false
}

// Covers reports whether this slot fully covers [start, end).
func (t *Timeslot) Covers(start, end time.Time) bool {
	return !t.StartTime.After(start) && !t.EndTime.Before(end)
}
