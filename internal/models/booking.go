package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingStatus is a node in the lifecycle state machine of spec.md §4.4.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusNoShow     BookingStatus = "no_show"
)

// IsTerminal reports whether the status ends the booking's lifecycle.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	default:
		return false
	}
}

// Booking is a customer's commitment against a treatment at a specific
// instant, optionally bound to a staff member.
type Booking struct {
	ID          string        `gorm:"type:uuid;primary_key" json:"id"`
	CustomerID  string        `gorm:"type:uuid;index;not null" json:"customerId"`
	StoreID     string        `gorm:"type:uuid;index;not null" json:"storeId"`
	TreatmentID string        `gorm:"type:uuid;index;not null" json:"treatmentId"`
	StaffID     *string       `gorm:"type:uuid;index" json:"staffId,omitempty"`

	BookingDateTime time.Time     `gorm:"index;not null" json:"bookingDateTime"`
	Duration        int           `gorm:"not null" json:"duration"` // minutes, snapshotted from treatment at admission
	Status          BookingStatus `gorm:"type:varchar(20);not null" json:"status"`

	PriceAmount   float64 `gorm:"column:price_amount" json:"-"`
	PriceCurrency string  `gorm:"column:price_currency" json:"-"`

	Notes              *string    `json:"notes,omitempty"`
	CancellationReason *string    `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	ReminderSent       bool       `gorm:"default:false" json:"reminderSent"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return nil
}

func (Booking) TableName() string {
	return "bookings"
}

// EndTime is the booking's half-open interval upper bound.
func (b *Booking) EndTime() time.Time {
	return b.BookingDateTime.Add(time.Duration(b.Duration) * time.Minute)
}

// Price returns the booking's snapshotted price.
func (b *Booking) Price() Money {
	return Money{Amount: b.PriceAmount, Currency: b.PriceCurrency}
}
