package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// StaffLevel is the skill level a treatment requires from its staff.
type StaffLevel string

const (
	StaffLevelJunior StaffLevel = "junior"
	StaffLevelSenior StaffLevel = "senior"
	StaffLevelExpert StaffLevel = "expert"
	StaffLevelAny    StaffLevel = "any"
)

// Money is the {amount, currency} price pair.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"` // ISO-4217
}

// Treatment is a service offering belonging to exactly one store.
type Treatment struct {
	ID         string `gorm:"type:uuid;primary_key" json:"id"`
	StoreID    string `gorm:"type:uuid;index;not null" json:"storeId"`
	Name       string `gorm:"not null" json:"name"`
	Category   string `json:"category"`
	Duration   int    `gorm:"not null" json:"duration"` // minutes, 15..480

	PriceAmount   float64 `gorm:"column:price_amount" json:"-"`
	PriceCurrency string  `gorm:"column:price_currency" json:"-"`

	RequiredStaffLevel StaffLevel `gorm:"type:varchar(20);not null;default:'any'" json:"requiredStaffLevel"`

	// RequiredResources is the ordered set of resource ids this treatment
	// consumes, all of which must belong to the same store.
	RequiredResources pq.StringArray `gorm:"type:text[]" json:"requiredResources"`

	MaxConcurrentBookings int  `gorm:"not null;default:1" json:"maxConcurrentBookings"`
	Tags                  pq.StringArray `gorm:"type:text[]" json:"tags"`
	IsActive              bool `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (t *Treatment) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

func (Treatment) TableName() string {
	return "treatments"
}

// Price returns the treatment's current price as a Money value.
func (t *Treatment) Price() Money {
	return Money{Amount: t.PriceAmount, Currency: t.PriceCurrency}
}
