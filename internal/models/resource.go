package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResourceType classifies a physical asset a treatment may consume.
type ResourceType string

const (
	ResourceTypeRoom      ResourceType = "room"
	ResourceTypeEquipment ResourceType = "equipment"
	ResourceTypeTool      ResourceType = "tool"
	ResourceTypeOther     ResourceType = "other"
)

// Resource is a physical asset with a concurrent-use capacity, belonging
// to one store.
type Resource struct {
	ID       string       `gorm:"type:uuid;primary_key" json:"id"`
	StoreID  string       `gorm:"type:uuid;index;not null" json:"storeId"`
	Type     ResourceType `gorm:"type:varchar(20);not null" json:"type"`
	Name     string       `json:"name"`
	Capacity int          `gorm:"not null;default:1" json:"capacity"`
	IsActive bool         `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

func (Resource) TableName() string {
	return "resources"
}
