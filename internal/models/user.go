package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the user's position in the authorization hierarchy:
// super_admin > store_admin > staff > customer.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleStoreAdmin Role = "store_admin"
	RoleStaff      Role = "staff"
	RoleCustomer   Role = "customer"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleStoreAdmin, RoleStaff, RoleCustomer:
		return true
	default:
		return false
	}
}

// SkillLevel ranks staff eligibility against a treatment's required level.
type SkillLevel string

const (
	SkillJunior SkillLevel = "junior"
	SkillSenior SkillLevel = "senior"
	SkillExpert SkillLevel = "expert"
)

var skillRank = map[SkillLevel]int{
	SkillJunior: 0,
	SkillSenior: 1,
	SkillExpert: 2,
}

// AtLeast reports whether s meets or exceeds the required level. Staff
// missing a skill level default to junior.
func (s SkillLevel) AtLeast(required SkillLevel) bool {
	if s == "" {
		s = SkillJunior
	}
	return skillRank[s] >= skillRank[required]
}

// User represents any actor in the system: super_admin/store_admin/staff
// carry a storeId; customers may not.
type User struct {
	ID         string      `gorm:"type:uuid;primary_key" json:"id"`
	Email      string      `gorm:"uniqueIndex;not null" json:"email"`
	FirstName  string      `gorm:"not null" json:"firstName"`
	LastName   string      `gorm:"not null" json:"lastName"`
	Role       Role        `gorm:"type:varchar(20);not null;default:'customer'" json:"role"`
	StoreID    *string     `gorm:"type:uuid;index" json:"storeId,omitempty"`
	SkillLevel *SkillLevel `gorm:"type:varchar(20)" json:"skillLevel,omitempty"`
	IsActive   bool        `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

// EffectiveSkillLevel returns the staff's skill level, defaulting to
// junior when unset, per spec.md §4.2.
func (u *User) EffectiveSkillLevel() SkillLevel {
	if u.SkillLevel == nil {
		return SkillJunior
	}
	return *u.SkillLevel
}
