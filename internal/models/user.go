package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ProfessionalType identifies what kind of land professional a user is.
// Users without one cannot receive service requests.
type ProfessionalType string

const (
	ProfessionalSurveyor  ProfessionalType = "surveyor"
	ProfessionalLawyer    ProfessionalType = "lawyer"
	ProfessionalArchitect ProfessionalType = "architect"
)

type User struct {
	ID               uint              `gorm:"primarykey" json:"id"`
	FullName         string            `gorm:"not null" json:"full_name"`
	Email            string            `gorm:"uniqueIndex;not null" json:"email"`
	Phone            string            `json:"phone"`
	Role             Role              `gorm:"type:varchar(20);default:'user'" json:"role"`
	ProfessionalType *ProfessionalType `gorm:"type:varchar(30)" json:"professional_type,omitempty"`
	// Paystack transfer recipient for seller/professional payouts.
	RecipientCode string         `json:"recipient_code,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsProfessional() bool {
	return u.ProfessionalType != nil && *u.ProfessionalType != ""
}
