package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole enumerates platform roles. Managers ("gestors") own lead portfolios.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

// User describes a platform user. Users with RoleManager are eligible
// assignment targets for leads and companies.
type User struct {
	ID       string   `gorm:"primaryKey;type:uuid" json:"id"`
	Username string   `gorm:"uniqueIndex;not null" json:"username"`
	Email    string   `gorm:"uniqueIndex;not null" json:"email"`
	Role     UserRole `gorm:"type:varchar(32);not null;default:'employee';index" json:"role"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Employer  string `json:"employer"`

	// Capacity overrides the configured per-manager baseline when set.
	Capacity *int `json:"capacity,omitempty"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	Memberships []GroupMembership `gorm:"foreignKey:UserID" json:"memberships,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsManager reports whether the user can own leads and companies.
func (u *User) IsManager() bool {
	return u.Role == RoleManager || u.Role == RoleAdmin
}
