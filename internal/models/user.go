package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the system
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Email             string    `gorm:"uniqueIndex;not null" json:"email"`
	EncryptedPassword string    `gorm:"column:encrypted_password;not null" json:"-"`
	FullName          string    `json:"full_name"`
	Role              Role      `gorm:"size:32;default:STAFF" json:"role"`
	BusinessUnitID    *uint     `gorm:"index" json:"business_unit_id"`
	Status            string    `gorm:"default:active" json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Associations
	BusinessUnit *BusinessUnit `gorm:"foreignKey:BusinessUnitID" json:"business_unit,omitempty"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook for setting defaults
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleStaff
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	return nil
}

// IsActive returns true if user status is active
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// Actor builds the workflow actor for this user
func (u *User) Actor(ip, userAgent string) Actor {
	a := Actor{
		ID:        u.ID,
		Role:      ParseRole(string(u.Role)),
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if u.BusinessUnitID != nil {
		a.BusinessUnitID = *u.BusinessUnitID
	}
	return a
}

// Status constants
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// UserResponse is the JSON response format for users
type UserResponse struct {
	ID             uint      `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	Role           Role      `json:"role"`
	BusinessUnitID *uint     `json:"business_unit_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		FullName:       u.FullName,
		Role:           u.Role,
		BusinessUnitID: u.BusinessUnitID,
		Status:         u.Status,
		CreatedAt:      u.CreatedAt,
	}
}
