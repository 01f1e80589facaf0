package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer UserRole = "CUSTOMER"
	RoleOwner    UserRole = "OWNER"
	RoleAdmin    UserRole = "ADMIN"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleOwner, RoleAdmin:
		return true
	}
	return false
}

// Column limits shared by validation and truncation.
const (
	UsernameMaxLen  = 50
	EmailMaxLen     = 100
	FullNameMaxLen  = 100
	UserPhoneMaxLen = 20
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	FullName     string    `json:"full_name" gorm:"size:100"`
	Phone        string    `json:"phone" gorm:"size:20"`
	Role         UserRole  `json:"role" gorm:"size:16;not null;default:'CUSTOMER'"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`

	Restaurants []Restaurant `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	Carts       []Cart       `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Orders      []Order      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
}
