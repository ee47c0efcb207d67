package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the dashboard role owned by the user directory.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// UserStatus is the account standing of a user.
type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusSuspended:
		return true
	}
	return false
}

// User is a directory entry. When built from a token it is the request's principal;
// its Role field is then empty and the role must be obtained from the role resolver.
type User struct {
	ID          string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	Email       string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	DisplayName string     `json:"display_name" gorm:"type:varchar(100)"`
	Password    string     `json:"password,omitempty" gorm:"type:varchar(255);not null"`
	PhotoURL    string     `json:"photo_url,omitempty" gorm:"type:varchar(500)"`
	Role        Role       `json:"role,omitempty" gorm:"type:varchar(20);not null;default:'buyer';index"`
	Status      UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Suspended reports whether the principal may only read.
func (u *User) Suspended() bool {
	return u != nil && u.Status == UserStatusSuspended
}

// JWTClaims are the claims carried by an access token. Role is not carried; it is
// resolved per request.
type JWTClaims struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Status      UserStatus `json:"status"`
	jwt.RegisteredClaims
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name" binding:"required"`
	PhotoURL    string `json:"photo_url"`
	Role        Role   `json:"role"`
}

// LoginResponse is returned by login and register.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
