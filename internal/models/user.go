// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole controls which marketplace actions a user may take.
type UserRole string

const (
	// RoleBuyer can browse, vote and order.
	RoleBuyer UserRole = "buyer"
	// RoleSeller can additionally list products and run live sessions.
	RoleSeller UserRole = "seller"
	// RoleAdmin has every permission.
	RoleAdmin UserRole = "admin"
)

// User represents an account in the marketplace.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username        string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	PasswordHash    string    `gorm:"size:255" json:"-"`
	FirstName       string    `gorm:"size:100" json:"first_name,omitempty"`
	LastName        string    `gorm:"size:100" json:"last_name,omitempty"`
	ProfileImageURL string    `gorm:"size:500" json:"profile_image_url,omitempty"`
	Bio             string    `gorm:"type:text" json:"bio,omitempty"`
	Role            UserRole  `gorm:"size:20;not null;default:buyer" json:"role"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	IsVerified      bool      `gorm:"not null;default:false" json:"is_verified"`
	// Follow counters move only in the same transaction as the follows row.
	FollowersCount  int       `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount  int       `gorm:"not null;default:0" json:"following_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// HasRole reports whether the user holds one of roles. Admins hold every role.
func (u *User) HasRole(roles ...UserRole) bool {
	if u.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// UserProfile is the public view of a user; it omits contact and account fields.
type UserProfile struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	FirstName       string    `json:"first_name,omitempty"`
	LastName        string    `json:"last_name,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	ProfileImageURL string    `json:"profile_image_url,omitempty"`
	Role            UserRole  `json:"role"`
	IsVerified      bool      `json:"is_verified"`
	FollowersCount  int       `json:"followers_count"`
	FollowingCount  int       `json:"following_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Profile returns the public view of u.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:              u.ID,
		Username:        u.Username,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Bio:             u.Bio,
		ProfileImageURL: u.ProfileImageURL,
		Role:            u.Role,
		IsVerified:      u.IsVerified,
		FollowersCount:  u.FollowersCount,
		FollowingCount:  u.FollowingCount,
		CreatedAt:       u.CreatedAt,
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
