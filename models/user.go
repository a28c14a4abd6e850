package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gorm.io/gorm"
)

// User is a dashboard account. Passwords are stored as bcrypt hashes only and
// accounts are deactivated rather than deleted.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"size:128;not null" json:"name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"`
	Role         Role       `gorm:"size:16;not null" json:"role"`
	Status       UserStatus `gorm:"size:16;not null" json:"status"`
	Department   string     `gorm:"size:128;not null" json:"department"`
	LastLogin    *time.Time `json:"last_login"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Active reports whether the account may sign in.
func (u *User) Active() bool { return u.Status == StatusActive }

// Validate checks field formats and enum membership.
func (u User) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Name, validation.Required, validation.Length(1, 128)),
		validation.Field(&u.Email, validation.Required, is.EmailFormat, validation.Length(3, 255)),
		validation.Field(&u.Role, validation.Required, validation.In(RoleAdmin, RoleEditor, RoleViewer)),
		validation.Field(&u.Status, validation.Required, validation.In(StatusActive, StatusInactive, StatusPending)),
		validation.Field(&u.Department, validation.Length(0, 128)),
	)
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
