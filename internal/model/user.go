package model

import (
	"strings"
	"time"
)

// User is an account able to sign in to the tracker.
type User struct {
	ID            uint   `gorm:"primaryKey"`
	Username      string `gorm:"size:150;uniqueIndex;not null"`
	Email         string `gorm:"size:254;uniqueIndex;not null"`
	FirstName     string `gorm:"size:30"`
	LastName      string `gorm:"size:30"`
	PasswordHash  string `gorm:"not null"`
	IsActive      bool   `gorm:"default:true"`
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Settings      *UserSettings      `gorm:"constraint:OnDelete:CASCADE"`
	Notifications []UserNotification `gorm:"constraint:OnDelete:CASCADE"`
}

// DisplayName prefers the first name and falls back to the username.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return u.Username
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
