package model

import (
	"strings"
	"time"
)

type User struct {
	ID             uint64 `gorm:"primaryKey"`
	Username       string `gorm:"uniqueIndex;size:32;not null"`
	FirstName      string `gorm:"size:64"`
	LastName       string `gorm:"size:64"`
	Email          string `gorm:"uniqueIndex;size:64;not null"`
	ProfilePicture string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DisplayName first + last name, falls back to username
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
