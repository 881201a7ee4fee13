package model

import (
	"time"
)

// User account
type User struct {
	ID           string    `json:"uid" gorm:"primaryKey;size:36"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255"`
	DisplayName  string    `json:"displayName"`
	PhotoURL     string    `json:"photoURL"`
	PasswordHash string    `json:"-"`
	Provider     string    `json:"provider"` // password, google
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SessionUser user info kept in the cookie session
type SessionUser struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}

// NewSessionUser builds the session view of a user
func NewSessionUser(u *User) SessionUser {
	return SessionUser{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
	}
}

// PasswordReset one-time password reset token, only the hash is stored
type PasswordReset struct {
	TokenHash string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"index;size:36"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}
