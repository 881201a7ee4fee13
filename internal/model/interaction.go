package model

import (
	"time"
)

// WishlistItem content saved by a user
type WishlistItem struct {
	ID        string       `json:"id" gorm:"primaryKey;size:36"`
	UserID    string       `json:"userId" gorm:"size:36;uniqueIndex:idx_wishlist_user_content"`
	ContentID string       `json:"contentId" gorm:"size:128;uniqueIndex:idx_wishlist_user_content"`
	AddedAt   time.Time    `json:"addedAt" gorm:"index"`
	Content   *ContentItem `json:"content,omitempty" gorm:"-"` // joined from the catalog
}

// Review user rating and text for a content item
type Review struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	UserID          string    `json:"userId" gorm:"size:36;index"`
	UserDisplayName string    `json:"userDisplayName,omitempty"`
	UserAvatarURL   string    `json:"userAvatarUrl,omitempty"`
	ContentID       string    `json:"contentId" gorm:"size:128;index"`
	Rating          int       `json:"rating"` // 1-5
	Text            string    `json:"text"`
	Version         int       `json:"version" gorm:"not null;default:1"`
	CreatedAt       time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
