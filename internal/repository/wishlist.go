package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/gunvortv/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WishlistRepository struct {
	db *gorm.DB
}

func NewWishlistRepository(db *gorm.DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Add saves contentID for the user. An existing entry is returned unchanged with created=false.
// ErrRecordNotFound means a concurrent add kept winning and was removed again.
func (r *WishlistRepository) Add(userID, contentID string) (*model.WishlistItem, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := r.find(userID, contentID)
		if err != nil || existing != nil {
			return existing, false, err
		}

		item := &model.WishlistItem{
			ID:        uuid.NewString(),
			UserID:    userID,
			ContentID: contentID,
			AddedAt:   time.Now(),
		}
		res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(item)
		if res.Error != nil {
			return nil, false, res.Error
		}
		if res.RowsAffected > 0 {
			return item, true, nil
		}
		// lost a race with a concurrent add
	}
	return nil, false, ErrRecordNotFound
}

func (r *WishlistRepository) find(userID, contentID string) (*model.WishlistItem, error) {
	var item model.WishlistItem
	err := r.db.Where("user_id = ? AND content_id = ?", userID, contentID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Remove deletes an entry owned by the user
func (r *WishlistRepository) Remove(userID, id string) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// RemoveByContent deletes the user's entry for contentID
func (r *WishlistRepository) RemoveByContent(userID, contentID string) error {
	res := r.db.Where("user_id = ? AND content_id = ?", userID, contentID).Delete(&model.WishlistItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// ListByUser newest first
func (r *WishlistRepository) ListByUser(userID string) ([]*model.WishlistItem, error) {
	var items []*model.WishlistItem
	err := r.db.Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&items).Error
	return items, err
}

func (r *WishlistRepository) IsInWishlist(userID, contentID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.WishlistItem{}).Where("user_id = ? AND content_id = ?", userID, contentID).Count(&count).Error
	return count > 0, err
}

func (r *WishlistRepository) DeleteByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&model.WishlistItem{}).Error
}
