package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/user/gunvortv/internal/model"
	"gorm.io/gorm"
)

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create assigns id, version and timestamps
func (r *ReviewRepository) Create(review *model.Review) error {
	now := time.Now()
	review.ID = uuid.NewString()
	review.Version = 1
	review.CreatedAt = now
	review.UpdatedAt = now
	return r.db.Create(review).Error
}

func (r *ReviewRepository) FindByID(id string) (*model.Review, error) {
	var review model.Review
	err := r.db.Where("id = ?", id).First(&review).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// ListByContent newest first
func (r *ReviewRepository) ListByContent(contentID string) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.Where("content_id = ?", contentID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// ListByUser newest first
func (r *ReviewRepository) ListByUser(userID string) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

// Update writes rating and text if review.Version is still current, then bumps it.
// Returns ErrEditConflict when the row changed or is no longer the user's.
func (r *ReviewRepository) Update(review *model.Review) error {
	now := time.Now()
	res := r.db.Model(&model.Review{}).
		Where("id = ? AND user_id = ? AND version = ?", review.ID, review.UserID, review.Version).
		Updates(map[string]interface{}{
			"rating":     review.Rating,
			"text":       review.Text,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEditConflict
	}
	review.Version++
	review.UpdatedAt = now
	return nil
}

// Delete removes a review owned by the user
func (r *ReviewRepository) Delete(id, userID string) error {
	res := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&model.Review{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *ReviewRepository) DeleteByUser(userID string) error {
	return r.db.Where("user_id = ?", userID).Delete(&model.Review{}).Error
}

// RefreshAuthor copies the user's current display fields onto their reviews
func (r *ReviewRepository) RefreshAuthor(userID, displayName, avatarURL string) error {
	return r.db.Model(&model.Review{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"user_display_name": displayName,
			"user_avatar_url":   avatarURL,
		}).Error
}
