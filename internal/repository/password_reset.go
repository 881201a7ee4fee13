package repository

import (
	"errors"
	"time"

	"github.com/user/gunvortv/internal/model"
	"gorm.io/gorm"
)

type PasswordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a token hash, replacing older tokens of the user
func (r *PasswordResetRepository) Create(userID, tokenHash string, expiresAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.PasswordReset{}).Error; err != nil {
			return err
		}
		return tx.Create(&model.PasswordReset{
			TokenHash: tokenHash,
			UserID:    userID,
			ExpiresAt: expiresAt,
			CreatedAt: time.Now(),
		}).Error
	})
}

// Consume deletes a live token and returns its user id, "" when unknown or expired
func (r *PasswordResetRepository) Consume(tokenHash string) (string, error) {
	var userID string
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var reset model.PasswordReset
		err := tx.Where("token_hash = ? AND expires_at > ?", tokenHash, time.Now()).First(&reset).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		res := tx.Where("token_hash = ?", tokenHash).Delete(&model.PasswordReset{})
		if res.Error != nil {
			return res.Error
		}
		// consumed concurrently
		if res.RowsAffected == 0 {
			return nil
		}
		userID = reset.UserID
		return nil
	})
	return userID, err
}

// DeleteExpired purges expired tokens
func (r *PasswordResetRepository) DeleteExpired() (int64, error) {
	res := r.db.Where("expires_at <= ?", time.Now()).Delete(&model.PasswordReset{})
	return res.RowsAffected, res.Error
}
