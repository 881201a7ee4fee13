package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/gunvortv/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// NormalizeEmail lowercases and trims an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create registers an email/password account
func (r *UserRepository) Create(email, password, displayName string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(id string) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CheckPassword false for federated accounts without a password
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	if user.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

func (r *UserRepository) UpdateProfile(userID, displayName, photoURL string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"display_name": displayName,
		"photo_url":    photoURL,
		"updated_at":   time.Now(),
	}).Error
}

func (r *UserRepository) UpdatePassword(userID, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return r.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"password_hash": string(hash),
		"updated_at":    time.Now(),
	}).Error
}

// UpsertFederated finds the account for a verified external email or creates one.
// Missing display fields on an existing account are filled from the provider.
func (r *UserRepository) UpsertFederated(provider, email, displayName, photoURL string) (*model.User, error) {
	user, err := r.FindByEmail(email)
	if err != nil {
		return nil, err
	}

	if user != nil {
		updates := map[string]interface{}{}
		if user.DisplayName == "" && displayName != "" {
			updates["display_name"] = displayName
			user.DisplayName = displayName
		}
		if user.PhotoURL == "" && photoURL != "" {
			updates["photo_url"] = photoURL
			user.PhotoURL = photoURL
		}
		if len(updates) > 0 {
			if err := r.db.Model(&model.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
				return nil, err
			}
		}
		return user, nil
	}

	now := time.Now()
	user = &model.User{
		ID:          uuid.NewString(),
		Email:       NormalizeEmail(email),
		DisplayName: displayName,
		PhotoURL:    photoURL,
		Provider:    provider,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return r.FindByEmail(email)
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) Delete(userID string) error {
	return r.db.Where("id = ?", userID).Delete(&model.User{}).Error
}
