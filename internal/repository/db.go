package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/user/gunvortv/internal/logging"
	"github.com/user/gunvortv/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrRecordNotFound no row matched, or it belongs to another user
	ErrRecordNotFound = errors.New("record not found")
	// ErrEditConflict the row changed since it was read
	ErrEditConflict = errors.New("edit conflict")
	// ErrDuplicateEmail an account already uses the email
	ErrDuplicateEmail = errors.New("email already registered")
)

// InitDB opens the database and migrates the schema
func InitDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(logging.Printf{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if driver == "sqlite" {
		// one writer at a time
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.WishlistItem{}, &model.Review{}, &model.PasswordReset{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Repositories repository set
type Repositories struct {
	DB            *gorm.DB
	User          *UserRepository
	Wishlist      *WishlistRepository
	Review        *ReviewRepository
	PasswordReset *PasswordResetRepository
}

// NewRepositories creates the repository set
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:            db,
		User:          NewUserRepository(db),
		Wishlist:      NewWishlistRepository(db),
		Review:        NewReviewRepository(db),
		PasswordReset: NewPasswordResetRepository(db),
	}
}

// DeleteAccount removes the user's wishlist, reviews, reset tokens and the user
func (r *Repositories) DeleteAccount(userID string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := NewWishlistRepository(tx).DeleteByUser(userID); err != nil {
			return err
		}
		if err := NewReviewRepository(tx).DeleteByUser(userID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&model.PasswordReset{}).Error; err != nil {
			return err
		}
		return NewUserRepository(tx).Delete(userID)
	})
}
