package repository

import (
	"context"
	"errors"
	"time"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"

	"gorm.io/gorm"
)

// SpentTokenRepository defines the interface for SpentToken data access.
// It satisfies mixer.SpentSet.
type SpentTokenRepository interface {
	Contains(ctx context.Context, token string) (bool, error)
	Add(ctx context.Context, token string) error
}

// spentTokenRepository implements SpentTokenRepository
type spentTokenRepository struct {
	db *gorm.DB
}

// NewSpentTokenRepository creates a new SpentTokenRepository instance
func NewSpentTokenRepository(db *gorm.DB) SpentTokenRepository {
	return &spentTokenRepository{db: db}
}

// Contains reports whether a withdrawal token was consumed before
func (r *spentTokenRepository) Contains(ctx context.Context, token string) (bool, error) {
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&models.SpentToken{}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Add records a token as spent. The primary key makes a replay a
// constraint violation even if two withdrawals race past the Contains
// check.
func (r *spentTokenRepository) Add(ctx context.Context, token string) error {
	row := models.SpentToken{
		Token:   token,
		SpentAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return mixer.ErrTokenAlreadySpent
		}
		return err
	}
	return nil
}
