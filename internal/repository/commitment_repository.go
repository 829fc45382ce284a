package repository

import (
	"context"
	"errors"
	"math/big"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"

	"gorm.io/gorm"
)

// CommitmentRepository defines the interface for Commitment data access.
// It satisfies mixer.CommitmentStore, translating database failures into
// the pool's error vocabulary.
type CommitmentRepository interface {
	Insert(ctx context.Context, id string, rec mixer.DepositRecord) error
	Get(ctx context.Context, id string) (*mixer.DepositRecord, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

// commitmentRepository implements CommitmentRepository
type commitmentRepository struct {
	db *gorm.DB
}

// NewCommitmentRepository creates a new CommitmentRepository instance
func NewCommitmentRepository(db *gorm.DB) CommitmentRepository {
	return &commitmentRepository{db: db}
}

// Insert records a fresh commitment. A primary-key collision means the
// commitment was deposited before.
func (r *commitmentRepository) Insert(ctx context.Context, id string, rec mixer.DepositRecord) error {
	row := models.Commitment{
		ID:           id,
		Denomination: rec.Denomination.String(),
		DepositedAt:  rec.DepositedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return mixer.ErrDuplicateCommitment
		}
		return err
	}
	return nil
}

// Get retrieves a live commitment by ID
func (r *commitmentRepository) Get(ctx context.Context, id string) (*mixer.DepositRecord, error) {
	var row models.Commitment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mixer.ErrUnknownCommitment
		}
		return nil, err
	}
	denomination, ok := new(big.Int).SetString(row.Denomination, 10)
	if !ok {
		return nil, errors.New("corrupt denomination on commitment " + id)
	}
	return &mixer.DepositRecord{
		Denomination: denomination,
		DepositedAt:  row.DepositedAt.UTC(),
	}, nil
}

// Remove deletes a commitment row after its withdrawal
func (r *commitmentRepository) Remove(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Commitment{}).Error
}

// Count returns the number of live commitments
func (r *commitmentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Commitment{}).Count(&total).Error
	return total, err
}
