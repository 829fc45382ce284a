package repository

import (
	"context"
	"errors"
	"time"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"

	"gorm.io/gorm"
)

// poolConfigID is the fixed primary key of the singleton config row.
const poolConfigID = 1

// PoolConfigRepository defines the interface for PoolConfig data access.
// It satisfies mixer.ConfigStore.
type PoolConfigRepository interface {
	Load(ctx context.Context) (*mixer.PoolState, error)
	Create(ctx context.Context, state mixer.PoolState) error
	UpdateFee(ctx context.Context, feeBasisPoints uint16, changedBy string) error
}

// poolConfigRepository implements PoolConfigRepository
type poolConfigRepository struct {
	db *gorm.DB
}

// NewPoolConfigRepository creates a new PoolConfigRepository instance
func NewPoolConfigRepository(db *gorm.DB) PoolConfigRepository {
	return &poolConfigRepository{db: db}
}

// Load reads the singleton pool state
func (r *poolConfigRepository) Load(ctx context.Context) (*mixer.PoolState, error) {
	var row models.PoolConfig
	err := r.db.WithContext(ctx).Where("id = ?", poolConfigID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mixer.ErrNotInitialized
		}
		return nil, err
	}
	return &mixer.PoolState{
		Owner:          row.Owner,
		FeeBasisPoints: row.FeeBasisPoints,
		InitializedAt:  row.InitializedAt.UTC(),
	}, nil
}

// Create writes the one-time initialization row. The fixed primary key
// turns a second initialization into a constraint violation.
func (r *poolConfigRepository) Create(ctx context.Context, state mixer.PoolState) error {
	row := models.PoolConfig{
		ID:             poolConfigID,
		Owner:          state.Owner,
		FeeBasisPoints: state.FeeBasisPoints,
		InitializedAt:  state.InitializedAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return mixer.ErrAlreadyInitialized
		}
		return err
	}
	return nil
}

// UpdateFee changes the fee rate and appends the audit row
func (r *poolConfigRepository) UpdateFee(ctx context.Context, feeBasisPoints uint16, changedBy string) error {
	var row models.PoolConfig
	if err := r.db.WithContext(ctx).Where("id = ?", poolConfigID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return mixer.ErrNotInitialized
		}
		return err
	}

	change := models.FeeChange{
		OldFeeBasisPoints: row.FeeBasisPoints,
		NewFeeBasisPoints: feeBasisPoints,
		ChangedBy:         changedBy,
	}
	if err := r.db.WithContext(ctx).Create(&change).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.PoolConfig{}).
		Where("id = ?", poolConfigID).
		Updates(map[string]interface{}{
			"fee_basis_points": feeBasisPoints,
			"updated_at":       time.Now().UTC(),
		}).Error
}
