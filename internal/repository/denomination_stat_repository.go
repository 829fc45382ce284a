package repository

import (
	"context"
	"errors"
	"math/big"
	"time"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DenominationStatRepository defines the interface for DenominationStat
// data access. It satisfies mixer.StatStore.
type DenominationStatRepository interface {
	Increment(ctx context.Context, denomination *big.Int) error
	Snapshot(ctx context.Context) ([]mixer.DenominationCount, error)
}

// denominationStatRepository implements DenominationStatRepository
type denominationStatRepository struct {
	db *gorm.DB
}

// NewDenominationStatRepository creates a new DenominationStatRepository instance
func NewDenominationStatRepository(db *gorm.DB) DenominationStatRepository {
	return &denominationStatRepository{db: db}
}

// Increment bumps the cumulative deposit counter for a denomination,
// creating the row on first deposit.
func (r *denominationStatRepository) Increment(ctx context.Context, denomination *big.Int) error {
	row := models.DenominationStat{
		Denomination: denomination.String(),
		DepositCount: 1,
		UpdatedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "denomination"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"deposit_count": gorm.Expr("mixer_denomination_stats.deposit_count + 1"),
				"updated_at":    time.Now().UTC(),
			}),
		}).
		Create(&row).Error
}

// Snapshot returns every counter, smallest denomination first. The
// column is a decimal string, so ordering by length before value gives
// numeric order.
func (r *denominationStatRepository) Snapshot(ctx context.Context) ([]mixer.DenominationCount, error) {
	var rows []models.DenominationStat
	err := r.db.WithContext(ctx).
		Order("length(denomination), denomination").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]mixer.DenominationCount, 0, len(rows))
	for _, row := range rows {
		denomination, ok := new(big.Int).SetString(row.Denomination, 10)
		if !ok {
			return nil, errors.New("corrupt denomination stat row " + row.Denomination)
		}
		out = append(out, mixer.DenominationCount{
			Denomination: denomination,
			DepositCount: row.DepositCount,
		})
	}
	return out, nil
}
