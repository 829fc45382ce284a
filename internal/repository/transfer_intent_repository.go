package repository

import (
	"context"
	"fmt"
	"time"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"

	"gorm.io/gorm"
)

// TransferIntentRepository defines the interface for TransferIntent data
// access. Enqueue satisfies mixer.IntentStore; the rest is the queue
// surface the settlement dispatcher and the admin API work.
type TransferIntentRepository interface {
	// Queue input (runs inside the withdrawal transaction)
	Enqueue(ctx context.Context, transfers []mixer.Transfer) error

	// Dispatcher surface
	ClaimPending(ctx context.Context, limit int) ([]models.TransferIntent, error)
	MarkDispatched(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	CountPending(ctx context.Context) (int64, error)

	// Admin surface
	Requeue(ctx context.Context, id string) error
	List(ctx context.Context, status string, page, pageSize int) ([]models.TransferIntent, int64, error)
	GetByID(ctx context.Context, id string) (*models.TransferIntent, error)
}

// transferIntentRepository implements TransferIntentRepository
type transferIntentRepository struct {
	db *gorm.DB
}

// NewTransferIntentRepository creates a new TransferIntentRepository instance
func NewTransferIntentRepository(db *gorm.DB) TransferIntentRepository {
	return &transferIntentRepository{db: db}
}

// Enqueue records the transfers of one withdrawal as pending intents
func (r *transferIntentRepository) Enqueue(ctx context.Context, transfers []mixer.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	rows := make([]models.TransferIntent, 0, len(transfers))
	for _, t := range transfers {
		rows = append(rows, models.TransferIntent{
			ID:           t.ID,
			WithdrawalID: t.WithdrawalID,
			Kind:         string(t.Kind),
			Recipient:    t.Recipient,
			Amount:       t.Amount.String(),
			Status:       models.IntentStatusPending,
		})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ClaimPending returns up to limit pending intents, oldest first
func (r *transferIntentRepository) ClaimPending(ctx context.Context, limit int) ([]models.TransferIntent, error) {
	var rows []models.TransferIntent
	err := r.db.WithContext(ctx).
		Where("status = ?", models.IntentStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// MarkDispatched records a successful handoff to settlement
func (r *transferIntentRepository) MarkDispatched(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Model(&models.TransferIntent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.IntentStatusDispatched,
			"attempts":      gorm.Expr("attempts + 1"),
			"last_error":    "",
			"dispatched_at": &now,
		}).Error
}

// CountPending returns the number of intents still waiting for dispatch
func (r *transferIntentRepository) CountPending(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.TransferIntent{}).
		Where("status = ?", models.IntentStatusPending).
		Count(&total).Error
	return total, err
}

// MarkFailed records a failed dispatch attempt
func (r *transferIntentRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	return r.db.WithContext(ctx).
		Model(&models.TransferIntent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.IntentStatusFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": lastError,
		}).Error
}

// Requeue moves a failed intent back to pending for another dispatch
func (r *transferIntentRepository) Requeue(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&models.TransferIntent{}).
		Where("id = ? AND status = ?", id, models.IntentStatusFailed).
		Updates(map[string]interface{}{
			"status":     models.IntentStatusPending,
			"last_error": "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("intent %s not found or not in failed state", id)
	}
	return nil
}

// List retrieves paginated intents, newest first, optionally filtered by
// status
func (r *transferIntentRepository) List(ctx context.Context, status string, page, pageSize int) ([]models.TransferIntent, int64, error) {
	var rows []models.TransferIntent
	var total int64

	query := r.db.WithContext(ctx).Model(&models.TransferIntent{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	// Count total
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Get paginated results
	offset := (page - 1) * pageSize
	err := query.
		Offset(offset).
		Limit(pageSize).
		Order("created_at DESC").
		Find(&rows).Error

	return rows, total, err
}

// GetByID retrieves an intent by ID
func (r *transferIntentRepository) GetByID(ctx context.Context, id string) (*models.TransferIntent, error) {
	var row models.TransferIntent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
