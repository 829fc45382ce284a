package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"
)

// IntentQueue is the settlement queue surface the dispatcher and the admin
// API consume. The gorm-backed repository satisfies it in postgres mode;
// MemoryIntentQueue satisfies it when the pool runs without a database.
type IntentQueue interface {
	ClaimPending(ctx context.Context, limit int) ([]models.TransferIntent, error)
	MarkDispatched(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastError string) error
	CountPending(ctx context.Context) (int64, error)
	Requeue(ctx context.Context, id string) error
	List(ctx context.Context, status string, page, pageSize int) ([]models.TransferIntent, int64, error)
	GetByID(ctx context.Context, id string) (*models.TransferIntent, error)
}

// MemoryIntentQueue keeps transfer intents in process memory. It doubles as
// the engine's intent sink (mixer.IntentStore), so withdrawals land here
// directly when storage mode is memory.
type MemoryIntentQueue struct {
	mu    sync.Mutex
	rows  map[string]*models.TransferIntent
	order []string
}

// NewMemoryIntentQueue creates an empty in-memory settlement queue
func NewMemoryIntentQueue() *MemoryIntentQueue {
	return &MemoryIntentQueue{
		rows: make(map[string]*models.TransferIntent),
	}
}

// Enqueue records the transfers of one withdrawal as pending intents
func (q *MemoryIntentQueue) Enqueue(ctx context.Context, transfers []mixer.Transfer) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now().UTC()
	for _, t := range transfers {
		row := &models.TransferIntent{
			ID:           t.ID,
			WithdrawalID: t.WithdrawalID,
			Kind:         string(t.Kind),
			Recipient:    t.Recipient,
			Amount:       t.Amount.String(),
			Status:       models.IntentStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		q.rows[t.ID] = row
		q.order = append(q.order, t.ID)
	}
	return nil
}

// ClaimPending returns up to limit pending intents, oldest first
func (q *MemoryIntentQueue) ClaimPending(ctx context.Context, limit int) ([]models.TransferIntent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.TransferIntent, 0, limit)
	for _, id := range q.order {
		if len(out) >= limit {
			break
		}
		row := q.rows[id]
		if row.Status == models.IntentStatusPending {
			out = append(out, *row)
		}
	}
	return out, nil
}

// MarkDispatched records a successful handoff to settlement
func (q *MemoryIntentQueue) MarkDispatched(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	row, ok := q.rows[id]
	if !ok {
		return fmt.Errorf("intent %s not found", id)
	}
	now := time.Now().UTC()
	row.Status = models.IntentStatusDispatched
	row.Attempts++
	row.LastError = ""
	row.DispatchedAt = &now
	row.UpdatedAt = now
	return nil
}

// MarkFailed records a failed dispatch attempt
func (q *MemoryIntentQueue) MarkFailed(ctx context.Context, id string, lastError string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	row, ok := q.rows[id]
	if !ok {
		return fmt.Errorf("intent %s not found", id)
	}
	row.Status = models.IntentStatusFailed
	row.Attempts++
	row.LastError = lastError
	row.UpdatedAt = time.Now().UTC()
	return nil
}

// CountPending returns the number of intents still waiting for dispatch
func (q *MemoryIntentQueue) CountPending(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var total int64
	for _, row := range q.rows {
		if row.Status == models.IntentStatusPending {
			total++
		}
	}
	return total, nil
}

// Requeue moves a failed intent back to pending for another dispatch
func (q *MemoryIntentQueue) Requeue(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	row, ok := q.rows[id]
	if !ok || row.Status != models.IntentStatusFailed {
		return fmt.Errorf("intent %s not found or not in failed state", id)
	}
	row.Status = models.IntentStatusPending
	row.LastError = ""
	row.UpdatedAt = time.Now().UTC()
	return nil
}

// List retrieves paginated intents, newest first, optionally filtered by
// status
func (q *MemoryIntentQueue) List(ctx context.Context, status string, page, pageSize int) ([]models.TransferIntent, int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	filtered := make([]models.TransferIntent, 0, len(q.order))
	for i := len(q.order) - 1; i >= 0; i-- {
		row := q.rows[q.order[i]]
		if status != "" && string(row.Status) != status {
			continue
		}
		filtered = append(filtered, *row)
	}

	total := int64(len(filtered))
	start := (page - 1) * pageSize
	if start >= len(filtered) {
		return []models.TransferIntent{}, total, nil
	}
	end := start + pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], total, nil
}

// GetByID retrieves an intent by ID
func (q *MemoryIntentQueue) GetByID(ctx context.Context, id string) (*models.TransferIntent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	row, ok := q.rows[id]
	if !ok {
		return nil, fmt.Errorf("intent %s not found", id)
	}
	copied := *row
	return &copied, nil
}
