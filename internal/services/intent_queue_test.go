package services

import (
	"context"
	"math/big"
	"testing"

	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enqueueTestTransfers(t *testing.T, q *MemoryIntentQueue, withdrawalID string, n int) []mixer.Transfer {
	t.Helper()

	transfers := make([]mixer.Transfer, 0, n)
	for i := 0; i < n; i++ {
		transfers = append(transfers, mixer.Transfer{
			ID:           withdrawalID + "-" + string(rune('a'+i)),
			WithdrawalID: withdrawalID,
			Kind:         mixer.TransferKindPayout,
			Recipient:    "0x6f3995e2e40ca58adcbd47a2edad192e43d98638",
			Amount:       big.NewInt(1000),
		})
	}
	require.NoError(t, q.Enqueue(context.Background(), transfers))
	return transfers
}

func TestMemoryIntentQueueLifecycle(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryIntentQueue()

	enqueueTestTransfers(t, q, "w1", 2)

	pending, err := q.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending)

	claimed, err := q.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "w1-a", claimed[0].ID, "claims should come back oldest first")
	assert.Equal(t, models.IntentStatusPending, claimed[0].Status)

	require.NoError(t, q.MarkDispatched(ctx, "w1-a"))
	require.NoError(t, q.MarkFailed(ctx, "w1-b", "connection refused"))

	pending, err = q.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)

	dispatched, err := q.GetByID(ctx, "w1-a")
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusDispatched, dispatched.Status)
	assert.Equal(t, 1, dispatched.Attempts)
	require.NotNil(t, dispatched.DispatchedAt)

	failed, err := q.GetByID(ctx, "w1-b")
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusFailed, failed.Status)
	assert.Equal(t, "connection refused", failed.LastError)
}

func TestMemoryIntentQueueClaimHonorsLimit(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryIntentQueue()
	enqueueTestTransfers(t, q, "w1", 5)

	claimed, err := q.ClaimPending(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)
}

func TestMemoryIntentQueueRequeue(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryIntentQueue()
	enqueueTestTransfers(t, q, "w1", 1)

	// Only failed intents can be requeued
	err := q.Requeue(ctx, "w1-a")
	require.Error(t, err)

	require.NoError(t, q.MarkFailed(ctx, "w1-a", "timeout"))
	require.NoError(t, q.Requeue(ctx, "w1-a"))

	row, err := q.GetByID(ctx, "w1-a")
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusPending, row.Status)
	assert.Empty(t, row.LastError)
	assert.Equal(t, 1, row.Attempts, "requeue keeps the attempt count")

	err = q.Requeue(ctx, "missing")
	require.Error(t, err)
}

func TestMemoryIntentQueueList(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryIntentQueue()
	enqueueTestTransfers(t, q, "w1", 3)
	require.NoError(t, q.MarkDispatched(ctx, "w1-b"))

	all, total, err := q.List(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "w1-c", all[0].ID, "list is newest first")

	pendingOnly, total, err := q.List(ctx, "pending", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, pendingOnly, 2)

	page2, total, err := q.List(ctx, "", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page2, 1)

	empty, total, err := q.List(ctx, "", 5, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Empty(t, empty)
}
