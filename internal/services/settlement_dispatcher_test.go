package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mixpool-backend/internal/clients"
	"mixpool-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettlementDispatcherDispatchesPendingIntents(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)

		var req clients.TransferRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Recipient)
		assert.NotEmpty(t, req.Amount)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(clients.TransferResponse{Accepted: true, Reference: "ref-" + req.ID})
	}))
	defer server.Close()

	q := NewMemoryIntentQueue()
	enqueueTestTransfers(t, q, "w1", 2)

	d := NewSettlementDispatcher(q, clients.NewSettlementClient(server.URL), nil)
	d.Start()
	defer d.Stop()

	require.Eventually(t, func() bool {
		pending, err := q.CountPending(context.Background())
		return err == nil && pending == 0
	}, 3*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		row, err := q.GetByID(context.Background(), "w1-b")
		return err == nil && row.Status == models.IntentStatusDispatched
	}, 3*time.Second, 10*time.Millisecond)

	row, err := q.GetByID(context.Background(), "w1-a")
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusDispatched, row.Status)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, int64(2), requests.Load())
}

func TestSettlementDispatcherMarksFailuresAndRetries(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "settlement down", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(clients.TransferResponse{Accepted: true})
	}))
	defer server.Close()

	q := NewMemoryIntentQueue()
	enqueueTestTransfers(t, q, "w1", 1)

	d := NewSettlementDispatcher(q, clients.NewSettlementClient(server.URL), nil)
	d.Start()
	defer d.Stop()

	// First attempt fails, the intent stays in the queue as failed
	require.Eventually(t, func() bool {
		row, err := q.GetByID(context.Background(), "w1-a")
		return err == nil && row.Status == models.IntentStatusFailed
	}, 3*time.Second, 10*time.Millisecond)

	row, err := q.GetByID(context.Background(), "w1-a")
	require.NoError(t, err)
	assert.Equal(t, 1, row.Attempts)
	assert.NotEmpty(t, row.LastError)

	// Operator retry after the settlement service recovers
	healthy.Store(true)
	require.NoError(t, d.Retry(context.Background(), "w1-a"))

	require.Eventually(t, func() bool {
		row, err := q.GetByID(context.Background(), "w1-a")
		return err == nil && row.Status == models.IntentStatusDispatched
	}, 3*time.Second, 10*time.Millisecond)

	row, err = q.GetByID(context.Background(), "w1-a")
	require.NoError(t, err)
	assert.Equal(t, 2, row.Attempts)
	assert.Empty(t, row.LastError)
}

func TestSettlementDispatcherRejectsBogusRetry(t *testing.T) {
	q := NewMemoryIntentQueue()
	d := NewSettlementDispatcher(q, clients.NewSettlementClient("http://localhost:0"), nil)

	err := d.Retry(context.Background(), "missing")
	require.Error(t, err)
}
