package services

import (
	"context"
	"log"
	"sync"
	"time"

	"mixpool-backend/internal/clients"
	"mixpool-backend/internal/config"
	"mixpool-backend/internal/events"
	"mixpool-backend/internal/models"
)

// SettlementDispatcher drains the transfer intent queue into the
// settlement service. Dispatch is fire and forget: every intent gets one
// submission attempt per claim, and a failed intent stays in the queue as
// failed until an operator requeues it. Pool state never depends on the
// outcome; a withdrawal is final before its intents are dispatched.
type SettlementDispatcher struct {
	queue     IntentQueue
	client    *clients.SettlementClient
	push      *WebSocketPushService
	stopCh    chan struct{}
	wakeCh    chan struct{}
	wg        sync.WaitGroup
	interval  time.Duration
	batchSize int
}

// NewSettlementDispatcher creates the dispatcher. push may be nil.
// Interval and batch size come from the settlement config section when
// present.
func NewSettlementDispatcher(queue IntentQueue, client *clients.SettlementClient, push *WebSocketPushService) *SettlementDispatcher {
	interval := 15 * time.Second
	batchSize := 50
	if config.AppConfig != nil {
		if config.AppConfig.Settlement.Interval > 0 {
			interval = time.Duration(config.AppConfig.Settlement.Interval) * time.Second
		}
		if config.AppConfig.Settlement.BatchSize > 0 {
			batchSize = config.AppConfig.Settlement.BatchSize
		}
	}
	return &SettlementDispatcher{
		queue:     queue,
		client:    client,
		push:      push,
		stopCh:    make(chan struct{}),
		wakeCh:    make(chan struct{}, 1),
		interval:  interval,
		batchSize: batchSize,
	}
}

// Start launches the dispatch loop
func (s *SettlementDispatcher) Start() {
	log.Printf("🚀 Starting settlement dispatcher (interval: %v, batch: %d)", s.interval, s.batchSize)
	s.wg.Add(1)
	go s.run()
}

// Stop shuts the dispatch loop down and waits for the in-flight batch
func (s *SettlementDispatcher) Stop() {
	log.Println("🛑 Stopping settlement dispatcher...")
	close(s.stopCh)
	s.wg.Wait()
	log.Println("✅ Settlement dispatcher stopped")
}

// Wake nudges the loop to drain immediately instead of waiting for the
// next tick. Called after every withdrawal so payouts do not sit in the
// queue for a full interval.
func (s *SettlementDispatcher) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Retry moves a failed intent back to pending and wakes the loop
func (s *SettlementDispatcher) Retry(ctx context.Context, id string) error {
	if err := s.queue.Requeue(ctx, id); err != nil {
		return err
	}
	s.Wake()
	return nil
}

func (s *SettlementDispatcher) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Drain whatever survived the last shutdown before the first tick
	s.drainQueue()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.drainQueue()
		case <-s.wakeCh:
			s.drainQueue()
		}
	}
}

// drainQueue claims pending intents in batches until the queue is empty
// or a claim comes back short
func (s *SettlementDispatcher) drainQueue() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		intents, err := s.queue.ClaimPending(ctx, s.batchSize)
		cancel()
		if err != nil {
			log.Printf("❌ Failed to claim pending transfer intents: %v", err)
			return
		}
		if len(intents) == 0 {
			s.refreshQueueGauge()
			return
		}

		for i := range intents {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.dispatchIntent(&intents[i])
		}

		if len(intents) < s.batchSize {
			s.refreshQueueGauge()
			return
		}
	}
}

// dispatchIntent submits one intent to the settlement service and records
// the outcome
func (s *SettlementDispatcher) dispatchIntent(intent *models.TransferIntent) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.client.SubmitTransfer(ctx, &clients.TransferRequest{
		ID:           intent.ID,
		WithdrawalID: intent.WithdrawalID,
		Kind:         intent.Kind,
		Recipient:    intent.Recipient,
		Amount:       intent.Amount,
	})

	if err != nil {
		log.Printf("⚠️ Transfer intent %s dispatch failed (attempt %d): %v", intent.ID, intent.Attempts+1, err)
		if markErr := s.queue.MarkFailed(ctx, intent.ID, err.Error()); markErr != nil {
			log.Printf("❌ Failed to mark intent %s as failed: %v", intent.ID, markErr)
		}
		RecordTransferDispatchFailure()
		s.publishOutcome(intent, "failed")
		return
	}

	if markErr := s.queue.MarkDispatched(ctx, intent.ID); markErr != nil {
		log.Printf("❌ Failed to mark intent %s as dispatched: %v", intent.ID, markErr)
	}
	RecordTransferDispatched(intent.Kind)
	s.publishOutcome(intent, "dispatched")
}

func (s *SettlementDispatcher) publishOutcome(intent *models.TransferIntent, status string) {
	now := time.Now().UTC()
	events.PublishTransferDispatch(&events.TransferDispatchEvent{
		IntentID:     intent.ID,
		WithdrawalID: intent.WithdrawalID,
		Kind:         intent.Kind,
		Recipient:    intent.Recipient,
		Amount:       intent.Amount,
		Status:       status,
		OccurredAt:   now,
	})
	if s.push != nil {
		s.push.BroadcastTransferUpdate(TransferNotice{
			IntentID:     intent.ID,
			WithdrawalID: intent.WithdrawalID,
			Kind:         intent.Kind,
			Status:       status,
			OccurredAt:   now.Format(time.RFC3339),
		})
	}
}

func (s *SettlementDispatcher) refreshQueueGauge() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pending, err := s.queue.CountPending(ctx); err == nil {
		UpdatePendingIntents(pending)
	}
}
