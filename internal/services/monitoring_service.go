package services

import (
	"context"
	"log"
	"sync"
	"time"

	"mixpool-backend/internal/metrics"

	"gorm.io/gorm"
)

// MonitoringService periodically refreshes the Prometheus gauges that
// describe runtime health: database pool state and settlement queue depth.
type MonitoringService struct {
	db                 *gorm.DB
	queue              IntentQueue
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	queueCheckInterval time.Duration
}

// NewMonitoringService creates the monitoring service. db may be nil when
// the pool runs on the in-memory store; queue may be nil when there is no
// settlement queue to sample.
func NewMonitoringService(db *gorm.DB, queue IntentQueue) *MonitoringService {
	return &MonitoringService{
		db:                 db,
		queue:              queue,
		stopCh:             make(chan struct{}),
		queueCheckInterval: 30 * time.Second,
	}
}

// Start launches the monitoring goroutines
func (m *MonitoringService) Start() {
	log.Println("🚀 Starting monitoring service...")

	if m.db != nil {
		m.wg.Add(1)
		go m.monitorDatabaseConnection()
	}

	if m.queue != nil {
		m.wg.Add(1)
		go m.monitorQueueDepth()
	}

	log.Println("✅ Monitoring service started")
}

// Stop shuts the monitoring goroutines down and waits for them
func (m *MonitoringService) Stop() {
	log.Println("🛑 Stopping monitoring service...")
	close(m.stopCh)
	m.wg.Wait()
	log.Println("✅ Monitoring service stopped")
}

// monitorDatabaseConnection samples the connection pool every 10 seconds
func (m *MonitoringService) monitorDatabaseConnection() {
	defer m.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.updateDatabaseMetrics()
		}
	}
}

// updateDatabaseMetrics refreshes the database pool gauges
func (m *MonitoringService) updateDatabaseMetrics() {
	sqlDB, err := m.db.DB()
	if err != nil {
		metrics.DBConnectionStatus.Set(0)
		return
	}

	stats := sqlDB.Stats()
	metrics.DBConnectionPoolSize.Set(float64(stats.MaxOpenConnections))
	metrics.DBConnectionActive.Set(float64(stats.OpenConnections - stats.Idle))
	metrics.DBConnectionIdle.Set(float64(stats.Idle))

	if err := sqlDB.Ping(); err != nil {
		metrics.DBConnectionStatus.Set(0)
	} else {
		metrics.DBConnectionStatus.Set(1)
	}
}

// monitorQueueDepth samples the settlement queue backlog
func (m *MonitoringService) monitorQueueDepth() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.queueCheckInterval)
	defer ticker.Stop()

	// Sample once at startup so the gauge is live before the first tick
	m.updateQueueDepth()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.updateQueueDepth()
		}
	}
}

// updateQueueDepth refreshes the pending intents gauge
func (m *MonitoringService) updateQueueDepth() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pending, err := m.queue.CountPending(ctx)
	if err != nil {
		log.Printf("⚠️ Failed to count pending transfer intents: %v", err)
		return
	}
	metrics.PendingIntents.Set(float64(pending))
}

// RecordDeposit counts an accepted deposit (called by the mixer service)
func RecordDeposit(denomination string) {
	metrics.DepositsTotal.WithLabelValues(denomination).Inc()
}

// RecordWithdrawal counts a completed withdrawal (called by the mixer service)
func RecordWithdrawal() {
	metrics.WithdrawalsTotal.Inc()
}

// RecordOperationFailure counts a rejected pool operation (called by the mixer service)
func RecordOperationFailure(operation string, reason string) {
	metrics.OperationFailures.WithLabelValues(operation, reason).Inc()
}

// UpdateActiveCommitments refreshes the live commitment gauge (called by the mixer service)
func UpdateActiveCommitments(count int64) {
	metrics.ActiveCommitments.Set(float64(count))
}

// UpdateFeeBasisPoints refreshes the configured fee gauge (called by the mixer service)
func UpdateFeeBasisPoints(feeBasisPoints uint16) {
	metrics.FeeBasisPoints.Set(float64(feeBasisPoints))
}

// RecordTransferDispatched counts a transfer handed to settlement (called by the dispatcher)
func RecordTransferDispatched(kind string) {
	metrics.TransfersDispatched.WithLabelValues(kind).Inc()
}

// RecordTransferDispatchFailure counts a failed settlement handoff (called by the dispatcher)
func RecordTransferDispatchFailure() {
	metrics.TransferDispatchFailures.Inc()
}

// UpdatePendingIntents refreshes the queue depth gauge (called by the dispatcher)
func UpdatePendingIntents(count int64) {
	metrics.PendingIntents.Set(float64(count))
}

// RecordWSMessageSent counts a delivered push message (called by the push service)
func RecordWSMessageSent(topic string) {
	metrics.WSMessagesSent.WithLabelValues(topic).Inc()
}

// UpdateWSConnections refreshes the live connection gauge (called by the push service)
func UpdateWSConnections(count int) {
	metrics.WSConnectionsActive.Set(float64(count))
}
