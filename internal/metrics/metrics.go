package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// database connection metrics
	// ============================================
	DBConnectionPoolSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_db_connection_pool_size",
		Help: "Database connection pool size",
	})

	DBConnectionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_db_connection_active",
		Help: "Number of active database connections",
	})

	DBConnectionIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_db_connection_idle",
		Help: "Number of idle database connections",
	})

	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixpool_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	// ============================================
	// pool operation metrics
	// ============================================
	DepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixpool_deposits_total",
			Help: "Total number of accepted deposits",
		},
		[]string{"denomination"},
	)

	WithdrawalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixpool_withdrawals_total",
		Help: "Total number of completed withdrawals",
	})

	OperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixpool_operation_failures_total",
			Help: "Total number of rejected pool operations",
		},
		[]string{"operation", "reason"},
	)

	ActiveCommitments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_active_commitments",
		Help: "Number of live commitments in the pool",
	})

	FeeBasisPoints = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_fee_basis_points",
		Help: "Current pool fee rate in basis points",
	})

	// ============================================
	// settlement dispatch metrics
	// ============================================
	TransfersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixpool_transfers_dispatched_total",
			Help: "Total number of transfer intents handed to settlement",
		},
		[]string{"kind"},
	)

	TransferDispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixpool_transfer_dispatch_failures_total",
		Help: "Total number of failed settlement dispatch attempts",
	})

	PendingIntents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_pending_intents",
		Help: "Number of transfer intents waiting for dispatch",
	})

	// ============================================
	// NATS connection and message metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixpool_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject"},
	)

	NATSPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixpool_nats_publish_failures_total",
			Help: "Total number of NATS publish failures",
		},
		[]string{"subject"},
	)

	// ============================================
	// websocket metrics
	// ============================================
	WSConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mixpool_ws_connections_active",
		Help: "Number of active websocket connections",
	})

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixpool_ws_messages_sent_total",
			Help: "Total number of websocket messages pushed",
		},
		[]string{"topic"},
	)
)
