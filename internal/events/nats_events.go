package events

import (
	"log"
	"sync"
	"time"

	"mixpool-backend/internal/clients"
	"mixpool-backend/internal/config"
)

// NATS stream and subject layout. Everything the pool announces lives
// under mixer.>.
const (
	StreamName         = "MIXER"
	SubjectDeposits    = "mixer.deposits"
	SubjectWithdrawals = "mixer.withdrawals"
	SubjectFees        = "mixer.fees"
	SubjectTransfers   = "mixer.transfers"
)

var (
	natsClient *clients.NATSClient
	natsOnce   sync.Once
)

// DepositEvent announces an accepted deposit
type DepositEvent struct {
	Commitment   string    `json:"commitment"`
	Denomination string    `json:"denomination"`
	DepositedAt  time.Time `json:"deposited_at"`
}

// WithdrawalEvent announces a completed withdrawal. It carries the spent
// token but never the commitment: the event bus must not link the two
// ends of a mix.
type WithdrawalEvent struct {
	WithdrawalID string    `json:"withdrawal_id"`
	Recipient    string    `json:"recipient"`
	Gross        string    `json:"gross"`
	Fee          string    `json:"fee"`
	Net          string    `json:"net"`
	SpentToken   string    `json:"spent_token"`
	CompletedAt  time.Time `json:"completed_at"`
}

// FeeUpdateEvent announces a fee rate change
type FeeUpdateEvent struct {
	OldFeeBasisPoints uint16    `json:"old_fee_basis_points"`
	NewFeeBasisPoints uint16    `json:"new_fee_basis_points"`
	ChangedBy         string    `json:"changed_by"`
	ChangedAt         time.Time `json:"changed_at"`
}

// TransferDispatchEvent announces the outcome of one settlement
// dispatch attempt
type TransferDispatchEvent struct {
	IntentID     string    `json:"intent_id"`
	WithdrawalID string    `json:"withdrawal_id"`
	Kind         string    `json:"kind"`
	Recipient    string    `json:"recipient"`
	Amount       string    `json:"amount"`
	Status       string    `json:"status"` // dispatched | failed
	OccurredAt   time.Time `json:"occurred_at"`
}

// InitNATSServices initializes the NATS publishing side
func InitNATSServices() error {
	var initErr error
	natsOnce.Do(func() {
		if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
			log.Println("NATS not configured, skipping initialization")
			return
		}

		client, err := clients.NewNATSClient(config.AppConfig.NATS.URL, StreamName)
		if err != nil {
			initErr = err
			return
		}

		natsClient = client
		log.Printf("✅ NATS client initialized successfully")
	})

	return initErr
}

// PublishDeposit publishes a deposit event. Publishing is best-effort:
// the deposit is already committed, a bus outage must not fail it.
func PublishDeposit(event *DepositEvent) {
	publish(SubjectDeposits, event)
}

// PublishWithdrawal publishes a withdrawal event
func PublishWithdrawal(event *WithdrawalEvent) {
	publish(SubjectWithdrawals, event)
}

// PublishFeeUpdate publishes a fee change event
func PublishFeeUpdate(event *FeeUpdateEvent) {
	publish(SubjectFees, event)
}

// PublishTransferDispatch publishes a settlement dispatch outcome
func PublishTransferDispatch(event *TransferDispatchEvent) {
	publish(SubjectTransfers, event)
}

func publish(subject string, payload interface{}) {
	if natsClient == nil {
		return
	}
	if err := natsClient.Publish(subject, payload); err != nil {
		log.Printf("❌ [NATS] Failed to publish on %s: %v", subject, err)
	}
}

// Close shuts the NATS connection down
func Close() {
	if natsClient != nil {
		natsClient.Close()
		natsClient = nil
	}
}
