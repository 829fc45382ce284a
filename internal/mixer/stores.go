// Package mixer implements the value-mixing pool core: a
// commitment/nullifier state machine with denomination validation,
// time-locked single-use withdrawals and fee splitting. Storage,
// transport and settlement are collaborators behind interfaces; the
// engine itself never talks to a database or a network.
package mixer

import (
	"context"
	"math/big"
	"time"
)

// DepositRecord is the live state behind a commitment: what was
// deposited and when. Created on deposit, deleted on withdrawal, never
// mutated in between.
type DepositRecord struct {
	Denomination *big.Int
	DepositedAt  time.Time
}

// PoolState is the pool's mutable configuration: the fee recipient and
// the fee rate. Written once at initialization, thereafter only the fee
// changes, and only by the owner.
type PoolState struct {
	Owner          string
	FeeBasisPoints uint16
	InitializedAt  time.Time
}

// DenominationCount is one row of the deposit counters: how many
// deposits a denomination has ever received. Counts are cumulative and
// never decrease.
type DenominationCount struct {
	Denomination *big.Int
	DepositCount uint64
}

// PoolStats is the read-only analytics snapshot.
type PoolStats struct {
	TotalDeposits     uint64
	TotalAmount       *big.Int
	ActiveCommitments int64
	Denominations     []DenominationStat
}

// DenominationStat is a per-denomination line in PoolStats.
type DenominationStat struct {
	Denomination *big.Int
	DepositCount uint64
	TotalAmount  *big.Int
}

// TransferKind distinguishes the two outbound legs of a withdrawal.
type TransferKind string

const (
	TransferKindFee    TransferKind = "fee"
	TransferKindPayout TransferKind = "payout"
)

// Transfer is a fire-and-forget settlement instruction issued by the
// engine. Issuance, not delivery confirmation, is the engine's
// completion signal; delivery is the dispatcher's problem.
type Transfer struct {
	ID           string
	WithdrawalID string
	Kind         TransferKind
	Recipient    string
	Amount       *big.Int
}

// CommitmentStore owns the deposit lifecycle, keyed by commitment id.
type CommitmentStore interface {
	// Insert creates the record, failing with ErrDuplicateCommitment
	// if a live record already holds the id.
	Insert(ctx context.Context, id string, rec DepositRecord) error
	// Get resolves a live record, failing with ErrUnknownCommitment.
	Get(ctx context.Context, id string) (*DepositRecord, error)
	// Remove deletes the record. Callers confirm presence via Get first.
	Remove(ctx context.Context, id string) error
	// Count returns the number of live records.
	Count(ctx context.Context) (int64, error)
}

// SpentSet is the append-only set of consumed authorization tokens.
// There is no removal: once a token is in, it stays in.
type SpentSet interface {
	Contains(ctx context.Context, token string) (bool, error)
	Add(ctx context.Context, token string) error
}

// StatStore keeps the per-denomination deposit counters.
type StatStore interface {
	Increment(ctx context.Context, denomination *big.Int) error
	Snapshot(ctx context.Context) ([]DenominationCount, error)
}

// ConfigStore persists the pool configuration.
type ConfigStore interface {
	// Load returns the state, failing with ErrNotInitialized when the
	// pool has never been initialized.
	Load(ctx context.Context) (*PoolState, error)
	// Create writes the initial state exactly once, failing with
	// ErrAlreadyInitialized on any later attempt.
	Create(ctx context.Context, state PoolState) error
	// UpdateFee changes the fee rate, recording who changed it.
	UpdateFee(ctx context.Context, feeBasisPoints uint16, changedBy string) error
}

// IntentStore records the transfers a withdrawal issues, in the same
// atomic scope as the state change that produced them.
type IntentStore interface {
	Enqueue(ctx context.Context, transfers []Transfer) error
}

// Stores bundles everything the engine mutates.
type Stores struct {
	Commitments CommitmentStore
	Spent       SpentSet
	Stats       StatStore
	Config      ConfigStore
	Intents     IntentStore
}

// TxRunner scopes an engine operation to one atomic unit: if fn
// returns an error, every store write inside it is undone.
type TxRunner interface {
	Atomic(ctx context.Context, fn func(s Stores) error) error
}

// StoreView is the read-only slice of the stores an authorization
// strategy consults while validating a withdrawal.
type StoreView interface {
	GetCommitment(ctx context.Context, id string) (*DepositRecord, error)
	IsSpent(ctx context.Context, token string) (bool, error)
}

type storeView struct {
	s Stores
}

func (v storeView) GetCommitment(ctx context.Context, id string) (*DepositRecord, error) {
	return v.s.Commitments.Get(ctx, id)
}

func (v storeView) IsSpent(ctx context.Context, token string) (bool, error) {
	return v.s.Spent.Contains(ctx, token)
}
