package mixer

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMinDelay is the stock time-lock between deposit and eligible
// withdrawal.
const DefaultMinDelay = 24 * time.Hour

// EngineConfig wires an Engine.
type EngineConfig struct {
	Denominations Denominations
	MinDelay      time.Duration
	Verifier      Verifier
	Clock         Clock
	Runner        TxRunner
	Stores        Stores
}

// Engine is the pool state machine. Per commitment the lifecycle is
// NONE -> DEPOSITED -> WITHDRAWN, with WITHDRAWN terminal (the record
// is deleted, the spend token stays forever). A mutex serializes
// operations: every call runs to completion against a consistent view,
// which is what makes the check-then-insert pairs on the spent set and
// the commitment store safe.
type Engine struct {
	mu            sync.Mutex
	denominations Denominations
	minDelay      time.Duration
	verifier      Verifier
	clock         Clock
	runner        TxRunner
	stores        Stores
	state         *PoolState
}

// NewEngine builds an engine. MinDelay and Clock default when zero.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock()
	}
	return &Engine{
		denominations: cfg.Denominations,
		minDelay:      cfg.MinDelay,
		verifier:      cfg.Verifier,
		clock:         cfg.Clock,
		runner:        cfg.Runner,
		stores:        cfg.Stores,
	}
}

// DepositReceipt reports a recorded deposit.
type DepositReceipt struct {
	Commitment   string
	Denomination *big.Int
	DepositedAt  time.Time
}

// WithdrawReceipt reports a completed withdrawal, including the
// transfers issued to settlement.
type WithdrawReceipt struct {
	WithdrawalID string
	Recipient    string
	Gross        *big.Int
	Fee          *big.Int
	Net          *big.Int
	SpentToken   string
	Transfers    []Transfer
}

// Init performs the one-time pool initialization.
func (e *Engine) Init(ctx context.Context, owner string, feeBasisPoints uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != nil {
		return ErrAlreadyInitialized
	}
	if err := ValidateFeeBasisPoints(feeBasisPoints); err != nil {
		return err
	}

	state := PoolState{
		Owner:          strings.ToLower(owner),
		FeeBasisPoints: feeBasisPoints,
		InitializedAt:  e.clock.Now(),
	}
	err := e.runner.Atomic(ctx, func(s Stores) error {
		return s.Config.Create(ctx, state)
	})
	if err != nil {
		return err
	}
	e.state = &state
	return nil
}

// Restore loads previously initialized pool state, if any. Called once
// at startup; ErrNotInitialized just means Init has not happened yet.
func (e *Engine) Restore(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureState(ctx)
}

// Deposit records a commitment against an attached amount. The amount
// must be an accepted denomination and the commitment must be fresh.
func (e *Engine) Deposit(ctx context.Context, commitment string, amount *big.Int) (*DepositReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return nil, err
	}
	if !e.denominations.Contains(amount) {
		return nil, ErrInvalidDenomination
	}

	rec := DepositRecord{
		Denomination: new(big.Int).Set(amount),
		DepositedAt:  e.clock.Now(),
	}
	err := e.runner.Atomic(ctx, func(s Stores) error {
		if err := s.Commitments.Insert(ctx, commitment, rec); err != nil {
			return err
		}
		return s.Stats.Increment(ctx, rec.Denomination)
	})
	if err != nil {
		return nil, err
	}

	return &DepositReceipt{
		Commitment:   commitment,
		Denomination: rec.Denomination,
		DepositedAt:  rec.DepositedAt,
	}, nil
}

// Withdraw spends a deposit: the verifier validates the credential, the
// time-lock is enforced, the spend token is recorded, the commitment is
// cleared, and the fee/payout transfers are issued. All of it commits
// or none of it does.
func (e *Engine) Withdraw(ctx context.Context, recipient string, auth Authorization) (*WithdrawReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return nil, err
	}

	var receipt *WithdrawReceipt
	err := e.runner.Atomic(ctx, func(s Stores) error {
		grant, err := e.verifier.Authorize(ctx, auth, storeView{s})
		if err != nil {
			return err
		}

		if e.clock.Now().Sub(grant.Record.DepositedAt) < e.minDelay {
			return ErrWithdrawalTooEarly
		}

		if err := s.Spent.Add(ctx, grant.SpentToken); err != nil {
			return err
		}
		if err := s.Commitments.Remove(ctx, grant.CommitmentID); err != nil {
			return err
		}

		gross := grant.Record.Denomination
		fee, net := Split(gross, e.state.FeeBasisPoints)

		withdrawalID := uuid.New().String()
		transfers := make([]Transfer, 0, 2)
		if fee.Sign() > 0 {
			transfers = append(transfers, Transfer{
				ID:           uuid.New().String(),
				WithdrawalID: withdrawalID,
				Kind:         TransferKindFee,
				Recipient:    e.state.Owner,
				Amount:       fee,
			})
		}
		transfers = append(transfers, Transfer{
			ID:           uuid.New().String(),
			WithdrawalID: withdrawalID,
			Kind:         TransferKindPayout,
			Recipient:    recipient,
			Amount:       net,
		})
		if err := s.Intents.Enqueue(ctx, transfers); err != nil {
			return err
		}

		receipt = &WithdrawReceipt{
			WithdrawalID: withdrawalID,
			Recipient:    recipient,
			Gross:        new(big.Int).Set(gross),
			Fee:          fee,
			Net:          net,
			SpentToken:   grant.SpentToken,
			Transfers:    transfers,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// UpdateFee changes the fee rate. Owner only; the cap still applies.
func (e *Engine) UpdateFee(ctx context.Context, caller string, feeBasisPoints uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return err
	}
	if !strings.EqualFold(caller, e.state.Owner) {
		return ErrUnauthorized
	}
	if err := ValidateFeeBasisPoints(feeBasisPoints); err != nil {
		return err
	}

	err := e.runner.Atomic(ctx, func(s Stores) error {
		return s.Config.UpdateFee(ctx, feeBasisPoints, e.state.Owner)
	})
	if err != nil {
		return err
	}
	e.state.FeeBasisPoints = feeBasisPoints
	return nil
}

// Stats assembles the analytics snapshot: cumulative deposit counts and
// amounts per denomination in table order, plus the live commitment
// count.
func (e *Engine) Stats(ctx context.Context) (*PoolStats, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return nil, err
	}

	counts, err := e.stores.Stats.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	byDenom := make(map[string]uint64, len(counts))
	for _, c := range counts {
		byDenom[c.Denomination.String()] = c.DepositCount
	}

	stats := &PoolStats{
		TotalAmount:   new(big.Int),
		Denominations: make([]DenominationStat, 0, e.denominations.Len()),
	}
	for _, d := range e.denominations.List() {
		count := byDenom[d.String()]
		total := new(big.Int).Mul(d, new(big.Int).SetUint64(count))
		stats.TotalDeposits += count
		stats.TotalAmount.Add(stats.TotalAmount, total)
		stats.Denominations = append(stats.Denominations, DenominationStat{
			Denomination: new(big.Int).Set(d),
			DepositCount: count,
			TotalAmount:  total,
		})
	}

	active, err := e.stores.Commitments.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats.ActiveCommitments = active
	return stats, nil
}

// Commitment returns the live deposit record for a commitment, or
// ErrUnknownCommitment if it was never deposited or is already spent.
func (e *Engine) Commitment(ctx context.Context, id string) (*DepositRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return nil, err
	}
	return e.stores.Commitments.Get(ctx, id)
}

// TokenSpent reports whether a spend token has already been consumed.
func (e *Engine) TokenSpent(ctx context.Context, token string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return false, err
	}
	return e.stores.Spent.Contains(ctx, token)
}

// ActiveCommitments returns the number of live deposits.
func (e *Engine) ActiveCommitments(ctx context.Context) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureState(ctx); err != nil {
		return 0, err
	}
	return e.stores.Commitments.Count(ctx)
}

// Initialized reports whether the pool has been set up.
func (e *Engine) Initialized(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureState(ctx) == nil
}

// Owner returns the fee recipient, or "" before initialization.
func (e *Engine) Owner(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ensureState(ctx) != nil {
		return ""
	}
	return e.state.Owner
}

// FeeBasisPoints returns the current fee rate, or 0 before
// initialization.
func (e *Engine) FeeBasisPoints(ctx context.Context) uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ensureState(ctx) != nil {
		return 0
	}
	return e.state.FeeBasisPoints
}

// Denominations returns the accepted amount table.
func (e *Engine) Denominations() Denominations { return e.denominations }

// MinDelay returns the configured time-lock.
func (e *Engine) MinDelay() time.Duration { return e.minDelay }

// Scheme returns the active authorization scheme.
func (e *Engine) Scheme() Scheme { return e.verifier.Scheme() }

// ensureState loads the persisted pool state on first use. Callers hold
// the mutex.
func (e *Engine) ensureState(ctx context.Context) error {
	if e.state != nil {
		return nil
	}
	state, err := e.stores.Config.Load(ctx)
	if err != nil {
		return err
	}
	e.state = state
	return nil
}
