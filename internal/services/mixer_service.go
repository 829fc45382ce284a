package services

import (
	"context"
	"errors"
	"log"
	"math/big"
	"time"

	"mixpool-backend/internal/events"
	"mixpool-backend/internal/mixer"
)

// MixerService fronts the pool engine for the HTTP layer. The engine owns
// the state machine; this layer adds the side channels around it: metrics,
// NATS events, websocket pushes and the settlement wake-up. Side effects
// run only after the engine has committed, so observers never see an
// operation that later rolled back.
type MixerService struct {
	engine     *mixer.Engine
	dispatcher *SettlementDispatcher
	push       *WebSocketPushService
}

// NewMixerService creates the mixer service. dispatcher and push may be
// nil; the corresponding side effects are skipped.
func NewMixerService(engine *mixer.Engine, dispatcher *SettlementDispatcher, push *WebSocketPushService) *MixerService {
	return &MixerService{
		engine:     engine,
		dispatcher: dispatcher,
		push:       push,
	}
}

// Init performs the one-time pool initialization
func (s *MixerService) Init(ctx context.Context, owner string, feeBasisPoints uint16) error {
	if err := s.engine.Init(ctx, owner, feeBasisPoints); err != nil {
		RecordOperationFailure("init", failureReason(err))
		return err
	}

	UpdateFeeBasisPoints(feeBasisPoints)
	log.Printf("✅ Pool initialized: owner=%s, fee=%dbp", s.engine.Owner(ctx), feeBasisPoints)
	return nil
}

// Deposit records a commitment against an attached amount
func (s *MixerService) Deposit(ctx context.Context, commitment string, amount *big.Int) (*mixer.DepositReceipt, error) {
	receipt, err := s.engine.Deposit(ctx, commitment, amount)
	if err != nil {
		RecordOperationFailure("deposit", failureReason(err))
		return nil, err
	}

	RecordDeposit(receipt.Denomination.String())
	s.refreshActiveCommitments(ctx)

	events.PublishDeposit(&events.DepositEvent{
		Commitment:   receipt.Commitment,
		Denomination: receipt.Denomination.String(),
		DepositedAt:  receipt.DepositedAt,
	})
	if s.push != nil {
		s.push.BroadcastDeposit(DepositNotice{
			Commitment:   receipt.Commitment,
			Denomination: receipt.Denomination.String(),
			DepositedAt:  receipt.DepositedAt.Format(time.RFC3339),
		})
	}
	return receipt, nil
}

// Withdraw spends a deposit and queues the fee and payout transfers
func (s *MixerService) Withdraw(ctx context.Context, recipient string, auth mixer.Authorization) (*mixer.WithdrawReceipt, error) {
	receipt, err := s.engine.Withdraw(ctx, recipient, auth)
	if err != nil {
		RecordOperationFailure("withdraw", failureReason(err))
		return nil, err
	}

	RecordWithdrawal()
	s.refreshActiveCommitments(ctx)

	events.PublishWithdrawal(&events.WithdrawalEvent{
		WithdrawalID: receipt.WithdrawalID,
		Recipient:    receipt.Recipient,
		Gross:        receipt.Gross.String(),
		Fee:          receipt.Fee.String(),
		Net:          receipt.Net.String(),
		SpentToken:   receipt.SpentToken,
		CompletedAt:  time.Now().UTC(),
	})
	if s.push != nil {
		s.push.BroadcastWithdrawal(WithdrawalNotice{
			WithdrawalID: receipt.WithdrawalID,
			Recipient:    receipt.Recipient,
			Gross:        receipt.Gross.String(),
			Fee:          receipt.Fee.String(),
			Net:          receipt.Net.String(),
			CompletedAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	if s.dispatcher != nil {
		s.dispatcher.Wake()
	}
	return receipt, nil
}

// UpdateFee changes the fee rate. Owner only.
func (s *MixerService) UpdateFee(ctx context.Context, caller string, feeBasisPoints uint16) error {
	oldFee := s.engine.FeeBasisPoints(ctx)
	if err := s.engine.UpdateFee(ctx, caller, feeBasisPoints); err != nil {
		RecordOperationFailure("update_fee", failureReason(err))
		return err
	}

	UpdateFeeBasisPoints(feeBasisPoints)
	log.Printf("✅ Pool fee updated: %dbp → %dbp (by %s)", oldFee, feeBasisPoints, caller)

	events.PublishFeeUpdate(&events.FeeUpdateEvent{
		OldFeeBasisPoints: oldFee,
		NewFeeBasisPoints: feeBasisPoints,
		ChangedBy:         caller,
		ChangedAt:         time.Now().UTC(),
	})
	if s.push != nil {
		s.push.BroadcastFeeUpdate(FeeNotice{
			OldFeeBasisPoints: oldFee,
			NewFeeBasisPoints: feeBasisPoints,
			ChangedAt:         time.Now().UTC().Format(time.RFC3339),
		})
	}
	return nil
}

// Stats assembles the pool analytics snapshot
func (s *MixerService) Stats(ctx context.Context) (*mixer.PoolStats, error) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, err
	}
	UpdateActiveCommitments(stats.ActiveCommitments)
	return stats, nil
}

// CommitmentStatus returns the live deposit record for a commitment
func (s *MixerService) CommitmentStatus(ctx context.Context, id string) (*mixer.DepositRecord, error) {
	return s.engine.Commitment(ctx, id)
}

// TokenSpent reports whether a spend token has been consumed
func (s *MixerService) TokenSpent(ctx context.Context, token string) (bool, error) {
	return s.engine.TokenSpent(ctx, token)
}

// Initialized reports whether the pool has been set up
func (s *MixerService) Initialized(ctx context.Context) bool {
	return s.engine.Initialized(ctx)
}

// Owner returns the fee recipient address
func (s *MixerService) Owner(ctx context.Context) string {
	return s.engine.Owner(ctx)
}

// FeeBasisPoints returns the current fee rate
func (s *MixerService) FeeBasisPoints(ctx context.Context) uint16 {
	return s.engine.FeeBasisPoints(ctx)
}

// Denominations returns the accepted amount table
func (s *MixerService) Denominations() mixer.Denominations {
	return s.engine.Denominations()
}

// MinDelay returns the configured withdrawal time-lock
func (s *MixerService) MinDelay() time.Duration {
	return s.engine.MinDelay()
}

// Scheme returns the active authorization scheme
func (s *MixerService) Scheme() mixer.Scheme {
	return s.engine.Scheme()
}

func (s *MixerService) refreshActiveCommitments(ctx context.Context) {
	if active, err := s.engine.ActiveCommitments(ctx); err == nil {
		UpdateActiveCommitments(active)
	}
}

// failureReason maps pool errors onto the metric reason labels
func failureReason(err error) string {
	switch {
	case errors.Is(err, mixer.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, mixer.ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, mixer.ErrInvalidDenomination):
		return "invalid_denomination"
	case errors.Is(err, mixer.ErrDuplicateCommitment):
		return "duplicate_commitment"
	case errors.Is(err, mixer.ErrUnknownCommitment):
		return "unknown_commitment"
	case errors.Is(err, mixer.ErrInvalidAuthorization):
		return "invalid_authorization"
	case errors.Is(err, mixer.ErrTokenAlreadySpent):
		return "token_already_spent"
	case errors.Is(err, mixer.ErrWithdrawalTooEarly):
		return "withdrawal_too_early"
	case errors.Is(err, mixer.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, mixer.ErrFeeTooHigh):
		return "fee_too_high"
	default:
		return "internal"
	}
}
