// Mixing pool database models
package models

import (
	"time"
)

// ============ pool ledger tables ============

// Commitment is a live deposit. The row exists from deposit until the
// matching withdrawal deletes it; there is no status column because a
// withdrawn commitment leaves no trace beyond its spent token.
type Commitment struct {
	ID           string    `json:"id" gorm:"primaryKey;size:128"`   // opaque commitment string
	Denomination string    `json:"denomination" gorm:"size:78;not null"` // uint256 as decimal string
	DepositedAt  time.Time `json:"deposited_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Commitment
func (Commitment) TableName() string {
	return "mixer_commitments"
}

// SpentToken is a consumed withdrawal authorization. Rows are only ever
// inserted; the set growing forever is what makes every credential
// single-use.
type SpentToken struct {
	Token   string    `json:"token" gorm:"primaryKey;size:128"`
	SpentAt time.Time `json:"spent_at" gorm:"not null"`
}

// TableName specifies the table name for SpentToken
func (SpentToken) TableName() string {
	return "mixer_spent_tokens"
}

// DenominationStat is the cumulative deposit counter for one
// denomination. Withdrawals never decrement it.
type DenominationStat struct {
	Denomination string    `json:"denomination" gorm:"primaryKey;size:78"` // uint256 as decimal string
	DepositCount uint64    `json:"deposit_count" gorm:"not null;default:0"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for DenominationStat
func (DenominationStat) TableName() string {
	return "mixer_denomination_stats"
}

// PoolConfig is the singleton pool state row (always id = 1).
type PoolConfig struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Owner          string    `json:"owner" gorm:"size:64;not null"` // fee recipient address, lowercase
	FeeBasisPoints uint16    `json:"fee_basis_points" gorm:"not null"`
	InitializedAt  time.Time `json:"initialized_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for PoolConfig
func (PoolConfig) TableName() string {
	return "mixer_pool_config"
}

// FeeChange is the audit trail row written on every fee update.
type FeeChange struct {
	ID                uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	OldFeeBasisPoints uint16    `json:"old_fee_basis_points" gorm:"not null"`
	NewFeeBasisPoints uint16    `json:"new_fee_basis_points" gorm:"not null"`
	ChangedBy         string    `json:"changed_by" gorm:"size:64;not null"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName specifies the table name for FeeChange
func (FeeChange) TableName() string {
	return "mixer_fee_changes"
}

// ============ settlement queue ============

// IntentStatus is the transfer intent dispatch status enum
type IntentStatus string

const (
	IntentStatusPending    IntentStatus = "pending"    // queued, not yet handed to settlement
	IntentStatusDispatched IntentStatus = "dispatched" // accepted by the settlement service
	IntentStatusFailed     IntentStatus = "failed"     // dispatch failed, waiting for manual retry
)

// TransferIntent is one fee or payout transfer produced by a
// withdrawal. The pool's job ends at recording it; the settlement
// dispatcher works the queue fire-and-forget.
type TransferIntent struct {
	ID           string       `json:"id" gorm:"primaryKey;size:36"` // UUID
	WithdrawalID string       `json:"withdrawal_id" gorm:"size:36;index;not null"`
	Kind         string       `json:"kind" gorm:"size:16;not null"`      // fee | payout
	Recipient    string       `json:"recipient" gorm:"size:64;not null"` // destination address
	Amount       string       `json:"amount" gorm:"size:78;not null"`    // uint256 as decimal string
	Status       IntentStatus `json:"status" gorm:"size:16;index;not null;default:pending"`
	Attempts     int          `json:"attempts" gorm:"not null;default:0"`
	LastError    string       `json:"last_error,omitempty" gorm:"type:text"`
	DispatchedAt *time.Time   `json:"dispatched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for TransferIntent
func (TransferIntent) TableName() string {
	return "mixer_transfer_intents"
}
