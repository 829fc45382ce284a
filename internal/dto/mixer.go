package dto

// ==================== Mixer DTOs ====================

// InitPoolRequest One-time pool initialization request
type InitPoolRequest struct {
	Owner          string `json:"owner" binding:"required"` // fee recipient address
	FeeBasisPoints uint16 `json:"fee_basis_points"`         // 0..500
}

// DepositRequest Deposit request
type DepositRequest struct {
	Commitment string `json:"commitment" binding:"required"` // opaque commitment identifier
	Amount     string `json:"amount" binding:"required"`     // base-unit decimal string, must match a denomination
}

// DepositResponse Deposit response
type DepositResponse struct {
	Commitment     string `json:"commitment"`
	Denomination   string `json:"denomination"`
	DepositedAt    string `json:"deposited_at"`
	WithdrawableAt string `json:"withdrawable_at"` // deposited_at + pool time-lock
}

// WithdrawRequest Withdrawal request. The credential fields depend on the
// pool's authorization scheme: nullifier_proof uses nullifier, commitment
// and proof; secret_reveal uses secret.
type WithdrawRequest struct {
	Recipient  string `json:"recipient" binding:"required"` // payout address
	Nullifier  string `json:"nullifier,omitempty"`
	Commitment string `json:"commitment,omitempty"`
	Proof      string `json:"proof,omitempty"`
	Secret     string `json:"secret,omitempty"`
}

// TransferView One settlement transfer of a withdrawal
type TransferView struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"` // fee | payout
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

// WithdrawResponse Withdrawal response
type WithdrawResponse struct {
	WithdrawalID string         `json:"withdrawal_id"`
	Recipient    string         `json:"recipient"`
	Gross        string         `json:"gross"`
	Fee          string         `json:"fee"`
	Net          string         `json:"net"`
	SpentToken   string         `json:"spent_token"`
	Transfers    []TransferView `json:"transfers"`
}

// UpdateFeeRequest Fee rate change request (pool owner only)
type UpdateFeeRequest struct {
	FeeBasisPoints uint16 `json:"fee_basis_points"`
}

// PoolConfigResponse Public pool configuration
type PoolConfigResponse struct {
	Initialized     bool     `json:"initialized"`
	Owner           string   `json:"owner,omitempty"`
	FeeBasisPoints  uint16   `json:"fee_basis_points"`
	Scheme          string   `json:"scheme"`
	MinDelaySeconds int64    `json:"min_delay_seconds"`
	Denominations   []string `json:"denominations"`
}

// DenominationStatView Per-denomination deposit statistics
type DenominationStatView struct {
	Denomination string `json:"denomination"`
	DepositCount uint64 `json:"deposit_count"`
	TotalAmount  string `json:"total_amount"`
}

// PoolStatsResponse Pool analytics snapshot
type PoolStatsResponse struct {
	TotalDeposits     uint64                 `json:"total_deposits"`
	TotalAmount       string                 `json:"total_amount"`
	ActiveCommitments int64                  `json:"active_commitments"`
	Denominations     []DenominationStatView `json:"denominations"`
}

// CommitmentStatusResponse Live commitment lookup response
type CommitmentStatusResponse struct {
	Commitment     string `json:"commitment"`
	Denomination   string `json:"denomination"`
	DepositedAt    string `json:"deposited_at"`
	WithdrawableAt string `json:"withdrawable_at"`
	Withdrawable   bool   `json:"withdrawable"`
}

// SpentTokenResponse Spend token lookup response
type SpentTokenResponse struct {
	Token string `json:"token"`
	Spent bool   `json:"spent"`
}

// TransferIntentView Admin view of one settlement queue entry
type TransferIntentView struct {
	ID           string `json:"id"`
	WithdrawalID string `json:"withdrawal_id"`
	Kind         string `json:"kind"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
	Attempts     int    `json:"attempts"`
	LastError    string `json:"last_error,omitempty"`
	DispatchedAt string `json:"dispatched_at,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ListTransfersResponse Paginated settlement queue listing
type ListTransfersResponse struct {
	Transfers []TransferIntentView `json:"transfers"`
	Total     int64                `json:"total"`
	Page      int                  `json:"page"`
	PageSize  int                  `json:"page_size"`
}
