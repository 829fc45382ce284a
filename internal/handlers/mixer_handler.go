// Mixer Handlers - deposit, withdraw and pool queries
package handlers

import (
	"errors"
	"net/http"
	"time"

	"mixpool-backend/internal/dto"
	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/services"
	"mixpool-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MixerHandler handles the pool's deposit, withdraw and query endpoints
type MixerHandler struct {
	service *services.MixerService
}

// NewMixerHandler creates a new MixerHandler instance
func NewMixerHandler(service *services.MixerService) *MixerHandler {
	return &MixerHandler{
		service: service,
	}
}

// ============================================================================
// Pool Operations
// ============================================================================

// DepositHandler records a deposit against a commitment
// POST /api/v1/mixer/deposit
func (h *MixerHandler) DepositHandler(c *gin.Context) {
	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	amount, err := utils.ParseAmount(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  "INVALID_AMOUNT",
		})
		return
	}

	receipt, err := h.service.Deposit(c.Request.Context(), req.Commitment, amount)
	if err != nil {
		writeMixerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.DepositResponse{
		Commitment:     receipt.Commitment,
		Denomination:   utils.FormatAmount(receipt.Denomination),
		DepositedAt:    receipt.DepositedAt.UTC().Format(time.RFC3339),
		WithdrawableAt: receipt.DepositedAt.Add(h.service.MinDelay()).UTC().Format(time.RFC3339),
	})
}

// WithdrawHandler spends a deposit and queues its outbound transfers.
// The credential fields to send depend on the pool's authorization
// scheme (see GET /api/v1/mixer/config): secret_reveal pools take
// "secret", nullifier_proof pools take "nullifier", "commitment" and
// "proof".
// POST /api/v1/mixer/withdraw
func (h *MixerHandler) WithdrawHandler(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	var auth mixer.Authorization
	if req.Secret != "" {
		auth = mixer.SecretReveal{Secret: req.Secret}
	} else {
		auth = mixer.NullifierProof{
			Nullifier:  req.Nullifier,
			Commitment: req.Commitment,
			Proof:      req.Proof,
		}
	}

	receipt, err := h.service.Withdraw(c.Request.Context(), req.Recipient, auth)
	if err != nil {
		writeMixerError(c, err)
		return
	}

	transfers := make([]dto.TransferView, len(receipt.Transfers))
	for i, transfer := range receipt.Transfers {
		transfers[i] = dto.TransferView{
			ID:        transfer.ID,
			Kind:      string(transfer.Kind),
			Recipient: transfer.Recipient,
			Amount:    utils.FormatAmount(transfer.Amount),
		}
	}

	c.JSON(http.StatusOK, dto.WithdrawResponse{
		WithdrawalID: receipt.WithdrawalID,
		Recipient:    receipt.Recipient,
		Gross:        utils.FormatAmount(receipt.Gross),
		Fee:          utils.FormatAmount(receipt.Fee),
		Net:          utils.FormatAmount(receipt.Net),
		SpentToken:   receipt.SpentToken,
		Transfers:    transfers,
	})
}

// ============================================================================
// Pool Queries
// ============================================================================

// ConfigHandler returns the pool policy. Responds even before the pool
// is initialized so clients can discover the authorization scheme and
// the accepted denominations.
// GET /api/v1/mixer/config
func (h *MixerHandler) ConfigHandler(c *gin.Context) {
	ctx := c.Request.Context()

	resp := dto.PoolConfigResponse{
		Initialized:     h.service.Initialized(ctx),
		Scheme:          string(h.service.Scheme()),
		MinDelaySeconds: int64(h.service.MinDelay() / time.Second),
		Denominations:   h.service.Denominations().Strings(),
	}
	if resp.Initialized {
		resp.Owner = h.service.Owner(ctx)
		resp.FeeBasisPoints = h.service.FeeBasisPoints(ctx)
	}

	c.JSON(http.StatusOK, resp)
}

// StatsHandler returns cumulative deposit counters and the live
// commitment count
// GET /api/v1/mixer/stats
func (h *MixerHandler) StatsHandler(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		writeMixerError(c, err)
		return
	}

	perDenom := make([]dto.DenominationStatView, len(stats.Denominations))
	for i, row := range stats.Denominations {
		perDenom[i] = dto.DenominationStatView{
			Denomination: utils.FormatAmount(row.Denomination),
			DepositCount: row.DepositCount,
			TotalAmount:  utils.FormatAmount(row.TotalAmount),
		}
	}

	c.JSON(http.StatusOK, dto.PoolStatsResponse{
		TotalDeposits:     stats.TotalDeposits,
		TotalAmount:       utils.FormatAmount(stats.TotalAmount),
		ActiveCommitments: stats.ActiveCommitments,
		Denominations:     perDenom,
	})
}

// CommitmentStatusHandler looks up an unspent commitment. Spent
// commitments are indistinguishable from ones never deposited; both
// return 404.
// GET /api/v1/mixer/commitments/:commitment
func (h *MixerHandler) CommitmentStatusHandler(c *gin.Context) {
	commitment := c.Param("commitment")

	record, err := h.service.CommitmentStatus(c.Request.Context(), commitment)
	if err != nil {
		writeMixerError(c, err)
		return
	}

	withdrawableAt := record.DepositedAt.Add(h.service.MinDelay())
	c.JSON(http.StatusOK, dto.CommitmentStatusResponse{
		Commitment:     commitment,
		Denomination:   utils.FormatAmount(record.Denomination),
		DepositedAt:    record.DepositedAt.UTC().Format(time.RFC3339),
		WithdrawableAt: withdrawableAt.UTC().Format(time.RFC3339),
		Withdrawable:   !time.Now().Before(withdrawableAt),
	})
}

// SpentTokenHandler reports whether a withdrawal token has been used
// GET /api/v1/mixer/tokens/:token
func (h *MixerHandler) SpentTokenHandler(c *gin.Context) {
	token := c.Param("token")

	spent, err := h.service.TokenSpent(c.Request.Context(), token)
	if err != nil {
		writeMixerError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SpentTokenResponse{
		Token: token,
		Spent: spent,
	})
}

// ============================================================================
// Owner Operations
// ============================================================================

// UpdateFeeHandler changes the fee rate. The caller identity comes from
// the wallet JWT; the pool rejects anyone but the owner.
// PUT /api/v1/mixer/fee
func (h *MixerHandler) UpdateFeeHandler(c *gin.Context) {
	var req dto.UpdateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	caller := c.GetString("wallet_address")
	if err := h.service.UpdateFee(c.Request.Context(), caller, req.FeeBasisPoints); err != nil {
		writeMixerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"fee_basis_points": req.FeeBasisPoints,
	})
}

// InitPoolHandler performs the one-time pool initialization
// POST /api/v1/admin/mixer/init
func (h *MixerHandler) InitPoolHandler(c *gin.Context) {
	var req dto.InitPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format: " + err.Error(),
			"code":  "INVALID_REQUEST",
		})
		return
	}

	if err := h.service.Init(c.Request.Context(), req.Owner, req.FeeBasisPoints); err != nil {
		writeMixerError(c, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"owner":            req.Owner,
		"fee_basis_points": req.FeeBasisPoints,
	}).Info("Pool initialized via admin API")

	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"owner":            req.Owner,
		"fee_basis_points": req.FeeBasisPoints,
	})
}

// writeMixerError translates pool errors into HTTP responses. Unknown
// errors become an opaque 500 so storage details never reach clients.
func writeMixerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mixer.ErrInvalidDenomination):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_DENOMINATION"})
	case errors.Is(err, mixer.ErrFeeTooHigh):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "FEE_TOO_HIGH"})
	case errors.Is(err, mixer.ErrInvalidAuthorization):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "INVALID_AUTHORIZATION"})
	case errors.Is(err, mixer.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "UNAUTHORIZED"})
	case errors.Is(err, mixer.ErrUnknownCommitment):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "UNKNOWN_COMMITMENT"})
	case errors.Is(err, mixer.ErrDuplicateCommitment):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "DUPLICATE_COMMITMENT"})
	case errors.Is(err, mixer.ErrTokenAlreadySpent):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "TOKEN_ALREADY_SPENT"})
	case errors.Is(err, mixer.ErrAlreadyInitialized):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "ALREADY_INITIALIZED"})
	case errors.Is(err, mixer.ErrWithdrawalTooEarly):
		c.JSON(http.StatusTooEarly, gin.H{"error": err.Error(), "code": "WITHDRAWAL_TOO_EARLY"})
	case errors.Is(err, mixer.ErrNotInitialized):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "code": "NOT_INITIALIZED"})
	default:
		logrus.WithError(err).Error("Mixer operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL_ERROR"})
	}
}
