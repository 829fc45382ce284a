package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mixpool-backend/internal/dto"
	"mixpool-backend/internal/mixer"
	"mixpool-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPoolOwner = "0x742d35cc6634c0532925a3b0f26750c66d78eb66"
	testRecipient = "0x6f3995e2e40ca58adcbd47a2edad192e43d98638"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time          { return c.now }
func (c *stubClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newMixerTestRouter wires the public and owner routes the way the
// production router does, with an in-memory ledger and a frozen clock.
func newMixerTestRouter(t *testing.T, initialized bool) (*gin.Engine, *stubClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := &stubClock{now: time.Unix(1700000000, 0).UTC()}
	queue := services.NewMemoryIntentQueue()
	mem := mixer.NewMemStores()
	mem.UseIntentStore(queue)

	verifier, err := mixer.NewVerifier(mixer.SchemeSecretReveal)
	require.NoError(t, err)

	engine := mixer.NewEngine(mixer.EngineConfig{
		Denominations: mixer.DefaultDenominations(),
		MinDelay:      time.Hour,
		Verifier:      verifier,
		Clock:         clock,
		Runner:        mem,
		Stores:        mem.Stores(),
	})

	svc := services.NewMixerService(engine, nil, nil)
	if initialized {
		require.NoError(t, svc.Init(context.Background(), testPoolOwner, 100))
	}

	handler := NewMixerHandler(svc)

	router := gin.New()
	v1 := router.Group("/api/v1/mixer")
	{
		v1.POST("/deposit", handler.DepositHandler)
		v1.POST("/withdraw", handler.WithdrawHandler)
		v1.GET("/config", handler.ConfigHandler)
		v1.GET("/stats", handler.StatsHandler)
		v1.GET("/commitments/:commitment", handler.CommitmentStatusHandler)
		v1.GET("/tokens/:token", handler.SpentTokenHandler)
		// stand-in for the wallet auth middleware
		v1.PUT("/fee", func(c *gin.Context) {
			c.Set("wallet_address", c.GetHeader("X-Test-Wallet"))
		}, handler.UpdateFeeHandler)
	}
	router.POST("/api/v1/admin/mixer/init", handler.InitPoolHandler)

	return router, clock
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func oneUnitString() string {
	return mixer.DefaultDenominations().Strings()[0]
}

func TestDepositHandler(t *testing.T) {
	router, clock := newMixerTestRouter(t, true)

	secret := "invoice-2093-settled"
	commitment := mixer.CommitmentFromSecret(secret)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: commitment,
		Amount:     oneUnitString(),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.DepositResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, commitment, resp.Commitment)
	assert.Equal(t, oneUnitString(), resp.Denomination)
	assert.Equal(t, clock.Now().Format(time.RFC3339), resp.DepositedAt)
	assert.Equal(t, clock.Now().Add(time.Hour).Format(time.RFC3339), resp.WithdrawableAt)

	// same commitment again
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: commitment,
		Amount:     oneUnitString(),
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_COMMITMENT", errorCode(t, rec))
}

func TestDepositHandlerRejectsBadInput(t *testing.T) {
	router, _ := newMixerTestRouter(t, true)

	// missing required fields
	rec := doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", gin.H{"commitment": "c"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, rec))

	// amount is not a decimal string
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: "c-1",
		Amount:     "0x100",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_AMOUNT", errorCode(t, rec))

	// amount is numeric but not an accepted denomination
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: "c-1",
		Amount:     "12345",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_DENOMINATION", errorCode(t, rec))
}

func TestDepositHandlerBeforeInit(t *testing.T) {
	router, _ := newMixerTestRouter(t, false)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: "c-1",
		Amount:     oneUnitString(),
	}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_INITIALIZED", errorCode(t, rec))
}

func TestWithdrawHandlerSecretReveal(t *testing.T) {
	router, clock := newMixerTestRouter(t, true)

	secret := "payroll-batch-0412"
	commitment := mixer.CommitmentFromSecret(secret)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: commitment,
		Amount:     oneUnitString(),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// inside the time-lock window
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/withdraw", dto.WithdrawRequest{
		Recipient: testRecipient,
		Secret:    secret,
	}, nil)
	assert.Equal(t, http.StatusTooEarly, rec.Code)
	assert.Equal(t, "WITHDRAWAL_TOO_EARLY", errorCode(t, rec))

	clock.Advance(time.Hour)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/withdraw", dto.WithdrawRequest{
		Recipient: testRecipient,
		Secret:    secret,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.WithdrawResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testRecipient, resp.Recipient)
	assert.Equal(t, oneUnitString(), resp.Gross)
	assert.Equal(t, mixer.WithdrawalTokenFromSecret(secret), resp.SpentToken)
	assert.NotEmpty(t, resp.WithdrawalID)
	require.Len(t, resp.Transfers, 2)

	// the credential is spent now
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/withdraw", dto.WithdrawRequest{
		Recipient: testRecipient,
		Secret:    secret,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TOKEN_ALREADY_SPENT", errorCode(t, rec))

	// and the spent token is queryable
	rec = doJSON(t, router, http.MethodGet, "/api/v1/mixer/tokens/"+resp.SpentToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tokenResp dto.SpentTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokenResp))
	assert.True(t, tokenResp.Spent)
}

func TestWithdrawHandlerRejectsWrongCredentialKind(t *testing.T) {
	router, clock := newMixerTestRouter(t, true)

	secret := "escrow-release-77"
	commitment := mixer.CommitmentFromSecret(secret)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: commitment,
		Amount:     oneUnitString(),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	clock.Advance(2 * time.Hour)

	// nullifier-proof credential against a secret-reveal pool
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/withdraw", dto.WithdrawRequest{
		Recipient:  testRecipient,
		Nullifier:  "n-1",
		Commitment: commitment,
		Proof:      "p-1",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_AUTHORIZATION", errorCode(t, rec))
}

func TestConfigHandler(t *testing.T) {
	router, _ := newMixerTestRouter(t, false)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/mixer/config", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.PoolConfigResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Initialized)
	assert.Empty(t, resp.Owner)
	assert.Equal(t, string(mixer.SchemeSecretReveal), resp.Scheme)
	assert.Equal(t, int64(3600), resp.MinDelaySeconds)
	assert.Len(t, resp.Denominations, mixer.DefaultDenominations().Len())

	// after init the owner and fee appear
	initRec := doJSON(t, router, http.MethodPost, "/api/v1/admin/mixer/init", dto.InitPoolRequest{
		Owner:          testPoolOwner,
		FeeBasisPoints: 100,
	}, nil)
	require.Equal(t, http.StatusCreated, initRec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/mixer/config", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Initialized)
	assert.Equal(t, testPoolOwner, resp.Owner)
	assert.Equal(t, uint16(100), resp.FeeBasisPoints)
}

func TestStatsHandler(t *testing.T) {
	router, clock := newMixerTestRouter(t, true)

	secret := "refund-5520"
	rec := doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: mixer.CommitmentFromSecret(secret),
		Amount:     oneUnitString(),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	clock.Advance(time.Hour)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/withdraw", dto.WithdrawRequest{
		Recipient: testRecipient,
		Secret:    secret,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/mixer/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.PoolStatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.TotalDeposits, "withdrawal must not erase the deposit counter")
	assert.Equal(t, oneUnitString(), resp.TotalAmount)
	assert.Equal(t, int64(0), resp.ActiveCommitments)
	require.Len(t, resp.Denominations, 1)
	assert.Equal(t, uint64(1), resp.Denominations[0].DepositCount)
}

func TestCommitmentStatusHandler(t *testing.T) {
	router, clock := newMixerTestRouter(t, true)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/mixer/commitments/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_COMMITMENT", errorCode(t, rec))

	secret := "consulting-fee-q3"
	commitment := mixer.CommitmentFromSecret(secret)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/deposit", dto.DepositRequest{
		Commitment: commitment,
		Amount:     oneUnitString(),
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/mixer/commitments/"+commitment, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.CommitmentStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, commitment, resp.Commitment)
	assert.Equal(t, oneUnitString(), resp.Denomination)
	assert.Equal(t, clock.Now().Add(time.Hour).Format(time.RFC3339), resp.WithdrawableAt)

	// a spent commitment is indistinguishable from an unknown one
	clock.Advance(time.Hour)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/mixer/withdraw", dto.WithdrawRequest{
		Recipient: testRecipient,
		Secret:    secret,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/mixer/commitments/"+commitment, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_COMMITMENT", errorCode(t, rec))
}

func TestUpdateFeeHandler(t *testing.T) {
	router, _ := newMixerTestRouter(t, true)

	// a wallet that is not the owner
	rec := doJSON(t, router, http.MethodPut, "/api/v1/mixer/fee", dto.UpdateFeeRequest{
		FeeBasisPoints: 250,
	}, map[string]string{"X-Test-Wallet": testRecipient})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	// fee above the cap
	rec = doJSON(t, router, http.MethodPut, "/api/v1/mixer/fee", dto.UpdateFeeRequest{
		FeeBasisPoints: 501,
	}, map[string]string{"X-Test-Wallet": testPoolOwner})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FEE_TOO_HIGH", errorCode(t, rec))

	// the owner
	rec = doJSON(t, router, http.MethodPut, "/api/v1/mixer/fee", dto.UpdateFeeRequest{
		FeeBasisPoints: 250,
	}, map[string]string{"X-Test-Wallet": testPoolOwner})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var config dto.PoolConfigResponse
	rec = doJSON(t, router, http.MethodGet, "/api/v1/mixer/config", nil, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &config))
	assert.Equal(t, uint16(250), config.FeeBasisPoints)
}

func TestInitPoolHandler(t *testing.T) {
	router, _ := newMixerTestRouter(t, false)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/admin/mixer/init", dto.InitPoolRequest{
		Owner:          testPoolOwner,
		FeeBasisPoints: 100,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/mixer/init", dto.InitPoolRequest{
		Owner:          testPoolOwner,
		FeeBasisPoints: 100,
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_INITIALIZED", errorCode(t, rec))
}
