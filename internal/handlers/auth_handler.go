package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"mixpool-backend/internal/dto"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// JWT signing secret for wallet sessions
var jwtSecret = loadJWTSecret()

func loadJWTSecret() []byte {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	logrus.Warn("⚠️ JWT_SECRET not set, using default secret (set JWT_SECRET in production)")
	return []byte("mixpool-jwt-secret-key-2026")
}

// nonceTTL is how long an issued nonce stays valid
const nonceTTL = 5 * time.Minute

// use dto definitions
type AuthRequest = dto.AuthRequest
type AuthResponse = dto.AuthResponse
type JWTClaims = dto.JWTClaims

type issuedNonce struct {
	message   string
	expiresAt time.Time
}

// AuthHandler handles wallet login: nonce issuance and signature
// verification. Each nonce is single use and bound to the wallet it
// was issued for.
type AuthHandler struct {
	mu     sync.Mutex
	nonces map[string]issuedNonce // keyed by lowercase wallet address
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		nonces: make(map[string]issuedNonce),
	}
}

// GenerateNonceHandler issues a login challenge for a wallet
// POST /api/v1/auth/nonce
func (h *AuthHandler) GenerateNonceHandler(c *gin.Context) {
	var req dto.NonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	if !common.IsHexAddress(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid wallet address",
		})
		return
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to generate nonce",
		})
		return
	}

	nonceStr := hex.EncodeToString(nonce)
	timestamp := time.Now().Unix()
	message := fmt.Sprintf("MixPool Authentication\nNonce: %s\nTimestamp: %d", nonceStr, timestamp)

	h.mu.Lock()
	h.pruneExpiredLocked()
	h.nonces[strings.ToLower(req.WalletAddress)] = issuedNonce{
		message:   message,
		expiresAt: time.Now().Add(nonceTTL),
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, dto.NonceResponse{
		Nonce:     nonceStr,
		Message:   message,
		Timestamp: timestamp,
	})
}

// AuthenticateHandler verifies a signed challenge and issues a JWT
// POST /api/v1/auth/login
func (h *AuthHandler) AuthenticateHandler(c *gin.Context) {
	var req AuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Message: fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	if !h.consumeNonce(req.WalletAddress, req.Message) {
		c.JSON(http.StatusUnauthorized, AuthResponse{
			Success: false,
			Message: "Unknown or expired nonce; request a new one",
		})
		return
	}

	signer, err := recoverSigner(req.Message, req.Signature)
	if err != nil || !strings.EqualFold(signer, req.WalletAddress) {
		logrus.WithFields(logrus.Fields{
			"wallet": req.WalletAddress,
			"error":  err,
		}).Warn("Wallet signature verification failed")
		c.JSON(http.StatusUnauthorized, AuthResponse{
			Success: false,
			Message: "Signature verification failed",
		})
		return
	}

	token, err := h.generateJWTToken(req.WalletAddress)
	if err != nil {
		logrus.WithError(err).Error("Failed to sign wallet JWT")
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Success: false,
			Message: "Failed to generate token",
		})
		return
	}

	logrus.WithField("wallet", req.WalletAddress).Info("✅ Wallet authenticated")

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Token:   token,
		Message: "Authentication successful",
	})
}

// consumeNonce checks the challenge and removes it so it cannot be
// replayed. Returns false if no live nonce matches.
func (h *AuthHandler) consumeNonce(walletAddress, message string) bool {
	key := strings.ToLower(walletAddress)

	h.mu.Lock()
	defer h.mu.Unlock()

	issued, ok := h.nonces[key]
	if !ok || time.Now().After(issued.expiresAt) || issued.message != message {
		return false
	}
	delete(h.nonces, key)
	return true
}

// pruneExpiredLocked drops stale nonces; caller holds h.mu
func (h *AuthHandler) pruneExpiredLocked() {
	now := time.Now()
	for key, issued := range h.nonces {
		if now.After(issued.expiresAt) {
			delete(h.nonces, key)
		}
	}
}

// recoverSigner recovers the address that personal-signed message.
// The signature is the usual 65-byte r||s||v form, hex encoded, with
// v as either 0/1 or 27/28.
func recoverSigner(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", fmt.Errorf("signature is not hex: %w", err)
	}
	if len(sig) != 65 {
		return "", fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return "", fmt.Errorf("invalid recovery id %d", sig[64])
	}

	// EIP-191 personal message prefix, as applied by eth_sign wallets
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	hash := crypto.Keccak256([]byte(prefixed))

	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// generateJWTToken signs a 24h session token for the wallet
func (h *AuthHandler) generateJWTToken(walletAddress string) (string, error) {
	claims := JWTClaims{
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "mixpool-backend",
			Subject:   walletAddress,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWTToken parses and verifies a wallet session token (used by
// the auth middleware)
func ValidateJWTToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
