package dto

import "github.com/golang-jwt/jwt/v5"

// ==================== Auth DTOs ====================

// NonceRequest Wallet login challenge request
type NonceRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"` // EVM wallet address
}

// NonceResponse Wallet login challenge response. The client signs the
// message verbatim and sends it back with the signature.
type NonceResponse struct {
	Nonce     string `json:"nonce"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// AuthRequest Wallet signature login request
type AuthRequest struct {
	WalletAddress string `json:"wallet_address" binding:"required"` // EVM wallet address
	Message       string `json:"message" binding:"required"`        // the challenge message, signed verbatim
	Signature     string `json:"signature" binding:"required"`      // hex-encoded personal_sign signature
}

// AuthResponse Authentication response structure
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// JWTClaims Wallet session JWT claims
type JWTClaims struct {
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}
