package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"mixpool-backend/internal/dto"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	wallet := flag.String("wallet", "0x742d35Cc6634C0532925a3b0F26750C66d78EB66", "wallet address to embed in the token")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	// Same fallback as the auth handler
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "mixpool-jwt-secret-key-2026"
	}

	now := time.Now()
	claims := dto.JWTClaims{
		WalletAddress: *wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "mixpool-backend",
			Subject:   *wallet,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated for Testing")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Println("Claims:")
	fmt.Printf("  Wallet Address: %s\n", *wallet)
	fmt.Printf("  Expires: %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Println("============================================================")
	fmt.Println("Usage:")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Printf("curl -X PUT http://localhost:18090/api/v1/mixer/fee \\\n")
	fmt.Printf("  -H 'Authorization: Bearer %s' \\\n", tokenString)
	fmt.Printf("  -H 'Content-Type: application/json' \\\n")
	fmt.Printf("  -d '{\"fee_basis_points\": 100}'\n")
	fmt.Println()
}
