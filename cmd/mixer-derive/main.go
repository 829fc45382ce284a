package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"mixpool-backend/internal/mixer"
)

// Derives the client-side credentials for both withdrawal schemes.
//
//	mixer-derive -secret my-deposit-secret
//	mixer-derive -nullifier n1 -commitment c1
func main() {
	secret := flag.String("secret", "", "deposit secret (secret_reveal scheme)")
	nullifier := flag.String("nullifier", "", "nullifier (nullifier_proof scheme)")
	commitment := flag.String("commitment", "", "commitment id (nullifier_proof scheme)")
	flag.Parse()

	switch {
	case *secret != "":
		fmt.Println("=== Secret Reveal Credentials ===")
		fmt.Printf("Secret:           %s\n", *secret)
		fmt.Printf("Commitment:       %s\n", mixer.CommitmentFromSecret(*secret))
		fmt.Printf("Withdrawal token: %s\n", mixer.WithdrawalTokenFromSecret(*secret))
		fmt.Println()
		fmt.Println("Deposit with the commitment; withdraw by revealing the secret.")

	case *nullifier != "" && *commitment != "":
		h := sha256.New()
		h.Write([]byte(*nullifier))
		h.Write([]byte(*commitment))
		proof := hex.EncodeToString(h.Sum(nil))

		fmt.Println("=== Nullifier Proof Credentials ===")
		fmt.Printf("Nullifier:  %s\n", *nullifier)
		fmt.Printf("Commitment: %s\n", *commitment)
		fmt.Printf("Proof:      %s\n", proof)
		fmt.Println()
		fmt.Println("The nullifier doubles as the spend token once the withdrawal lands.")

	default:
		fmt.Println("Usage:")
		fmt.Println("  mixer-derive -secret <secret>")
		fmt.Println("  mixer-derive -nullifier <nullifier> -commitment <commitment>")
		os.Exit(1)
	}
}
