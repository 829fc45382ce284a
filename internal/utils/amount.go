package utils

import (
	"fmt"
	"math/big"
)

// amounts travel as base-unit decimal strings end to end; the database
// column and the wire format are the same representation

// ParseAmount parses a base-unit decimal amount string into a big.Int.
// Only plain non-negative decimal digits are accepted: no sign, no hex
// prefix, no separators.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("invalid amount %q: must be a base-unit decimal string", s)
		}
	}
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

// FormatAmount renders an amount back to its base-unit decimal string.
// A nil amount formats as "0".
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
