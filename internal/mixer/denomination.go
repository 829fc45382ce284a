package mixer

import (
	"fmt"
	"math/big"
)

// BaseUnitDecimals is the number of decimal places in one pool unit.
// Amounts cross the wire and hit the database as base-unit decimal
// strings, so arithmetic stays on big.Int throughout.
const BaseUnitDecimals = 24

// Denominations is the fixed ordered set of accepted deposit amounts.
// Deposits are fungible only within a denomination, so the set is a
// deployment policy: extend it in config, not in code.
type Denominations struct {
	amounts []*big.Int
}

// ParseDenominations builds the table from base-unit decimal strings.
// The set must be non-empty, strictly positive, and free of duplicates.
func ParseDenominations(values []string) (Denominations, error) {
	if len(values) == 0 {
		return Denominations{}, fmt.Errorf("denomination table is empty")
	}
	seen := make(map[string]bool, len(values))
	amounts := make([]*big.Int, 0, len(values))
	for _, v := range values {
		amount, ok := new(big.Int).SetString(v, 10)
		if !ok || amount.Sign() <= 0 {
			return Denominations{}, fmt.Errorf("invalid denomination %q", v)
		}
		key := amount.String()
		if seen[key] {
			return Denominations{}, fmt.Errorf("duplicate denomination %q", v)
		}
		seen[key] = true
		amounts = append(amounts, amount)
	}
	return Denominations{amounts: amounts}, nil
}

// DefaultDenominations returns the stock three-tier table: 1, 10 and
// 100 units.
func DefaultDenominations() Denominations {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(BaseUnitDecimals), nil)
	d, _ := ParseDenominations([]string{
		unit.String(),
		new(big.Int).Mul(unit, big.NewInt(10)).String(),
		new(big.Int).Mul(unit, big.NewInt(100)).String(),
	})
	return d
}

// Contains reports whether amount is an accepted denomination.
func (d Denominations) Contains(amount *big.Int) bool {
	if amount == nil {
		return false
	}
	for _, a := range d.amounts {
		if a.Cmp(amount) == 0 {
			return true
		}
	}
	return false
}

// List returns the denominations in table order. Callers must not
// mutate the returned values.
func (d Denominations) List() []*big.Int {
	out := make([]*big.Int, len(d.amounts))
	copy(out, d.amounts)
	return out
}

// Strings returns the table as base-unit decimal strings, in order.
func (d Denominations) Strings() []string {
	out := make([]string, len(d.amounts))
	for i, a := range d.amounts {
		out[i] = a.String()
	}
	return out
}

// Len returns the table size.
func (d Denominations) Len() int { return len(d.amounts) }
