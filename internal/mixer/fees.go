package mixer

import "math/big"

// MaxFeeBasisPoints caps the pool fee at 5%.
const MaxFeeBasisPoints uint16 = 500

const basisPointDenominator = 10000

// ValidateFeeBasisPoints rejects rates above the cap.
func ValidateFeeBasisPoints(feeBasisPoints uint16) error {
	if feeBasisPoints > MaxFeeBasisPoints {
		return ErrFeeTooHigh
	}
	return nil
}

// Split divides a gross amount into the owner fee and the recipient
// payout: fee = floor(gross * bp / 10000), net = gross - fee. The two
// always sum back to gross.
func Split(gross *big.Int, feeBasisPoints uint16) (fee, net *big.Int) {
	fee = new(big.Int).Mul(gross, big.NewInt(int64(feeBasisPoints)))
	fee.Quo(fee, big.NewInt(basisPointDenominator))
	net = new(big.Int).Sub(gross, fee)
	return fee, net
}
