package mixer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSumsToGross(t *testing.T) {
	rates := []uint16{0, 1, 37, 100, 250, 500}
	for _, d := range DefaultDenominations().List() {
		for _, bp := range rates {
			fee, net := Split(d, bp)

			sum := new(big.Int).Add(fee, net)
			require.Zero(t, sum.Cmp(d), "fee+net must equal gross for denom=%s bp=%d", d, bp)
			if bp == 0 {
				assert.Zero(t, fee.Sign())
			} else {
				assert.True(t, fee.Sign() > 0)
			}
		}
	}
}

func TestSplitFloorsTheFee(t *testing.T) {
	// 10001 * 1 / 10000 = 1.0001, floored to 1
	fee, net := Split(big.NewInt(10001), 1)
	assert.Equal(t, "1", fee.String())
	assert.Equal(t, "10000", net.String())

	// below one basis point's worth, the fee rounds to zero
	fee, net = Split(big.NewInt(9999), 1)
	assert.Equal(t, "0", fee.String())
	assert.Equal(t, "9999", net.String())
}

func TestSplitOnePercentOfOneUnit(t *testing.T) {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(BaseUnitDecimals), nil)
	fee, net := Split(unit, 100)
	assert.Equal(t, "10000000000000000000000", fee.String())
	assert.Equal(t, "990000000000000000000000", net.String())
}

func TestValidateFeeBasisPoints(t *testing.T) {
	require.NoError(t, ValidateFeeBasisPoints(0))
	require.NoError(t, ValidateFeeBasisPoints(MaxFeeBasisPoints))
	require.ErrorIs(t, ValidateFeeBasisPoints(MaxFeeBasisPoints+1), ErrFeeTooHigh)
	require.ErrorIs(t, ValidateFeeBasisPoints(10000), ErrFeeTooHigh)
}
