package mixer

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDenominations(t *testing.T) {
	d, err := ParseDenominations([]string{"100", "2500", "99000"})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []string{"100", "2500", "99000"}, d.Strings())

	assert.True(t, d.Contains(big.NewInt(2500)))
	assert.False(t, d.Contains(big.NewInt(2501)))
	assert.False(t, d.Contains(nil))
}

func TestParseDenominationsRejectsBadInput(t *testing.T) {
	cases := map[string][]string{
		"empty table":   {},
		"not a number":  {"100", "abc"},
		"zero":          {"0"},
		"negative":      {"-5"},
		"duplicate":     {"100", "100"},
		"decimal point": {"1.5"},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDenominations(values)
			require.Error(t, err)
		})
	}
}

func TestDefaultDenominations(t *testing.T) {
	d := DefaultDenominations()
	require.Equal(t, 3, d.Len())
	assert.Equal(t, []string{
		"1000000000000000000000000",
		"10000000000000000000000000",
		"100000000000000000000000000",
	}, d.Strings())
}

func TestDenominationsListIsACopy(t *testing.T) {
	d, err := ParseDenominations([]string{"100"})
	require.NoError(t, err)

	list := d.List()
	list[0] = big.NewInt(999)
	assert.True(t, d.Contains(big.NewInt(100)))
}
