package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(1000)
	b := NewAmount(1)

	require.True(t, AmountSub(a, b).Equals(NewAmount(999)))
	require.True(t, AmountAdd(a, b).Equals(NewAmount(1001)))
	require.True(t, b.LessThan(a))
	require.True(t, a.GreaterThan(b))
	require.False(t, a.Equals(b))

	// Inputs are not mutated.
	require.True(t, a.Equals(NewAmount(1000)))
}

func TestAmountFromString(t *testing.T) {
	a, err := AmountFromString("123456789012345678901234567890")
	require.NoError(t, err)
	require.Equal(t, "123456789012345678901234567890", a.String())

	_, err = AmountFromString("not a number")
	require.Error(t, err)
}

func TestAmountJSON(t *testing.T) {
	a := NewAmount(918273645)

	b, err := json.Marshal(&a)
	require.NoError(t, err)
	require.Equal(t, `"918273645"`, string(b))

	var out Amount
	require.NoError(t, json.Unmarshal(b, &out))
	require.True(t, out.Equals(a))
}
