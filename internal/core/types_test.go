package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSymbol(t *testing.T) {
	s, err := ParseSymbol("eth")
	require.NoError(t, err)
	assert.Equal(t, ETH, s)
	assert.Equal(t, "ETHUSDT", s.Pair())

	s, err = ParseSymbol("BNB")
	require.NoError(t, err)
	assert.Equal(t, "BNBUSDT", s.Pair())

	_, err = ParseSymbol("DOGE")
	assert.Error(t, err)
}

func TestSymbol_Identity(t *testing.T) {
	assert.NotEqual(t, ETH, BTC)
	assert.Equal(t, "", Symbol(42).Pair())
	assert.Equal(t, "Symbol(42)", Symbol(42).String())
}

func TestInterval_Valid(t *testing.T) {
	assert.True(t, Interval1h.Valid())
	assert.True(t, Interval1M.Valid())
	assert.False(t, Interval("2m").Valid())
}
