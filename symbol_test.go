package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolIsReserved(t *testing.T) {
	require.True(t, Sentinel.IsReserved())
	require.True(t, SentinelSecondary.IsReserved())
	require.False(t, Symbol(0).IsReserved())
	require.False(t, Symbol(41).IsReserved())
}

func TestAlphabetBoundedValid(t *testing.T) {
	a := Alphabet{Size: 4}
	require.True(t, a.Bounded())
	require.True(t, a.Valid(Symbol(0)))
	require.True(t, a.Valid(Symbol(3)))
	require.False(t, a.Valid(Symbol(4)))
	require.False(t, a.Valid(Sentinel))
}

func TestAlphabetUnboundedGrowsByOne(t *testing.T) {
	var a Alphabet
	require.False(t, a.Bounded())
	require.False(t, a.hasSeen())
	require.True(t, a.Valid(Symbol(0)), "the first unseen symbol must be 0")
	require.False(t, a.Valid(Symbol(1)), "symbol 1 is not yet legal before 0 has been seen")

	a.expand(Symbol(0))
	require.True(t, a.hasSeen())
	require.True(t, a.Valid(Symbol(1)))
	require.False(t, a.Valid(Symbol(2)))

	a.expand(Symbol(1))
	require.Equal(t, uint32(1), a.MaxSymbol)
	require.True(t, a.Valid(Symbol(2)))
}
