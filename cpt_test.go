package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCPTStartsEmpty(t *testing.T) {
	c := NewCPT()
	require.Equal(t, uint32(1), c.EscapeCount())
	require.Equal(t, uint32(1), c.SentinelCount())
	require.Equal(t, uint32(2), c.Total())
	_, ok := c.MaxSymbol()
	require.False(t, ok)
}

func TestCPTIncrementSymbolSingletonBookkeeping(t *testing.T) {
	c := NewCPT()

	c.IncrementSymbol(Symbol(5))
	require.Equal(t, uint32(1), c.Count(Symbol(5)))
	require.Equal(t, uint32(2), c.EscapeCount(), "a new singleton adds one unit on top of the fixed +1 baseline")

	c.IncrementSymbol(Symbol(5))
	require.Equal(t, uint32(2), c.Count(Symbol(5)))
	require.Equal(t, uint32(1), c.EscapeCount(), "symbol 5 is no longer a singleton, so its unit leaves the escape mass")
}

func TestCPTFindLocatesEveryRangeExactly(t *testing.T) {
	c := NewCPT()
	c.IncrementSymbol(Symbol(2))
	c.IncrementSymbol(Symbol(2))
	c.IncrementSymbol(Symbol(7))
	c.IncrementSentinel()

	total := c.Total()
	var coveredEscape, coveredSentinel bool
	seen := map[Symbol]uint32{}
	for target := uint32(0); target < total; target++ {
		isEscape, isSentinel, sym, lbnd, count := c.Find(target)
		require.LessOrEqual(t, lbnd, target)
		require.Less(t, target, lbnd+count)
		switch {
		case isEscape:
			coveredEscape = true
		case isSentinel:
			coveredSentinel = true
		default:
			seen[sym] += 1
		}
	}
	require.True(t, coveredEscape)
	require.True(t, coveredSentinel)
	require.Equal(t, uint32(2), c.Count(Symbol(2)))
	require.Equal(t, uint32(1), c.Count(Symbol(7)))
	_ = seen
}

func TestCPTCloneIsIndependent(t *testing.T) {
	c := NewCPT()
	c.IncrementSymbol(Symbol(3))
	cp := c.Clone()
	cp.IncrementSymbol(Symbol(3))

	require.Equal(t, uint32(1), c.Count(Symbol(3)))
	require.Equal(t, uint32(2), cp.Count(Symbol(3)))
}
