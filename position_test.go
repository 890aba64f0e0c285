package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitsetSetIsSetClear(t *testing.T) {
	b := newBitset()
	require.False(t, b.IsSet(Symbol(130)))
	b.Set(Symbol(130))
	require.True(t, b.IsSet(Symbol(130)))
	require.Equal(t, uint32(1), b.Count())
	b.Clear()
	require.False(t, b.IsSet(Symbol(130)))
	require.Equal(t, uint32(0), b.Count())
}

func TestCodelengthHalfMassIsOneBit(t *testing.T) {
	cl := Codelength(0, 1, 2)
	require.InDelta(t, 1.0, cl, 1e-9)
}

func TestPositionResetAtNodeAndNextMatches(t *testing.T) {
	tr := NewTrie(true)
	node := tr.CreateNode()
	tr.AddSlist(node, NodeNIL, Symbol(3), childInput(tr.UpdateInput(Symbol(3))))
	tr.AddSlist(node, tailOf(tr, node), Symbol(9), childInput(tr.UpdateInput(Symbol(9))))

	pos := NewPosition()
	pos.Start(node)
	pos.ResetAtNode(tr, node, EscapeA)
	require.Equal(t, uint32(3), pos.Total) // two entries @1 each + escape mass 1

	found, sym, _ := pos.Next(tr, func(s Symbol, _ ChildRef, _ uint32) bool { return s == Symbol(9) })
	require.True(t, found)
	require.Equal(t, Symbol(9), sym)
	require.Equal(t, uint32(1), pos.Subtotal, "symbol 3 was skipped over first")
	require.Equal(t, uint32(1), pos.Count)
}

func TestPositionEscapeAfterNoMatch(t *testing.T) {
	tr := NewTrie(true)
	node := tr.CreateNode()
	tr.AddSlist(node, NodeNIL, Symbol(3), childInput(tr.UpdateInput(Symbol(3))))

	pos := NewPosition()
	pos.Start(node)
	pos.ResetAtNode(tr, node, EscapeA)
	found, _, _ := pos.Next(tr, func(s Symbol, _ ChildRef, _ uint32) bool { return s == Symbol(99) })
	require.False(t, found)

	lbnd, hbnd, total := pos.Escape()
	require.Equal(t, uint32(1), lbnd)
	require.Equal(t, pos.Total, hbnd)
	require.Equal(t, pos.Total, total)
}

func TestPositionAccumulateCarriesEscapeCodelength(t *testing.T) {
	pos := NewPosition()
	pos.Start(NodeRoot)
	pos.Accumulate(1, 2, 2) // escape: hbnd == total
	require.Greater(t, pos.EscapeCodelength, 0.0)
	require.Equal(t, pos.EscapeCodelength, pos.Codelength)

	before := pos.EscapeCodelength
	pos.Accumulate(0, 1, 2) // a real match: hbnd != total
	require.Equal(t, before, pos.EscapeCodelength)
	require.Greater(t, pos.Codelength, before)
}

func TestPositionCloneIsIndependent(t *testing.T) {
	pos := NewPosition()
	pos.Start(NodeRoot)
	pos.Exclusions.Set(Symbol(4))
	cp := pos.Clone()
	cp.Exclusions.Set(Symbol(5))

	require.False(t, pos.Exclusions.IsSet(Symbol(5)))
	require.True(t, cp.Exclusions.IsSet(Symbol(5)))
}
