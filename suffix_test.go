package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSuffixListStartGrowsOneEntryAtATime(t *testing.T) {
	sl := NewSuffixList(2) // size = maxOrder + 2 = 4
	sl.Start()
	require.Equal(t, 1, sl.Length())
	require.Equal(t, NodeRoot, sl.At(0))

	sl.Set(0, NodeID(7))
	sl.Start()
	require.Equal(t, 2, sl.Length())
	require.Equal(t, NodeID(7), sl.At(0))
	require.Equal(t, NodeRoot, sl.At(1))
}

func TestSuffixListDropAndRepairCompacts(t *testing.T) {
	sl := NewSuffixList(3)
	sl.Set(0, NodeID(1))
	sl.Set(1, NodeID(2))
	sl.Set(2, NodeID(3))
	sl.Drop(1)
	sl.Repair()

	require.Equal(t, NodeID(1), sl.At(0))
	require.Equal(t, NodeID(3), sl.At(1))
	require.Equal(t, NodeNIL, sl.At(2))
}

func TestSuffixListBeheadResetsToRootOnly(t *testing.T) {
	sl := NewSuffixList(3)
	sl.Set(0, NodeID(1))
	sl.Set(1, NodeID(2))
	sl.Behead()

	require.Equal(t, 1, sl.Length())
	require.Equal(t, NodeRoot, sl.At(0))
	require.Equal(t, NodeNIL, sl.At(1))
}

func TestSuffixListNextWalksOffTheEnd(t *testing.T) {
	sl := NewSuffixList(1) // size 3
	sl.Set(0, NodeID(10))
	sl.Set(1, NodeID(11))
	sl.Reset()

	require.Equal(t, NodeID(10), sl.At(sl.Cursor()))
	n, ok := sl.Next()
	require.True(t, ok)
	require.Equal(t, NodeID(11), n)

	n, ok = sl.Next()
	require.True(t, ok)
	require.Equal(t, NodeNIL, n)

	_, ok = sl.Next()
	require.False(t, ok)
	require.Equal(t, -1, sl.Cursor())
}

func TestSuffixListCloneIsIndependent(t *testing.T) {
	sl := NewSuffixList(2)
	sl.Set(0, NodeID(5))
	cp := sl.Clone()
	cp.Set(0, NodeID(6))

	require.Equal(t, NodeID(5), sl.At(0))
	require.Equal(t, NodeID(6), cp.At(0))
}
