package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocateStableIDs(t *testing.T) {
	a := newArena()
	first := a.allocate(2)
	a.set(first, 10)
	a.set(first+1, 20)

	// Force enough growth to guarantee at least one realloc.
	var last uint32
	for i := 0; i < 200; i++ {
		last = a.allocate(2)
		a.set(last, int64(i))
	}

	require.Equal(t, int64(10), a.get(first))
	require.Equal(t, int64(20), a.get(first+1))
	require.Equal(t, int64(199), a.get(last))
}

func TestArenaRawAndLoadRaw(t *testing.T) {
	a := newArena()
	n1 := a.allocate(1)
	a.set(n1, 42)
	n2 := a.allocate(1)
	a.set(n2, 43)

	raw := a.raw()
	require.Len(t, raw, int(a.size()))

	cp := newArena()
	cp.loadRaw(raw, a.size())
	require.Equal(t, a.get(n1), cp.get(n1))
	require.Equal(t, a.get(n2), cp.get(n2))
}
