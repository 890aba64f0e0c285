package ppm

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeCoderRoundtripUniform(t *testing.T) {
	const total = 100
	symbols := []uint32{5, 5, 50, 90, 3, 99, 0, 1, 42, 77}

	var buf bytes.Buffer
	enc := NewRangeEncoder(&buf)
	for _, s := range symbols {
		enc.Encode(s, s+1, total)
	}
	enc.Finish()

	dec := NewRangeDecoder(bytes.NewReader(buf.Bytes()))
	for _, want := range symbols {
		target := dec.DecodeTarget(total)
		require.Equal(t, want, target)
		dec.Decode(want, want+1, total)
	}
	require.NoError(t, dec.Err())
}

func TestRangeCoderRoundtripPseudorandomRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	type step struct{ lbnd, hbnd, total uint32 }
	var steps []step
	for i := 0; i < 500; i++ {
		total := uint32(2 + rng.Intn(1000))
		lbnd := uint32(rng.Intn(int(total)))
		hbnd := lbnd + 1 + uint32(rng.Intn(int(total-lbnd)))
		steps = append(steps, step{lbnd, hbnd, total})
	}

	var buf bytes.Buffer
	enc := NewRangeEncoder(&buf)
	for _, s := range steps {
		enc.Encode(s.lbnd, s.hbnd, s.total)
	}
	enc.Finish()

	dec := NewRangeDecoder(bytes.NewReader(buf.Bytes()))
	for _, s := range steps {
		target := dec.DecodeTarget(s.total)
		require.GreaterOrEqual(t, target, s.lbnd)
		require.Less(t, target, s.hbnd)
		dec.Decode(s.lbnd, s.hbnd, s.total)
	}
}

func TestRangeEncoderPanicsOnInvalidRange(t *testing.T) {
	var buf bytes.Buffer
	enc := NewRangeEncoder(&buf)
	require.PanicsWithValue(t, ErrCoderRangeOverflow, func() {
		enc.Encode(5, 5, 10) // lbnd == hbnd is never a valid range
	})
}

func TestMaxFreqConstant(t *testing.T) {
	enc := NewRangeEncoder(&bytes.Buffer{})
	require.Equal(t, uint32(MaxFreq), enc.MaxFreq())
}
