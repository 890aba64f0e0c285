package ppm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeMethodValidAndSupported(t *testing.T) {
	require.True(t, EscapeA.Valid())
	require.True(t, EscapeB.Valid())
	require.True(t, EscapeC.Valid())
	require.True(t, EscapeD.Valid())
	require.False(t, EscapeMethod(99).Valid())

	require.True(t, EscapeA.Supported())
	require.False(t, EscapeB.Supported())
	require.True(t, EscapeC.Supported())
	require.True(t, EscapeD.Supported())
}

func TestEscapeMethodTCountIncrement(t *testing.T) {
	require.Equal(t, uint32(1), EscapeA.tcountIncrement())
	require.Equal(t, uint32(1), EscapeC.tcountIncrement())
	require.Equal(t, uint32(2), EscapeD.tcountIncrement())
}

func TestEscapeMethodPerSymbolEscape(t *testing.T) {
	require.False(t, EscapeA.perSymbolEscape())
	require.True(t, EscapeC.perSymbolEscape())
	require.True(t, EscapeD.perSymbolEscape())
}

func TestEscapeMethodString(t *testing.T) {
	require.Equal(t, "A", EscapeA.String())
	require.Equal(t, "D", EscapeD.String())
	require.Equal(t, "invalid", EscapeMethod(99).String())
}
