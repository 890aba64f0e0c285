package ppm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBoundedEngine(t *testing.T) (*Engine, ModelID) {
	t.Helper()
	eng := NewEngine()
	model, err := eng.CreateModel(CreateModelParams{AlphabetSize: 8, MaxOrder: 3, EscapeMethod: EscapeD})
	require.NoError(t, err)
	return eng, model
}

func TestCreateModelRejectsEscapeB(t *testing.T) {
	eng := NewEngine()
	_, err := eng.CreateModel(CreateModelParams{AlphabetSize: 4, MaxOrder: 1, EscapeMethod: EscapeB})
	require.ErrorIs(t, err, ErrEscapeMethodUnsupported)
}

func TestCreateModelRejectsBadMaxOrder(t *testing.T) {
	eng := NewEngine()
	_, err := eng.CreateModel(CreateModelParams{AlphabetSize: 4, MaxOrder: -2, EscapeMethod: EscapeA})
	require.Error(t, err)
}

func TestEncodeDecodeRoundtripBoundedAlphabet(t *testing.T) {
	eng, model := newBoundedEngine(t)
	input := []Symbol{1, 2, 3, 1, 2, 3, 1, 2, 7, 0, 5}

	encCtx, err := eng.CreateContext(model)
	require.NoError(t, err)
	var buf bytes.Buffer
	enc := NewRangeEncoder(&buf)
	for _, s := range input {
		require.NoError(t, eng.EncodeSymbol(encCtx, enc, s))
	}
	enc.Finish()
	require.NoError(t, eng.ReleaseContext(encCtx))

	decCtx, err := eng.CreateContext(model)
	require.NoError(t, err)
	dec := NewRangeDecoder(bytes.NewReader(buf.Bytes()))
	for _, want := range input {
		got, err := eng.DecodeSymbol(decCtx, dec)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestFindSymbolDoesNotMutate(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	require.NoError(t, eng.UpdateContext(ctx, Symbol(2)))
	cl1, err := eng.FindSymbol(ctx, Symbol(3))
	require.NoError(t, err)
	cl2, err := eng.FindSymbol(ctx, Symbol(3))
	require.NoError(t, err)
	require.Equal(t, cl1, cl2, "find_symbol must be idempotent")
	require.Greater(t, cl1, 0.0)
}

func TestFindCoderangesReturnsAtLeastOneTriple(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	ranges, err := eng.FindCoderanges(ctx, Symbol(4))
	require.NoError(t, err)
	require.NotEmpty(t, ranges)
	for _, r := range ranges {
		require.Less(t, r.Lbnd, r.Hbnd)
		require.LessOrEqual(t, r.Hbnd, r.Total)
	}
}

func TestDynamicModelAllowsOnlyOneLiveContext(t *testing.T) {
	eng, model := newBoundedEngine(t)
	_, err := eng.CreateContext(model)
	require.NoError(t, err)

	_, err = eng.CreateContext(model)
	require.ErrorIs(t, err, ErrDynamicModelBusy)
}

func TestCloneContextAlwaysPermittedCopyContextForbiddenOnDynamic(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)
	require.NoError(t, eng.UpdateContext(ctx, Symbol(1)))

	_, err = eng.CopyContext(ctx)
	require.ErrorIs(t, err, ErrCopyDynamicContext)

	clone, err := eng.CloneContext(ctx)
	require.NoError(t, err)
	require.NotEqual(t, ctx, clone)
}

func TestReleaseModelFailsWithLiveContexts(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	require.ErrorIs(t, eng.ReleaseModel(model), ErrModelHasLiveContexts)

	require.NoError(t, eng.ReleaseContext(ctx))
	require.NoError(t, eng.ReleaseModel(model))
	_, err = eng.CreateContext(model)
	require.ErrorIs(t, err, ErrInvalidModel)
}

func TestSentinelBeheadsSuffixListWithoutTouchingInputLog(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	require.NoError(t, eng.UpdateContext(ctx, Symbol(1)))
	require.NoError(t, eng.UpdateContext(ctx, Symbol(2)))
	lenBefore := eng.contexts[ctx].suffix.Length()
	require.Greater(t, lenBefore, 1)

	require.NoError(t, eng.UpdateContext(ctx, Sentinel))
	require.Equal(t, 1, eng.contexts[ctx].suffix.Length())
	require.Equal(t, NodeRoot, eng.contexts[ctx].suffix.At(0))
}

func TestMutateContextDropsSuffixEntryWithNoMatchingChild(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	require.NoError(t, eng.UpdateContext(ctx, Symbol(1)))
	require.Equal(t, 1, eng.contexts[ctx].suffix.Length(),
		"a symbol never seen before at root must drop its suffix entry unconditionally, not leave a duplicate root behind")
	require.Equal(t, NodeRoot, eng.contexts[ctx].suffix.At(0))

	require.NoError(t, eng.UpdateContext(ctx, Symbol(2)))
	require.Equal(t, 1, eng.contexts[ctx].suffix.Length())
	require.Equal(t, NodeRoot, eng.contexts[ctx].suffix.At(0))
}

func TestSuffixListNeverPermanentlyFills(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, eng.UpdateContext(ctx, Symbol(1)))
	}

	sl := eng.contexts[ctx].suffix
	require.LessOrEqual(t, sl.Length(), 5, "backing array is sized maxOrder+2 and must never overflow")
	require.Equal(t, NodeRoot, sl.At(sl.Length()-1),
		"Start must keep seeding a fresh order-0 tracker every update, even after a long repeating run")
}

func TestUnboundedAlphabetEncodeDecodeRoundtrip(t *testing.T) {
	eng := NewEngine()
	model, err := eng.CreateModel(CreateModelParams{MaxOrder: 2, EscapeMethod: EscapeD})
	require.NoError(t, err)

	input := []Symbol{0, 1, 0, 2, 1, 3, 0}

	encCtx, err := eng.CreateContext(model)
	require.NoError(t, err)
	var buf bytes.Buffer
	enc := NewRangeEncoder(&buf)
	for _, s := range input {
		require.NoError(t, eng.EncodeSymbol(encCtx, enc, s))
	}
	enc.Finish()
	require.NoError(t, eng.ReleaseContext(encCtx))

	decCtx, err := eng.CreateContext(model)
	require.NoError(t, err)
	dec := NewRangeDecoder(bytes.NewReader(buf.Bytes()))
	for _, want := range input {
		got, err := eng.DecodeSymbol(decCtx, dec)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestOrderMinus1ModelIsUniform(t *testing.T) {
	eng := NewEngine()
	model, err := eng.CreateModel(CreateModelParams{AlphabetSize: 4, MaxOrder: -1, EscapeMethod: EscapeA})
	require.NoError(t, err)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)

	cl0, err := eng.FindSymbol(ctx, Symbol(0))
	require.NoError(t, err)
	cl1, err := eng.FindSymbol(ctx, Symbol(1))
	require.NoError(t, err)
	require.InDelta(t, cl0, cl1, 1e-9, "order -1 scores every symbol identically before any updates")
}

func TestMaxorderBypassesEscapeCascade(t *testing.T) {
	eng, model := newBoundedEngine(t)
	ctx, err := eng.CreateContext(model)
	require.NoError(t, err)
	require.NoError(t, eng.UpdateContext(ctx, Symbol(2)))

	cl, err := eng.FindMaxorder(ctx, Symbol(2))
	require.NoError(t, err)
	require.Greater(t, cl, 0.0)

	require.NoError(t, eng.UpdateMaxorder(ctx, Symbol(2)))
}
