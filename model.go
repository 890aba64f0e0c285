package ppm

import (
	"log"

	"github.com/pkg/errors"
)

// ModelID and ContextID are opaque handles an Engine hands out; the zero
// value of each is never valid (PPM_valid_context/PPM_valid_model's NIL
// convention).
type ModelID uint32
type ContextID uint32

// CreateModelParams configures a new model (§4.E, §6's create_model).
type CreateModelParams struct {
	// AlphabetSize is the number of ordinary symbols in [0, AlphabetSize).
	// Zero means unbounded: symbols are assigned as they are first seen,
	// and order-0 scoring is delegated to a CPT instead of a trie node.
	AlphabetSize uint32
	// MaxOrder is the deepest context length the trie will materialize.
	// -1 models a degenerate order-(-1)-only model (every symbol is
	// uniformly likely; used mostly for tests).
	MaxOrder int
	// EscapeMethod selects the tcount/escape-mass accounting rule (§4.D).
	EscapeMethod EscapeMethod
	// FullExclusion and UpdateExclusion independently enable the two
	// exclusion disciplines described in §4.D.
	FullExclusion   bool
	UpdateExclusion bool
}

type modelState struct {
	alphabet     Alphabet
	maxOrder     int
	escapeMethod EscapeMethod
	fullExcl     bool
	updateExcl   bool
	dynamic      bool
	trie         *Trie
	cpt          *CPT // non-nil only for unbounded alphabets
	liveContexts int
}

type contextState struct {
	model  ModelID
	suffix *SuffixList
	pos    *Position
}

// Engine owns every Model and Context it creates — the Go analogue of the
// reference implementation's process-wide PPM_Models/PPM_Contexts
// registries, localized per instance so two Engines never share memory
// (§5's "Shared resources").
type Engine struct {
	models        map[ModelID]*modelState
	contexts      map[ContextID]*contextState
	nextModelID   ModelID
	nextContextID ContextID

	// Logger, if non-nil, receives opt-in diagnostic output (debug dumps).
	// Never used on any hot path; nil by default.
	Logger *log.Logger
}

// NewEngine returns an Engine with empty registries.
func NewEngine() *Engine {
	return &Engine{
		models:        make(map[ModelID]*modelState),
		contexts:      make(map[ContextID]*contextState),
		nextModelID:   1,
		nextContextID: 1,
	}
}

// CreateModel allocates a new dynamic model (create_model).
func (e *Engine) CreateModel(params CreateModelParams) (ModelID, error) {
	if !params.EscapeMethod.Valid() {
		return 0, errors.Wrap(ErrAlphabetMismatch, "create_model: unknown escape method")
	}
	if !params.EscapeMethod.Supported() {
		return 0, ErrEscapeMethodUnsupported
	}
	if params.MaxOrder < -1 {
		return 0, errors.Wrap(ErrAlphabetMismatch, "create_model: max_order must be >= -1")
	}

	m := &modelState{
		alphabet:     Alphabet{Size: params.AlphabetSize},
		maxOrder:     params.MaxOrder,
		escapeMethod: params.EscapeMethod,
		fullExcl:     params.FullExclusion,
		updateExcl:   params.UpdateExclusion,
		dynamic:      true,
		trie:         NewTrie(true),
	}
	if params.AlphabetSize == 0 {
		m.cpt = NewCPT()
	}

	id := e.nextModelID
	e.models[id] = m
	e.nextModelID++
	return id, nil
}

func (e *Engine) mustModel(id ModelID) (*modelState, error) {
	m, ok := e.models[id]
	if !ok {
		return nil, ErrInvalidModel
	}
	return m, nil
}

func (e *Engine) mustContext(id ContextID) (*contextState, *modelState, error) {
	ctx, ok := e.contexts[id]
	if !ok {
		return nil, nil, ErrInvalidContext
	}
	m, err := e.mustModel(ctx.model)
	if err != nil {
		return nil, nil, err
	}
	return ctx, m, nil
}

// ReleaseModel destroys a model (release_model). Fails while any context
// still references it.
func (e *Engine) ReleaseModel(id ModelID) error {
	m, err := e.mustModel(id)
	if err != nil {
		return err
	}
	if m.liveContexts > 0 {
		return ErrModelHasLiveContexts
	}
	delete(e.models, id)
	return nil
}

// CreateContext creates a fresh context over model id (create_context). A
// dynamic model admits only one live context at a time; CloneContext is
// the explicit escape hatch for more (§5).
func (e *Engine) CreateContext(id ModelID) (ContextID, error) {
	m, err := e.mustModel(id)
	if err != nil {
		return 0, err
	}
	if m.dynamic && m.liveContexts > 0 {
		return 0, errors.Wrap(ErrDynamicModelBusy, "create_context")
	}

	ctx := &contextState{model: id, suffix: NewSuffixList(m.maxOrder), pos: NewPosition()}
	ctx.suffix.Start()

	cid := e.nextContextID
	e.contexts[cid] = ctx
	e.nextContextID++
	m.liveContexts++
	return cid, nil
}

// ReleaseContext discards a context (not a named public operation in §6,
// but necessary bookkeeping so ReleaseModel's live-context check can ever
// succeed).
func (e *Engine) ReleaseContext(id ContextID) error {
	ctx, m, err := e.mustContext(id)
	if err != nil {
		return err
	}
	delete(e.contexts, id)
	m.liveContexts--
	_ = ctx
	return nil
}

// CopyContext duplicates a context (copy_context). Forbidden on a dynamic
// model: the convention exists to stop two contexts from racing to mutate
// the same dynamic trie, but per §9 it is enforced here as an explicit
// error, not a deeper safety property — CloneContext performs the
// identical deep copy unconditionally.
func (e *Engine) CopyContext(id ContextID) (ContextID, error) {
	_, m, err := e.mustContext(id)
	if err != nil {
		return 0, err
	}
	if m.dynamic {
		return 0, ErrCopyDynamicContext
	}
	return e.cloneContext(id)
}

// CloneContext duplicates a context, always permitted (clone_context).
func (e *Engine) CloneContext(id ContextID) (ContextID, error) {
	if _, _, err := e.mustContext(id); err != nil {
		return 0, err
	}
	return e.cloneContext(id)
}

func (e *Engine) cloneContext(id ContextID) (ContextID, error) {
	ctx, m, _ := e.mustContext(id)
	cp := &contextState{model: ctx.model, suffix: ctx.suffix.Clone(), pos: ctx.pos.Clone()}
	cid := e.nextContextID
	e.contexts[cid] = cp
	e.nextContextID++
	m.liveContexts++
	return cid, nil
}

// FindSymbol computes the codelength sym would cost at ctx without
// mutating anything (find_symbol, CodingFindCodelength shape).
func (e *Engine) FindSymbol(cid ContextID, sym Symbol) (float64, error) {
	ctx, m, err := e.mustContext(cid)
	if err != nil {
		return 0, err
	}
	if sym.IsReserved() && sym != Sentinel {
		return 0, ErrInvalidSymbol
	}
	if !m.alphabet.Valid(sym) && sym != Sentinel {
		return 0, ErrInvalidSymbol
	}
	if _, err := e.walk(m, ctx, sym, false, nil, false, false); err != nil {
		return 0, err
	}
	return ctx.pos.Codelength, nil
}

// FindCoderanges is FindSymbol's coderange-accumulating sibling
// (supplemented feature 5: callers that need the full coderange list, not
// just a scalar, opt into the extra allocation explicitly).
func (e *Engine) FindCoderanges(cid ContextID, sym Symbol) ([]Coderange, error) {
	ctx, m, err := e.mustContext(cid)
	if err != nil {
		return nil, err
	}
	if !m.alphabet.Valid(sym) && sym != Sentinel {
		return nil, ErrInvalidSymbol
	}
	if _, err := e.walk(m, ctx, sym, false, nil, false, true); err != nil {
		return nil, err
	}
	out := make([]Coderange, len(ctx.pos.Coderanges))
	copy(out, ctx.pos.Coderanges)
	return out, nil
}

// UpdateContext performs the same walk as FindSymbol, then mutates the
// trie, suffix list, and input log to account for sym having occurred
// (update_context). Forbidden on a static model.
func (e *Engine) UpdateContext(cid ContextID, sym Symbol) error {
	ctx, m, err := e.mustContext(cid)
	if err != nil {
		return err
	}
	if !m.dynamic {
		return ErrStaticModelImmutable
	}
	if !m.alphabet.Valid(sym) && sym != Sentinel {
		return ErrInvalidSymbol
	}
	_, err = e.walk(m, ctx, sym, false, nil, true, false)
	return err
}

// EncodeSymbol performs update_context's walk, feeding every (lbnd, hbnd,
// total) triple produced along the way to coder, in descending-order
// sequence exactly matching what DecodeSymbol will later read back
// (encode_symbol).
func (e *Engine) EncodeSymbol(cid ContextID, coder Coder, sym Symbol) error {
	ctx, m, err := e.mustContext(cid)
	if err != nil {
		return err
	}
	if !m.dynamic {
		return ErrStaticModelImmutable
	}
	if !m.alphabet.Valid(sym) && sym != Sentinel {
		return ErrInvalidSymbol
	}
	_, err = e.walk(m, ctx, sym, false, coder, true, false)
	return err
}

// DecodeSymbol is EncodeSymbol's inverse: it has no symbol to look for, and
// instead discovers one by repeatedly asking coder where the next target
// falls (decode_symbol).
func (e *Engine) DecodeSymbol(cid ContextID, coder Coder) (Symbol, error) {
	ctx, m, err := e.mustContext(cid)
	if err != nil {
		return 0, err
	}
	if !m.dynamic {
		return 0, ErrStaticModelImmutable
	}
	return e.walk(m, ctx, 0, true, coder, true, false)
}

// FindMaxorder scores sym using only the context's top tracked order,
// bypassing the escape cascade entirely (CodingFindMaxorder, the legacy
// Context_Operation shortcut named in §6/§4.D — useful when a caller only
// ever cares about the highest-order prediction, e.g. quick perplexity
// estimates over a fixed window).
func (e *Engine) FindMaxorder(cid ContextID, sym Symbol) (float64, error) {
	return e.maxorderWalk(cid, sym, false)
}

// UpdateMaxorder is FindMaxorder's mutating counterpart
// (CodingUpdateMaxorder): it scores and then applies the same structural
// update UpdateContext would, without ever having walked past the top
// order to get there.
func (e *Engine) UpdateMaxorder(cid ContextID, sym Symbol) error {
	_, err := e.maxorderWalk(cid, sym, true)
	return err
}

func (e *Engine) maxorderWalk(cid ContextID, sym Symbol, mutate bool) (float64, error) {
	ctx, m, err := e.mustContext(cid)
	if err != nil {
		return 0, err
	}
	if !m.alphabet.Valid(sym) && sym != Sentinel {
		return 0, ErrInvalidSymbol
	}
	if mutate && !m.dynamic {
		return 0, ErrStaticModelImmutable
	}

	ctx.suffix.Reset()
	node := ctx.suffix.At(0)
	pos := ctx.pos
	pos.Start(node)

	switch {
	case node == NodeRoot && !m.alphabet.Bounded():
		if _, _, err := e.walkCPT(m, pos, sym, false, nil, false); err != nil {
			return 0, err
		}
	case node == NodeNIL:
		if _, err := e.walkOrderMinus1(m, pos, sym, false, nil, false); err != nil {
			return 0, err
		}
	default:
		pos.ResetAtNode(m.trie, node, m.escapeMethod)
		if pos.Total > 0 {
			e.walkNode(pos, m.trie, node, sym, false, nil, false)
		}
	}

	if mutate {
		e.mutateContext(m, ctx, sym, 0)
	}
	return pos.Codelength, nil
}

// walk is the unified escape-step driver shared by every public scoring
// operation (find_symbol/update_context/encode_symbol/decode_symbol),
// grounded on PPM_find_position in Tawa-0.7/lib/pyTawa/ppm_context.c: it
// descends the suffix list from the highest currently-tracked order down
// through order -1, stopping at the first order that resolves reqSym (or,
// when decode is true, whatever symbol the coder's target lands on).
func (e *Engine) walk(m *modelState, ctx *contextState, reqSym Symbol, decode bool, coder Coder, mutate, recordRanges bool) (Symbol, error) {
	pos := ctx.pos
	ctx.suffix.Reset()
	node := ctx.suffix.At(0)
	pos.Start(node)

	matchedIdx := -1
	idx := 0
	var foundSym Symbol

	for {
		switch {
		case node == NodeNIL:
			sym, err := e.walkOrderMinus1(m, pos, reqSym, decode, coder, recordRanges)
			if err != nil {
				return 0, err
			}
			foundSym = sym
			goto DONE

		case node == NodeRoot && !m.alphabet.Bounded():
			sym, matched, err := e.walkCPT(m, pos, reqSym, decode, coder, recordRanges)
			if err != nil {
				return 0, err
			}
			if matched {
				foundSym = sym
				matchedIdx = idx
				goto DONE
			}
			node = NodeNIL
			continue

		default:
			pos.ResetAtNode(m.trie, node, m.escapeMethod)
			// A context with Total == 0 has never recorded a single
			// observation under this escape method's accounting (e.g. a
			// node just materialized by the previous update). Both
			// encoder and decoder already know it carries no information,
			// so it is skipped without spending any coding bits rather
			// than forming a degenerate zero-width range.
			if pos.Total > 0 {
				sym, matched := e.walkNode(pos, m.trie, node, reqSym, decode, coder, recordRanges)
				if matched {
					foundSym = sym
					matchedIdx = idx
					goto DONE
				}
			}
			if m.fullExcl {
				pos.MarkExcluded(m.trie, node)
			}
		}

		idx++
		next, ok := ctx.suffix.Next()
		if !ok {
			node = NodeNIL
		} else {
			node = next
		}
	}

DONE:
	if mutate {
		e.mutateContext(m, ctx, foundSym, matchedIdx)
	}
	return foundSym, nil
}

// walkNode runs one order level's scan over an ordinary trie node,
// returning the matched symbol (if any) and emitting exactly one
// (lbnd, hbnd, total) triple — either the match's own range or, if no
// match is present, the escape range (PPM_next_position +
// PPM_encode_position for a single order).
func (e *Engine) walkNode(pos *Position, trie *Trie, node NodeID, reqSym Symbol, decode bool, coder Coder, recordRanges bool) (Symbol, bool) {
	var target uint32
	if decode {
		target = coder.DecodeTarget(pos.Total)
	}
	match := func(s Symbol, _ ChildRef, count uint32) bool {
		if decode {
			return target < pos.Subtotal+count
		}
		return s == reqSym
	}
	found, sym, _ := pos.Next(trie, match)
	if found {
		lbnd, hbnd := pos.Subtotal, pos.Subtotal+pos.Count
		pos.Accumulate(lbnd, hbnd, pos.Total)
		if recordRanges {
			pos.RecordCoderange(lbnd, hbnd, pos.Total)
		}
		if coder != nil {
			if decode {
				coder.Decode(lbnd, hbnd, pos.Total)
			} else {
				coder.Encode(lbnd, hbnd, pos.Total)
			}
		}
		return sym, true
	}

	lbnd, hbnd, total := pos.Escape()
	pos.Accumulate(lbnd, hbnd, total)
	if recordRanges {
		pos.RecordCoderange(lbnd, hbnd, total)
	}
	if coder != nil {
		if decode {
			coder.Decode(lbnd, hbnd, total)
		} else {
			coder.Encode(lbnd, hbnd, total)
		}
	}
	return 0, false
}

// walkCPT is walkNode's counterpart for the unbounded-alphabet order-0
// level, delegated to the CPT instead of a trie node's symbol list.
func (e *Engine) walkCPT(m *modelState, pos *Position, reqSym Symbol, decode bool, coder Coder, recordRanges bool) (Symbol, bool, error) {
	cpt := m.cpt
	pos.Node = NodeRoot
	pos.Total = cpt.Total()

	var lbnd, count uint32
	var sym Symbol
	var isEscape bool

	if decode {
		target := coder.DecodeTarget(pos.Total)
		esc, _, s, l, c := cpt.Find(target)
		isEscape, sym, lbnd, count = esc, s, l, c
	} else {
		if reqSym == Sentinel {
			lbnd, count = cpt.SentinelLbnd(), cpt.SentinelCount()
		} else {
			lbnd, count = cpt.Lbnd(reqSym), cpt.Count(reqSym)
			if count == 0 {
				isEscape = true
				lbnd, count = cpt.EscapeLbnd(), cpt.EscapeCount()
			}
			sym = reqSym
		}
	}

	hbnd := lbnd + count
	pos.Accumulate(lbnd, hbnd, pos.Total)
	if recordRanges {
		pos.RecordCoderange(lbnd, hbnd, pos.Total)
	}
	if coder != nil {
		if decode {
			coder.Decode(lbnd, hbnd, pos.Total)
		} else {
			coder.Encode(lbnd, hbnd, pos.Total)
		}
	}
	if isEscape {
		return 0, false, nil
	}
	return sym, true, nil
}

// walkOrderMinus1 is the terminal level reached once every tracked suffix
// order (and, for unbounded alphabets, the CPT) has escaped. Bounded
// alphabets score it as a flat distribution over every non-excluded
// symbol plus one reserved unit for Sentinel; unbounded alphabets treat it
// as the deterministic assignment of the next not-yet-used ordinal — by
// definition there is nothing left to disambiguate, so it costs exactly
// one coding unit and never fails.
func (e *Engine) walkOrderMinus1(m *modelState, pos *Position, reqSym Symbol, decode bool, coder Coder, recordRanges bool) (Symbol, error) {
	if !m.alphabet.Bounded() {
		pos.Node, pos.Total = NodeNIL, 1
		if decode {
			coder.DecodeTarget(1)
			coder.Decode(0, 1, 1)
		} else if coder != nil {
			coder.Encode(0, 1, 1)
		}
		pos.Accumulate(0, 1, 1)
		if recordRanges {
			pos.RecordCoderange(0, 1, 1)
		}
		next := m.alphabet.MaxSymbol + 1
		if !m.alphabet.hasSeen() {
			next = 0
		}
		return Symbol(next), nil
	}

	pos.ResetAtOrderMinus1(m.alphabet.Size)
	if decode {
		target := coder.DecodeTarget(pos.Total)
		sym, lbnd, isSentinel := orderMinus1FindByTarget(pos.Exclusions, m.alphabet.Size, target)
		count := uint32(1)
		hbnd := lbnd + count
		pos.Accumulate(lbnd, hbnd, pos.Total)
		if recordRanges {
			pos.RecordCoderange(lbnd, hbnd, pos.Total)
		}
		coder.Decode(lbnd, hbnd, pos.Total)
		if isSentinel {
			return Sentinel, nil
		}
		return sym, nil
	}

	lbnd, isSentinel := orderMinus1Lbnd(pos.Exclusions, m.alphabet.Size, reqSym)
	hbnd := lbnd + 1
	pos.Accumulate(lbnd, hbnd, pos.Total)
	if recordRanges {
		pos.RecordCoderange(lbnd, hbnd, pos.Total)
	}
	if coder != nil {
		coder.Encode(lbnd, hbnd, pos.Total)
	}
	if isSentinel {
		return Sentinel, nil
	}
	return reqSym, nil
}

func orderMinus1Lbnd(excl *bitset, size uint32, reqSym Symbol) (lbnd uint32, isSentinel bool) {
	if reqSym == Sentinel {
		var cum uint32
		for s := Symbol(0); uint32(s) < size; s++ {
			if !excl.IsSet(s) {
				cum++
			}
		}
		return cum, true
	}
	var cum uint32
	for s := Symbol(0); s < reqSym; s++ {
		if !excl.IsSet(s) {
			cum++
		}
	}
	return cum, false
}

func orderMinus1FindByTarget(excl *bitset, size uint32, target uint32) (sym Symbol, lbnd uint32, isSentinel bool) {
	var cum uint32
	for s := Symbol(0); uint32(s) < size; s++ {
		if excl.IsSet(s) {
			continue
		}
		if target == cum {
			return s, cum, false
		}
		cum++
	}
	return 0, cum, true
}

// mutateContext performs update_context's structural side effects: every
// currently-tracked suffix entry is advanced by sym (materializing a new
// trie node where the implicit-context-tree rule allows it), tcount is
// incremented subject to update exclusion, the symbol is appended to the
// input log, and the suffix list grows a fresh order-0 tracker — or, for
// the sentinel, the suffix list is beheaded and the input log is left
// untouched (§4.B/§4.C/§4.E).
func (e *Engine) mutateContext(m *modelState, ctx *contextState, sym Symbol, matchedIdx int) {
	if sym == Sentinel {
		ctx.suffix.Behead()
		return
	}
	if !m.alphabet.Bounded() {
		m.cpt.IncrementSymbol(sym)
		m.alphabet.expand(sym)
	}

	inputPos := m.trie.UpdateInput(sym)
	length := ctx.suffix.Length()
	for idx := 0; idx < length; idx++ {
		node := ctx.suffix.At(idx)
		if node == NodeNIL {
			continue
		}
		if node == NodeRoot && !m.alphabet.Bounded() {
			// order 0 for unbounded alphabets is entirely owned by the
			// CPT; there is no trie node to advance into here.
			continue
		}
		if m.updateExcl && matchedIdx >= 0 && idx > matchedIdx {
			continue
		}

		// max_depth is the deepest suffix position a context is allowed to
		// keep tracking: one past max_order, since a dynamic model can
		// still materialize a node at depth max_order itself before being
		// forced to stop growing (PPM_update_context, ppm_context.c:644-690).
		// At or past it, the entry is dropped immediately, without even
		// searching its node's symbol list: SuffixList's backing array is
		// sized maxOrder+2 precisely so this position is always the last
		// one populated, and always the one this gate clears — guaranteeing
		// Repair always has a gap for Start to seed a fresh order-0 tracker
		// into next update, even when every other entry keeps matching.
		maxDepth := m.maxOrder
		if m.dynamic && m.maxOrder >= 0 {
			maxDepth = m.maxOrder + 1
		}
		if idx >= maxDepth {
			ctx.suffix.Drop(idx)
			continue
		}

		_, shead := m.trie.GetNode(node)
		sptr, child, _ := m.trie.FindSlist(shead, sym)

		switch {
		case sptr != NodeNIL && child.IsNode():
			m.trie.IncrementTCount(node, m.escapeMethod)
			ctx.suffix.Set(idx, child.Node())

		case sptr != NodeNIL && child.IsInput():
			if m.maxOrder < 0 || idx < m.maxOrder {
				newNode := m.trie.CreateNode()
				m.trie.PutSlist(sptr, childNode(newNode))
				m.trie.IncrementTCount(node, m.escapeMethod)
				ctx.suffix.Set(idx, newNode)
			} else {
				m.trie.IncrementTCount(node, m.escapeMethod)
				ctx.suffix.Drop(idx)
			}

		default:
			tail := m.trie.tailSlist(shead)
			m.trie.AddSlist(node, tail, sym, childInput(inputPos))
			m.trie.IncrementTCount(node, m.escapeMethod)
			ctx.suffix.Drop(idx)
		}
	}
	ctx.suffix.Repair()
	ctx.suffix.Start()
}
