package ppm

import "math"

// bitset is a growable set of Symbol values used to track exclusions
// during a scoring walk. Grounded on Tawa-0.7/Tawa/bits.h's bits_type,
// which grows a word array by a 6/5 factor on demand; this keeps the same
// growth ratio.
type bitset struct {
	words []uint64
}

func newBitset() *bitset { return &bitset{} }

func (b *bitset) ensure(word int) {
	if word < len(b.words) {
		return
	}
	size := len(b.words)
	if size == 0 {
		size = 4
	}
	for size <= word {
		size = 6 * size / 5
		if size <= word {
			size = word + 1
		}
	}
	grown := make([]uint64, size)
	copy(grown, b.words)
	b.words = grown
}

// Set marks sym as excluded.
func (b *bitset) Set(sym Symbol) {
	w := int(sym / 64)
	b.ensure(w)
	b.words[w] |= 1 << (uint(sym) % 64)
}

// IsSet reports whether sym has been excluded.
func (b *bitset) IsSet(sym Symbol) bool {
	w := int(sym / 64)
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<(uint(sym)%64)) != 0
}

// Clear resets every bit without releasing the backing storage.
func (b *bitset) Clear() {
	for i := range b.words {
		b.words[i] = 0
	}
}

// Count returns the number of excluded symbols.
func (b *bitset) Count() uint32 {
	var n uint32
	for _, w := range b.words {
		for w != 0 {
			w &= w - 1
			n++
		}
	}
	return n
}

// CodingType selects what encode_position actually does with a computed
// (lbnd, hbnd, total) triple (§4.D, §6's legacy Context_Operation modes).
type CodingType uint8

const (
	// CodingUpdate performs no coding work at all — the walk exists only
	// to mutate the trie/suffix list/input log.
	CodingUpdate CodingType = iota
	// CodingEncode drives the arithmetic coder's Encode.
	CodingEncode
	// CodingDecode drives the arithmetic coder's DecodeTarget/Decode.
	CodingDecode
	// CodingFindCodelength accumulates codelength only (no coderanges, no
	// coder calls) — the cheap entropy-estimation fast path (supplemented
	// feature 5 in SPEC_FULL.md).
	CodingFindCodelength
	// CodingFindCoderanges accumulates both codelength and the full
	// coderange list.
	CodingFindCoderanges
	// CodingUpdateMaxorder bypasses escape accounting entirely and scores
	// as if only the top-order context existed.
	CodingUpdateMaxorder
	// CodingFindMaxorder is CodingUpdateMaxorder without the trie mutation.
	CodingFindMaxorder
)

// Coderange is one (lbnd, hbnd, total) triple recorded during a
// CodingFindCoderanges/CodingUpdateCoderanges walk.
type Coderange struct {
	Lbnd, Hbnd, Total uint32
}

// Codelength computes -log2((hbnd-lbnd)/total), the number of bits an
// ideal arithmetic coder spends on a symbol occupying that sub-range
// (Tawa-0.7/Tawa/coderanges.c's Codelength).
func Codelength(lbnd, hbnd, total uint32) float64 {
	return -math.Log2(float64(hbnd-lbnd) / float64(total))
}

// Position is the transient per-escape-step scoring record driving one
// order level of a find/update walk (§4.D). A single Position is reused
// across every order visited during one symbol's walk; ResetAtNode/
// ResetAtOrderMinus1 re-home it at the next order down on escape.
//
// Grounded on struct PPM_positionType and PPM_start_position/
// PPM_reset_position/PPM_next_position/PPM_encode_position in
// Tawa-0.7/lib/pyTawa/ppm_context.c.
type Position struct {
	Node     NodeID
	Sptr     uint32 // current slist pointer; NodeNIL means "not yet started"
	Count    uint32
	Subtotal uint32
	Total    uint32

	Exclusions *bitset

	Codelength       float64
	EscapeCodelength float64
	Coderanges       []Coderange
}

// NewPosition returns a fresh position with an empty exclusion set and
// zeroed accumulators (PPM_start_position's allocation half).
func NewPosition() *Position {
	return &Position{Exclusions: newBitset()}
}

// Start re-homes the position at the start of a brand new walk: clears
// exclusions and codelength accumulators. node is the highest-order
// suffix node the walk will begin descending from.
func (p *Position) Start(node NodeID) {
	p.Node = node
	p.Sptr = NodeNIL
	p.Count = 0
	p.Subtotal = 0
	p.Total = 0
	p.Exclusions.Clear()
	p.Codelength = 0
	p.EscapeCodelength = 0
	p.Coderanges = p.Coderanges[:0]
}

// ResetAtOrderMinus1 computes Total for the order -1 fallback level of a
// bounded alphabet: every non-excluded symbol shares the remaining mass
// uniformly, plus one unit reserved for the sentinel/break symbol.
func (p *Position) ResetAtOrderMinus1(alphabetSize uint32) {
	p.Node = NodeNIL
	p.Sptr = NodeNIL
	p.Subtotal = 0
	excluded := p.Exclusions.Count()
	remaining := alphabetSize
	if excluded < remaining {
		remaining -= excluded
	} else {
		remaining = 0
	}
	p.Total = remaining + 1
}

// ResetAtNode computes Total for an ordinary trie node by walking its
// symbol list once, summing GetTrieCount for every non-excluded entry and
// folding in the escape method's mass (PPM_reset_position's non-CPT,
// non-order-(-1) branch).
func (p *Position) ResetAtNode(trie *Trie, node NodeID, method EscapeMethod) {
	p.Node = node
	p.Sptr = NodeNIL
	p.Subtotal = 0

	_, shead := trie.GetNode(node)
	var total uint32
	var distinct uint32
	for sptr := shead; sptr != NodeNIL; {
		sym, child, next := trie.GetSlist(sptr)
		if !p.Exclusions.IsSet(sym) {
			total += trie.GetTrieCount(node, child, sptr, next)
			distinct++
		}
		sptr = next
	}
	switch {
	case method == EscapeA:
		total++
	case method.perSymbolEscape():
		total += distinct
	}
	p.Total = total
}

// Next scans forward through node's symbol list from the current cursor,
// accumulating Subtotal over skipped (non-matching, non-excluded) entries.
// match decides whether the entry just examined is the one the walk is
// looking for; Next stops and reports it (leaving Subtotal as the lower
// bound, Count as its width) the first time match returns true, or returns
// found=false once the list is exhausted.
func (p *Position) Next(trie *Trie, match func(sym Symbol, child ChildRef, count uint32) bool) (found bool, sym Symbol, child ChildRef) {
	sptr := p.Sptr
	if sptr == NodeNIL {
		_, sptr = trie.GetNode(p.Node)
	} else {
		_, _, sptr = trie.GetSlist(sptr)
	}
	for sptr != NodeNIL {
		s, c, next := trie.GetSlist(sptr)
		if p.Exclusions.IsSet(s) {
			sptr = next
			continue
		}
		count := trie.GetTrieCount(p.Node, c, sptr, next)
		if match(s, c, count) {
			p.Sptr = sptr
			p.Count = count
			return true, s, c
		}
		p.Subtotal += count
		sptr = next
	}
	p.Sptr = NodeNIL
	return false, 0, ChildNone
}

// MarkExcluded records every distinct, non-input-pointer symbol at node
// into the exclusion set, implementing full exclusion's "symbols found at
// higher order are excluded from lower-order totals" rule (§4.D).
func (p *Position) MarkExcluded(trie *Trie, node NodeID) {
	_, sptr := trie.GetNode(node)
	for sptr != NodeNIL {
		sym, _, next := trie.GetSlist(sptr)
		p.Exclusions.Set(sym)
		sptr = next
	}
}

// Escape returns the (lbnd, hbnd, total) triple for an escape event at the
// current order: the remaining mass after every matched symbol's range is
// the escape's own range.
func (p *Position) Escape() (lbnd, hbnd, total uint32) {
	return p.Subtotal, p.Total, p.Total
}

// Accumulate folds one (lbnd, hbnd, total) triple into the running
// codelength under the same rule PPM_encode_position uses for
// FIND_CODELENGTH_TYPE: an escape step (hbnd == total) only grows the
// escape-codelength carry; a matching step closes it out.
func (p *Position) Accumulate(lbnd, hbnd, total uint32) {
	if hbnd != total {
		p.Codelength = p.EscapeCodelength + Codelength(lbnd, hbnd, total)
	} else {
		p.EscapeCodelength += Codelength(lbnd, hbnd, total)
		p.Codelength = p.EscapeCodelength
	}
}

// RecordCoderange appends a triple to the position's coderange list, used
// under CodingFindCoderanges/CodingUpdateCoderanges (TLM_append_coderange).
func (p *Position) RecordCoderange(lbnd, hbnd, total uint32) {
	p.Coderanges = append(p.Coderanges, Coderange{lbnd, hbnd, total})
}

// Clone returns an independent deep copy (PPM_copy_position), used by
// Context.CloneContext.
func (p *Position) Clone() *Position {
	cp := &Position{
		Node: p.Node, Sptr: p.Sptr, Count: p.Count,
		Subtotal: p.Subtotal, Total: p.Total,
		Exclusions:       &bitset{words: append([]uint64(nil), p.Exclusions.words...)},
		Codelength:       p.Codelength,
		EscapeCodelength: p.EscapeCodelength,
		Coderanges:       append([]Coderange(nil), p.Coderanges...),
	}
	return cp
}
