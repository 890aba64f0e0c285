package ppm

// CPT is the cumulative probability table used as the order-0/order-(-1)
// path for unbounded alphabets (§4.A): a Fenwick tree over a 1-based array
// where index 1 holds the escape mass, index 2 holds the sentinel's count,
// and index 3+s holds symbol s's count. Every operation below runs in
// O(log n).
//
// Escape policy (method D, the only one the reference ptable.c
// implements): escape mass equals the number of symbols seen exactly once
// plus one. That "plus one" is folded permanently into index 1's Fenwick
// value at construction time, so every subsequent singleton transition is
// just another ±1 point update through the same machinery used for
// ordinary symbols — there is no separate escape-count field to keep in
// sync.
//
// Grounded on Tawa-0.7/lib/pyTawa/ptable.c.
type CPT struct {
	tree      []uint32
	size      uint32 // highest in-use Fenwick index
	maxSymbol uint32
	hasSymbol bool
}

const (
	cptEscapeIdx   = 1
	cptSentinelIdx = 2
	cptSymbolBase  = 3
)

func forward(s uint32) uint32  { return s + (s & -s) }
func backward(s uint32) uint32 { return s & (s - 1) }

// NewCPT returns an empty table: no symbols seen, escape mass 1 (the fixed
// "+1" term with zero singletons), sentinel count 0.
func NewCPT() *CPT {
	c := &CPT{tree: make([]uint32, cptSymbolBase+1), size: cptSentinelIdx}
	c.tree[cptEscapeIdx] = 1
	c.add(cptSentinelIdx, 1) // sentinel always has a nonzero slot; see DESIGN.md
	return c
}

// Clone returns an independent copy (ptable_copy_table), used by
// Model.CloneContext to let an unbounded-alphabet model support multiple
// independently-evolving contexts.
func (c *CPT) Clone() *CPT {
	cp := &CPT{tree: make([]uint32, len(c.tree)), size: c.size, maxSymbol: c.maxSymbol, hasSymbol: c.hasSymbol}
	copy(cp.tree, c.tree)
	return cp
}

// ensureIndex grows the backing array, if needed, so that index n is
// addressable, using the same geometric-with-floor rule as arena.allocate.
// Appending zero-valued leaves to a Fenwick tree never disturbs existing
// prefix sums, so this is safe to do lazily as new symbols appear.
func (c *CPT) ensureIndex(n uint32) {
	if n >= uint32(len(c.tree)) {
		size := uint32(len(c.tree))
		for size <= n {
			size = 10 * (size + 50) / 9
		}
		grown := make([]uint32, size)
		copy(grown, c.tree)
		c.tree = grown
	}
	if n > c.size {
		c.size = n
	}
}

func (c *CPT) add(idx uint32, delta int64) {
	for ; idx <= c.size; idx = forward(idx) {
		c.tree[idx] = uint32(int64(c.tree[idx]) + delta)
	}
}

// prefixSum returns the cumulative count over Fenwick indices [1, idx].
func (c *CPT) prefixSum(idx uint32) uint32 {
	var sum uint32
	for ; idx > 0; idx = backward(idx) {
		sum += c.tree[idx]
	}
	return sum
}

// pointValue extracts a single index's own count back out of the tree
// (the standard Fenwick point-query-via-subtraction trick).
func (c *CPT) pointValue(idx uint32) uint32 {
	sum := c.tree[idx]
	z := backward(idx)
	idx--
	for idx != z {
		sum -= c.tree[idx]
		idx = backward(idx)
	}
	return sum
}

// Total returns the table's grand total, escape mass included.
func (c *CPT) Total() uint32 { return c.prefixSum(c.size) }

// EscapeLbnd and EscapeCount describe the escape sub-range, always first.
func (c *CPT) EscapeLbnd() uint32  { return 0 }
func (c *CPT) EscapeCount() uint32 { return c.pointValue(cptEscapeIdx) }

// SentinelLbnd and SentinelCount describe the sentinel sub-range.
func (c *CPT) SentinelLbnd() uint32  { return c.prefixSum(cptEscapeIdx) }
func (c *CPT) SentinelCount() uint32 { return c.pointValue(cptSentinelIdx) }

func symbolIdx(sym Symbol) uint32 { return cptSymbolBase + uint32(sym) }

// Lbnd and Count describe an ordinary symbol's sub-range. The symbol need
// not have been seen before; an unseen symbol has Count() == 0.
func (c *CPT) Lbnd(sym Symbol) uint32 {
	idx := symbolIdx(sym)
	if idx > c.size {
		return c.Total()
	}
	return c.prefixSum(idx - 1)
}

func (c *CPT) Count(sym Symbol) uint32 {
	idx := symbolIdx(sym)
	if idx > c.size {
		return 0
	}
	return c.pointValue(idx)
}

// IncrementSymbol records one more occurrence of sym, growing the table's
// active range if sym has never been seen, and maintaining the
// singleton/escape-mass bookkeeping described above.
func (c *CPT) IncrementSymbol(sym Symbol) {
	idx := symbolIdx(sym)
	c.ensureIndex(idx)
	before := c.pointValue(idx)
	c.add(idx, 1)
	switch before {
	case 0:
		c.add(cptEscapeIdx, 1) // a new singleton is born
	case 1:
		c.add(cptEscapeIdx, -1) // no longer a singleton
	}
	if !c.hasSymbol || uint32(sym) > c.maxSymbol {
		c.maxSymbol = uint32(sym)
		c.hasSymbol = true
	}
}

// IncrementSentinel records one more occurrence of the sentinel symbol.
// The sentinel never participates in escape-mass bookkeeping: it is a
// structural marker, not data the model predicts among "distinct symbols".
func (c *CPT) IncrementSentinel() { c.add(cptSentinelIdx, 1) }

// MaxSymbol reports the highest ordinary symbol ever recorded, and whether
// any symbol has been recorded at all.
func (c *CPT) MaxSymbol() (sym uint32, ok bool) { return c.maxSymbol, c.hasSymbol }

// Find locates the escape range, the sentinel, or an ordinary symbol whose
// half-open [lbnd, lbnd+count) range contains target (ptable_get_symbol).
// target must be < Total().
func (c *CPT) Find(target uint32) (isEscape, isSentinel bool, sym Symbol, lbnd, count uint32) {
	idx := c.findIndex(target)
	switch idx {
	case cptEscapeIdx:
		return true, false, 0, c.EscapeLbnd(), c.EscapeCount()
	case cptSentinelIdx:
		return false, true, 0, c.SentinelLbnd(), c.SentinelCount()
	default:
		sym = Symbol(idx - cptSymbolBase)
		return false, false, sym, c.Lbnd(sym), c.Count(sym)
	}
}

// findIndex is the classic Fenwick "find the leaf containing this prefix
// offset" binary-lift search: O(log n), no explicit prefix sums computed.
func (c *CPT) findIndex(target uint32) uint32 {
	var idx uint32
	bitmask := highestPow2LE(c.size)
	for ; bitmask != 0; bitmask >>= 1 {
		next := idx + bitmask
		if next <= c.size && c.tree[next] <= target {
			idx = next
			target -= c.tree[next]
		}
	}
	return idx + 1
}

func highestPow2LE(n uint32) uint32 {
	var p uint32 = 1
	for p*2 <= n {
		p *= 2
	}
	return p
}
