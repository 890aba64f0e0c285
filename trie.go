package ppm

// Trie is the variable-depth context trie described in §3/§4.B: an
// arena-backed structure of symbol-list records grouped under trie nodes,
// with an input log enabling the "implicit context tree" optimization
// (a branch not yet materialized into nodes is represented by a negative
// ChildRef pointing into the input log instead).
//
// Two physical forms share the same node/ChildRef vocabulary:
//
//   - Dynamic: mutable, slist records carry an explicit next-pointer,
//     supports CreateNode/AddSlist/IncrementTCount.
//   - Static: frozen and compact, slist records have no next-pointer (the
//     list end is recognized from the symbol field itself — see
//     getSlistStatic), has no input log.
//
// Grounded on Tawa-0.7/Tawa/ppm_trie.c.
type Trie struct {
	Dynamic bool
	nodes   *arena
	input   []Symbol // 1-based: input[0] unused, matches T_input[1..input_len]
}

// NodeID indexes a trie node (dynamic form) or the count/symbol-list pair
// for a node (static form). NodeNIL (0) means "no node".
type NodeID = uint32

const (
	NodeNIL  NodeID = 0
	NodeRoot NodeID = 1 // TRIE_ROOT_NODE
)

const (
	determFactor = 3 // DETERM_FACTOR

	dynNodeWidth  = 2 // tcount, slist head
	dynNodeTCount = 0
	dynNodeSlist  = 1

	dynSlistWidth  = 3 // symbol, child, next
	dynSlistSymbol = 0
	dynSlistChild  = 1
	dynSlistNext   = 2

	staticNodeWidth = 1 // tcount only; symbol pairs follow inline
	staticPairWidth = 2 // symbol, child

	// specialSymbolMarker flags, in a static trie, that the slist's last
	// entry's symbol is literally 0 (which can't be sign-negated to mark
	// "last" the way any other symbol can).
	specialSymbolMarker int64 = -(1 << 62)
)

// ChildRef is the tagged sum type from §9: a non-negative value names a
// child trie node, a negative value names a position in the input log.
type ChildRef int64

// ChildNone is the empty/absent child.
const ChildNone ChildRef = 0

func childNode(n NodeID) ChildRef   { return ChildRef(n) }
func childInput(pos uint32) ChildRef { return -ChildRef(pos) }

// IsNode reports whether the ref names a materialized trie node.
func (c ChildRef) IsNode() bool { return c > 0 }

// IsInput reports whether the ref names a position in the input log.
func (c ChildRef) IsInput() bool { return c < 0 }

// Node returns the trie node this ref names (valid only if IsNode()).
func (c ChildRef) Node() NodeID { return NodeID(c) }

// InputPos returns the 1-based input-log position this ref names (valid
// only if IsInput()).
func (c ChildRef) InputPos() uint32 { return uint32(-c) }

// NewTrie creates an empty trie of the given form. A dynamic trie gets an
// empty root node allocated immediately (PPM_create_trie).
func NewTrie(dynamic bool) *Trie {
	t := &Trie{Dynamic: dynamic, nodes: newArena()}
	if dynamic {
		root := t.nodes.allocate(dynNodeWidth)
		t.nodes.set(root+dynNodeTCount, 0)
		t.nodes.set(root+dynNodeSlist, int64(NodeNIL))
		t.input = make([]Symbol, 1, 1024)
	}
	return t
}

// CreateNode allocates a new dynamic trie node with tcount=1 and an empty
// symbol list (PPM_create_trie_node). Valid for dynamic tries only.
func (t *Trie) CreateNode() NodeID {
	if !t.Dynamic {
		panic("ppm: CreateNode on a static trie")
	}
	node := t.nodes.allocate(dynNodeWidth)
	t.nodes.set(node+dynNodeTCount, 1)
	t.nodes.set(node+dynNodeSlist, int64(NodeNIL))
	return node
}

// UpdateInput appends symbol to the input log and returns its 1-based
// position (PPM_update_input).
func (t *Trie) UpdateInput(sym Symbol) uint32 {
	t.input = append(t.input, sym)
	return uint32(len(t.input) - 1)
}

// InputAt returns the symbol stored at a 1-based input-log position.
func (t *Trie) InputAt(pos uint32) Symbol { return t.input[pos] }

// InputLen returns the number of symbols recorded in the input log.
func (t *Trie) InputLen() int {
	if len(t.input) == 0 {
		return 0
	}
	return len(t.input) - 1
}

// GetNode returns the tcount and symbol-list head (sptr) for node
// (PPM_get_trie_node). NodeNIL yields (0, NIL).
func (t *Trie) GetNode(node NodeID) (tcount uint32, shead uint32) {
	if node == NodeNIL {
		return 0, NodeNIL
	}
	if t.Dynamic {
		tcount = uint32(t.nodes.get(node + dynNodeTCount))
		shead = uint32(t.nodes.get(node + dynNodeSlist))
		return
	}
	tcount = uint32(t.nodes.get(node + staticNodeWidth - 1))
	if tcount != 0 {
		shead = node + staticNodeWidth
	}
	return
}

// GetSlist decodes one symbol-list record at sptr, returning the symbol, its
// child ref, and the slist pointer of the next record (NodeNIL if none).
// For a static trie, "next" is synthesized unless the symbol field carries
// the end-of-list mark (PPM_get_slist).
func (t *Trie) GetSlist(sptr uint32) (sym Symbol, child ChildRef, next uint32) {
	if sptr == NodeNIL {
		return 0, ChildNone, NodeNIL
	}
	if t.Dynamic {
		rawSym := t.nodes.get(sptr + dynSlistSymbol)
		return Symbol(rawSym), ChildRef(t.nodes.get(sptr + dynSlistChild)), uint32(t.nodes.get(sptr + dynSlistNext))
	}

	rawSym := t.nodes.get(sptr + 0)
	child = ChildRef(t.nodes.get(sptr + 1))
	switch {
	case rawSym == specialSymbolMarker:
		sym = 0
		next = NodeNIL
	case rawSym < 0:
		sym = Symbol(-rawSym)
		next = NodeNIL
	default:
		sym = Symbol(rawSym)
		next = sptr + staticPairWidth
	}
	return
}

// PutSlist overwrites the child ref stored at sptr in place
// (PPM_put_slist) — used when lazily materializing a node below an
// input-pointer child, or rewriting input-log references during
// compaction.
func (t *Trie) PutSlist(sptr uint32, child ChildRef) {
	offset := dynSlistChild
	if !t.Dynamic {
		offset = 1
	}
	t.nodes.set(sptr+uint32(offset), int64(child))
}

// FindSlist linearly scans the symbol list starting at head for sym,
// returning its slist pointer (or NodeNIL), its child, and the slist
// pointer of the record immediately before it (PPM_find_slist). Dynamic
// tries only (static tries are never searched this way in this
// implementation — they're only walked in order during scoring).
func (t *Trie) FindSlist(head uint32, sym Symbol) (sptr uint32, child ChildRef, prev uint32) {
	cur := head
	var p uint32 = NodeNIL
	for cur != NodeNIL {
		s, c, next := t.GetSlist(cur)
		if s == sym {
			return cur, c, p
		}
		p = cur
		cur = next
	}
	return NodeNIL, ChildNone, p
}

// AddSlist appends a new (symbol, child) record to node's symbol list,
// after tail (or as the new head if tail is NodeNIL) (PPM_add_slist).
// Dynamic tries only.
func (t *Trie) AddSlist(node NodeID, tail uint32, sym Symbol, child ChildRef) uint32 {
	snew := t.nodes.allocate(dynSlistWidth)
	t.nodes.set(snew+dynSlistSymbol, int64(sym))
	t.nodes.set(snew+dynSlistChild, int64(child))
	t.nodes.set(snew+dynSlistNext, int64(NodeNIL))

	if tail != NodeNIL {
		t.nodes.set(tail+dynSlistNext, int64(snew))
	} else {
		t.nodes.set(node+dynNodeSlist, int64(snew))
	}
	return snew
}

// tailSlist returns the last record pointer in the list starting at head,
// or NodeNIL if the list is empty — the value AddSlist expects as its tail
// argument to append in O(1) amortized per update (the caller is expected
// to keep its own tail around across calls; this helper is for the rare
// case where it wasn't cached).
func (t *Trie) tailSlist(head uint32) uint32 {
	if head == NodeNIL {
		return NodeNIL
	}
	cur := head
	for {
		_, _, next := t.GetSlist(cur)
		if next == NodeNIL {
			return cur
		}
		cur = next
	}
}

// CountSlist returns the number of records in the symbol list starting at
// shead (PPM_count_slist).
func (t *Trie) CountSlist(shead uint32) uint32 {
	var n uint32
	for sptr := shead; sptr != NodeNIL; n++ {
		_, _, next := t.GetSlist(sptr)
		sptr = next
	}
	return n
}

// GetTrieCount computes the scaled count contributed by a single symbol-list
// entry when forming an (lbnd, hbnd, total) triple: an input-log child
// (or the order-(-1) sentinel node == NodeNIL) always counts 1; a
// materialized child node contributes its tcount, scaled by determFactor
// when it is the sole, fully-resolved entry in its own symbol list — the
// "deterministic context" boost (PPM_get_trie_count).
func (t *Trie) GetTrieCount(node NodeID, child ChildRef, sptr, nextSptr uint32) uint32 {
	if node == NodeNIL {
		return 1
	}
	if !child.IsNode() {
		return 1
	}
	tcount, _ := t.GetNode(child.Node())
	_, shead := t.GetNode(node)
	deterministic := nextSptr == NodeNIL && sptr == shead
	if deterministic && tcount > 1 {
		tcount *= determFactor
	}
	return tcount
}

// IncrementTCount adds the escape method's per-symbol increment to node's
// total count (PPM_increment_trie_node). Dynamic tries only.
func (t *Trie) IncrementTCount(node NodeID, method EscapeMethod) {
	t.nodes.set(node+dynNodeTCount, t.nodes.get(node+dynNodeTCount)+int64(method.tcountIncrement()))
}

// FindTrieNode finds the symbol-list position for symbol at node, but only
// ever matches entries whose child is a materialized node (never an input
// pointer) — PPM_find_trie_node. Returns NodeNIL if there's no such entry.
func (t *Trie) FindTrieNode(node NodeID, symbol Symbol) uint32 {
	_, sptr := t.GetNode(node)
	for sptr != NodeNIL {
		sym, child, next := t.GetSlist(sptr)
		if sym == symbol && child.IsNode() {
			return sptr
		}
		sptr = next
	}
	return NodeNIL
}
