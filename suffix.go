package ppm

// SuffixList is the per-context ordered list of active trie nodes described
// in §4.C: index 0 is the context's longest-lived, most-advanced tracker
// (the head, closest to the deepest matching order); each higher index was
// started more recently and has had fewer symbols to grow its order.
// update_context advances every live entry by one symbol in lock-step, so
// one pass touches exactly O(max_order) nodes instead of re-walking the
// whole history.
//
// Grounded on the suffix-list family of functions in
// Tawa-0.7/lib/pyTawa/ppm_context.c (PPM_create_suffixlist,
// PPM_start_suffix, PPM_drop_suffix, PPM_next_suffix, PPM_behead_suffixlist,
// PPM_repair_suffixlist). The compaction in Repair is a deliberate
// generalization of PPM_repair_suffixlist, which only ever compacts a gap
// left at the head; this version tolerates a drop at any index, which the
// reference never needed because it only ever dropped the head entry.
type SuffixList struct {
	nodes  []NodeID
	cursor int // -1 once exhausted past the last entry (order -1)
}

// NewSuffixList allocates a suffix list sized for maxOrder, all entries
// empty (PPM_create_suffixlist + PPM_init_suffixlist). A negative maxOrder
// (order -1 models) gets no suffix tracking at all.
func NewSuffixList(maxOrder int) *SuffixList {
	size := 0
	if maxOrder >= 0 {
		size = maxOrder + 2
	}
	return &SuffixList{nodes: make([]NodeID, size)}
}

// Length reports how many entries are currently populated
// (PPM_length_suffixlist).
func (sl *SuffixList) Length() int {
	if len(sl.nodes) == 0 || sl.nodes[0] == NodeNIL {
		return 0
	}
	s := len(sl.nodes) - 1
	for s > 0 && sl.nodes[s] == NodeNIL {
		s--
	}
	return s + 1
}

// Start appends a fresh entry pointing at the trie root just past the
// current populated run, unless the list is already at capacity
// (PPM_start_suffix). Also resets the walk cursor to the head.
func (sl *SuffixList) Start() {
	if len(sl.nodes) == 0 {
		return
	}
	s := 0
	if sl.nodes[0] != NodeNIL {
		s = len(sl.nodes) - 1
		for s > 0 && sl.nodes[s] == NodeNIL {
			s--
		}
		s++
	}
	if s < len(sl.nodes) {
		sl.nodes[s] = NodeRoot
	}
	sl.cursor = 0
}

// Behead truncates the list down to a single fresh entry at the root,
// discarding every tracked order (PPM_behead_suffixlist, used on the
// sentinel symbol to force a low-order restart per §4.C).
func (sl *SuffixList) Behead() {
	for i := range sl.nodes {
		sl.nodes[i] = NodeNIL
	}
	if len(sl.nodes) > 0 {
		sl.nodes[0] = NodeRoot
	}
	sl.cursor = 0
}

// Reset rewinds the walk cursor to the head without altering contents
// (PPM_reset_suffixlist).
func (sl *SuffixList) Reset() { sl.cursor = 0 }

// At returns the node currently tracked at index idx.
func (sl *SuffixList) At(idx int) NodeID {
	if idx < 0 || idx >= len(sl.nodes) {
		return NodeNIL
	}
	return sl.nodes[idx]
}

// Set overwrites the node tracked at index idx, e.g. after advancing it to
// a matched child during update_context.
func (sl *SuffixList) Set(idx int, node NodeID) {
	if idx >= 0 && idx < len(sl.nodes) {
		sl.nodes[idx] = node
	}
}

// Drop marks the entry at idx as dead; a later Repair call compacts it out
// (PPM_drop_suffix).
func (sl *SuffixList) Drop(idx int) { sl.Set(idx, NodeNIL) }

// Repair compacts out every dropped (NIL) entry, preserving the relative
// order of what remains (PPM_repair_suffixlist, generalized — see the type
// doc comment).
func (sl *SuffixList) Repair() {
	n := 0
	for _, v := range sl.nodes {
		if v != NodeNIL {
			sl.nodes[n] = v
			n++
		}
	}
	for ; n < len(sl.nodes); n++ {
		sl.nodes[n] = NodeNIL
	}
}

// Cursor reports the walk cursor's current index, or -1 if the walk has run
// past the last entry (order -1 reached).
func (sl *SuffixList) Cursor() int { return sl.cursor }

// Next advances the cursor and returns the node it now points to
// (PPM_next_suffix). ok is false once the cursor has walked off the end of
// the list, signalling order -1.
func (sl *SuffixList) Next() (node NodeID, ok bool) {
	sl.cursor++
	if sl.cursor < len(sl.nodes) {
		return sl.nodes[sl.cursor], true
	}
	sl.cursor = -1
	return NodeNIL, false
}

// Clone returns an independent deep copy, preserving the walk cursor
// (PPM_copy_suffixlist) — used by Context.CloneContext.
func (sl *SuffixList) Clone() *SuffixList {
	cp := &SuffixList{nodes: make([]NodeID, len(sl.nodes)), cursor: sl.cursor}
	copy(cp.nodes, sl.nodes)
	return cp
}
