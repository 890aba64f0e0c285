package ppm

import (
	"bufio"
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// ModelForm selects the on-disk representation written by WriteModel
// (§4.G's model_form field).
type ModelForm uint32

const (
	FormStatic  ModelForm = 0
	FormDynamic ModelForm = 1
)

const (
	fileVersion  uint32 = 1
	modelTypePPM uint32 = 0x50504d31 // "PPM1"
)

var byteOrder = binary.LittleEndian

// fileWriter is a sticky-error writer: once a write fails every further
// call is a no-op returning the same error, so a serializer can be written
// as a flat sequence of calls with one error check at the end.
type fileWriter struct {
	w   *bufio.Writer
	err error
}

func (fw *fileWriter) u32(v uint32) {
	if fw.err != nil {
		return
	}
	var buf [4]byte
	byteOrder.PutUint32(buf[:], v)
	_, fw.err = fw.w.Write(buf[:])
}

func (fw *fileWriter) i32(v int32) { fw.u32(uint32(v)) }

func (fw *fileWriter) boolean(v bool) {
	if v {
		fw.u32(1)
	} else {
		fw.u32(0)
	}
}

func (fw *fileWriter) zstr(s string) {
	if fw.err != nil {
		return
	}
	if _, fw.err = io.WriteString(fw.w, s); fw.err != nil {
		return
	}
	_, fw.err = fw.w.Write([]byte{0})
}

// fileReader is fileWriter's sticky-error counterpart.
type fileReader struct {
	r   *bufio.Reader
	err error
}

func (fr *fileReader) u32() uint32 {
	if fr.err != nil {
		return 0
	}
	var buf [4]byte
	if _, fr.err = io.ReadFull(fr.r, buf[:]); fr.err != nil {
		return 0
	}
	return byteOrder.Uint32(buf[:])
}

func (fr *fileReader) i32() int32 { return int32(fr.u32()) }

func (fr *fileReader) boolean() bool { return fr.u32() != 0 }

func (fr *fileReader) zstr() string {
	if fr.err != nil {
		return ""
	}
	var buf []byte
	for {
		b, err := fr.r.ReadByte()
		if err != nil {
			fr.err = err
			return ""
		}
		if b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}

// WriteModel serializes the model named by id to w in the requested form
// (write_model). Writing Static from a Dynamic model triggers the
// dynamic→static compaction described in §4.G; writing Dynamic from a
// model that was itself loaded as Static is refused — a static trie keeps
// no input log to rebuild one from.
//
// Grounded on Tawa-0.7/Tawa/ppm_trie.c's PPM_write_trie/PPM_freeze_trie and
// Tawa-0.7/Tawa/model.c's PPM_write_model; the geometric-growth arena and
// the explicit version/model_type header follow the same style as
// axiomhq/fsst's MarshalBinary (a fixed header, then raw table bytes).
func (e *Engine) WriteModel(w io.Writer, id ModelID, form ModelForm, title string) error {
	m, err := e.mustModel(id)
	if err != nil {
		return err
	}
	if form == FormDynamic && !m.dynamic {
		return errors.Wrap(ErrWriteDynamicFromStatic, "write_model")
	}

	fw := &fileWriter{w: bufio.NewWriter(w)}
	fw.u32(fileVersion)
	fw.u32(modelTypePPM)
	fw.u32(uint32(form))
	fw.zstr(title)
	fw.u32(m.alphabet.Size)
	fw.u32(m.alphabet.MaxSymbol)
	fw.i32(int32(m.maxOrder))
	fw.u32(uint32(m.escapeMethod))
	fw.boolean(m.fullExcl)
	fw.boolean(m.updateExcl)

	var trie *Trie
	var inputOut []Symbol
	writeInput := false

	switch {
	case form == FormStatic && m.dynamic:
		trie = buildStaticTrie(m.trie, m.maxOrder)
	case form == FormStatic:
		trie = m.trie
	default: // FormDynamic; m.dynamic already confirmed true above
		var remap map[uint32]uint32
		inputOut, remap = compactInputLog(m.trie, m.maxOrder)
		trie = rewriteInputRefs(m.trie, remap)
		writeInput = true
	}

	raw := trie.nodes.raw()
	fw.u32(uint32(len(raw)))
	for _, v := range raw {
		fw.u32(uint32(v))
	}

	if writeInput {
		fw.u32(uint32(len(inputOut)))
		fw.u32(uint32(len(inputOut) - 1))
		for _, sym := range inputOut {
			fw.u32(uint32(sym))
		}
	}

	if m.alphabet.Size == 0 {
		writeCPT(fw, m.cpt)
	}

	if fw.err != nil {
		return errors.Wrap(fw.err, "write_model")
	}
	return fw.w.Flush()
}

// LoadModel deserializes a model previously produced by WriteModel
// (load_model), returning its id and the title it was written with. A
// version mismatch is a true unrecoverable per §7 and panics rather than
// returning an error; every other malformed-input condition (truncated
// stream, unrecognized model_type, invalid escape method) is reported as
// an ErrCorruptFile-wrapped error.
func (e *Engine) LoadModel(r io.Reader) (ModelID, string, error) {
	fr := &fileReader{r: bufio.NewReader(r)}

	version := fr.u32()
	if fr.err != nil {
		return 0, "", errors.Wrap(ErrCorruptFile, "load_model: header")
	}
	if version != fileVersion {
		panic(errors.Wrapf(ErrVersionMismatch, "load_model: file version %d, want %d", version, fileVersion))
	}

	modelType := fr.u32()
	formRaw := fr.u32()
	title := fr.zstr()
	alphaSize := fr.u32()
	maxSymbol := fr.u32()
	maxOrder := fr.i32()
	escRaw := fr.u32()
	fullExcl := fr.boolean()
	updateExcl := fr.boolean()
	trieSize := fr.u32()
	if fr.err != nil {
		return 0, "", errors.Wrap(ErrCorruptFile, "load_model: fixed header")
	}
	if modelType != modelTypePPM {
		return 0, "", errors.Wrap(ErrCorruptFile, "load_model: unrecognized model_type")
	}

	raw := make([]int64, trieSize)
	for i := range raw {
		raw[i] = int64(int32(fr.u32()))
	}
	if fr.err != nil {
		return 0, "", errors.Wrap(ErrCorruptFile, "load_model: trie_nodes")
	}

	form := ModelForm(formRaw)
	dynamic := form == FormDynamic
	trie := &Trie{Dynamic: dynamic, nodes: &arena{data: raw, unused: trieSize}}

	if dynamic {
		inputSize := fr.u32()
		_ = fr.u32() // input_len; recoverable from len(input log) on its own
		input := make([]Symbol, inputSize)
		for i := range input {
			input[i] = Symbol(fr.u32())
		}
		if fr.err != nil {
			return 0, "", errors.Wrap(ErrCorruptFile, "load_model: input_log")
		}
		trie.input = input
	}

	escapeMethod := EscapeMethod(escRaw)
	if !escapeMethod.Valid() {
		return 0, "", errors.Wrap(ErrCorruptFile, "load_model: escape_method")
	}

	m := &modelState{
		alphabet:     Alphabet{Size: alphaSize, MaxSymbol: maxSymbol},
		maxOrder:     int(maxOrder),
		escapeMethod: escapeMethod,
		fullExcl:     fullExcl,
		updateExcl:   updateExcl,
		dynamic:      dynamic,
		trie:         trie,
	}

	if alphaSize == 0 {
		cpt, err := readCPT(fr)
		if err != nil {
			return 0, "", errors.Wrap(ErrCorruptFile, "load_model: cpt")
		}
		m.cpt = cpt
		if ms, ok := cpt.MaxSymbol(); ok {
			m.alphabet.MaxSymbol = ms
			if ms == 0 {
				m.alphabet.seenZero = true
			}
		}
	}

	id := e.nextModelID
	e.models[id] = m
	e.nextModelID++
	return id, title, nil
}

// writeCPT serializes a CPT as (total, max_symbol, cfreq[3+max_symbol]) per
// §4.G: the raw Fenwick tree array, which is itself a valid ptable.c
// cfreq-style cumulative-frequency table.
func writeCPT(fw *fileWriter, c *CPT) {
	maxSymbol, _ := c.MaxSymbol()
	fw.u32(c.Total())
	fw.u32(maxSymbol)
	n := cptSymbolBase + maxSymbol
	for i := uint32(1); i <= n; i++ {
		var v uint32
		if i <= c.size {
			v = c.tree[i]
		}
		fw.u32(v)
	}
}

func readCPT(fr *fileReader) (*CPT, error) {
	_ = fr.u32() // total; redundant with the Fenwick tree's own root sum
	maxSymbol := fr.u32()
	n := cptSymbolBase + maxSymbol
	tree := make([]uint32, n+1)
	for i := uint32(1); i <= n; i++ {
		tree[i] = fr.u32()
	}
	if fr.err != nil {
		return nil, fr.err
	}
	return &CPT{tree: tree, size: n, maxSymbol: maxSymbol, hasSymbol: maxSymbol > 0 || tree[cptSymbolBase] != 0}, nil
}

// buildStaticTrie performs the dynamic → static compaction described in
// §4.G: a DFS down to maxOrder that freezes each node into the static
// width-1-plus-pairs layout, synthesizing the tail of any single-occurrence
// (input-pointer) branch from the input log so the static trie matches
// what a fully materialized dynamic trie of the same depth would contain.
// Beyond maxOrder, a node is frozen with its count only (no pairs).
//
// The root is always frozen first, before any other allocation happens in
// the fresh static arena, so it lands at offset NodeRoot (1) — the
// suffix-list bootstrap (SuffixList.Start) seeds every walk with that
// literal constant regardless of whether the trie turns out to be dynamic
// or static.
func buildStaticTrie(t *Trie, maxOrder int) *Trie {
	st := &Trie{Dynamic: false, nodes: newArena()}

	var freezeNode func(node NodeID, depth int) NodeID
	var freezeInputChain func(pos uint32, depth int) NodeID

	freezeNode = func(node NodeID, depth int) NodeID {
		tcount, shead := t.GetNode(node)

		var syms []Symbol
		var children []ChildRef
		if depth < maxOrder {
			for sptr := shead; sptr != NodeNIL; {
				sym, child, next := t.GetSlist(sptr)
				syms = append(syms, sym)
				children = append(children, child)
				sptr = next
			}
		}

		k := uint32(len(syms))
		width := uint32(staticNodeWidth) + k*staticPairWidth
		newNode := st.nodes.allocate(width)
		st.nodes.set(newNode, int64(tcount))
		for i, sym := range syms {
			base := newNode + staticNodeWidth + uint32(i)*staticPairWidth
			st.nodes.set(base, staticSymbolField(sym, i == len(syms)-1))
			st.nodes.set(base+1, 0) // patched once the child is frozen below
		}

		// Recurse only after this node's own record is reserved: the first
		// allocate() call in the whole DFS must belong to the root.
		for i, child := range children {
			var cn NodeID
			switch {
			case child.IsNode():
				cn = freezeNode(child.Node(), depth+1)
			case child.IsInput():
				cn = freezeInputChain(child.InputPos(), depth+1)
			}
			base := newNode + staticNodeWidth + uint32(i)*staticPairWidth
			st.nodes.set(base+1, int64(cn))
		}
		return newNode
	}

	freezeInputChain = func(pos uint32, depth int) NodeID {
		if depth >= maxOrder || int(pos) >= t.InputLen() {
			node := st.nodes.allocate(staticNodeWidth)
			st.nodes.set(node, 1)
			return node
		}
		node := st.nodes.allocate(staticNodeWidth + staticPairWidth)
		st.nodes.set(node, 1)
		base := node + staticNodeWidth
		st.nodes.set(base, staticSymbolField(t.InputAt(pos), true))
		child := freezeInputChain(pos+1, depth+1)
		st.nodes.set(base+1, int64(child))
		return node
	}

	root := freezeNode(NodeRoot, 0)
	if root != NodeRoot {
		panic("ppm: static root allocation invariant violated")
	}
	return st
}

// staticSymbolField encodes one static slist entry's symbol field,
// applying the end-of-list mark (negate, or specialSymbolMarker for a
// literal zero symbol) when last is true.
func staticSymbolField(sym Symbol, last bool) int64 {
	if !last {
		return int64(sym)
	}
	if sym == 0 {
		return specialSymbolMarker
	}
	return -int64(sym)
}

// reachableInputStarts returns every input-log position referenced by a
// negative ChildRef anywhere in t, in ascending order.
func reachableInputStarts(t *Trie) []uint32 {
	seen := make(map[NodeID]bool)
	var starts []uint32
	var visit func(node NodeID)
	visit = func(node NodeID) {
		if node == NodeNIL || seen[node] {
			return
		}
		seen[node] = true
		_, shead := t.GetNode(node)
		for sptr := shead; sptr != NodeNIL; {
			_, child, next := t.GetSlist(sptr)
			switch {
			case child.IsInput():
				starts = append(starts, child.InputPos())
			case child.IsNode():
				visit(child.Node())
			}
			sptr = next
		}
	}
	visit(NodeRoot)
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	return starts
}

// compactInputLog implements §4.G's input-log compaction: every position
// referenced by a negative child, together with the maxOrder+1 symbols
// following it, is retained (as a contiguous run, so later sequential
// reads off an input pointer keep working); everything else is dropped.
// Returns the new compacted log and a map from every retained old position
// to its new one.
func compactInputLog(t *Trie, maxOrder int) ([]Symbol, map[uint32]uint32) {
	run := maxOrder + 1
	if run < 1 {
		run = 1
	}
	starts := reachableInputStarts(t)

	newInput := make([]Symbol, 1, 1024) // index 0 unused, matches Trie.input
	remap := make(map[uint32]uint32, len(starts)*run)
	for _, start := range starts {
		for i := 0; i < run; i++ {
			old := start + uint32(i)
			if int(old) >= len(t.input) {
				break
			}
			if _, ok := remap[old]; ok {
				continue
			}
			remap[old] = uint32(len(newInput))
			newInput = append(newInput, t.input[old])
		}
	}
	return newInput, remap
}

// rewriteInputRefs returns a copy of t's arena with every negative
// (input-pointer) ChildRef rewritten through remap, leaving the live
// engine's trie untouched. It reuses Trie's own GetSlist/PutSlist walk
// machinery against a throwaway Trie wrapping the copied arena.
func rewriteInputRefs(t *Trie, remap map[uint32]uint32) *Trie {
	raw := append([]int64(nil), t.nodes.raw()...)
	clone := &Trie{Dynamic: true, nodes: &arena{data: raw, unused: t.nodes.size()}}

	seen := make(map[NodeID]bool)
	var walk func(node NodeID)
	walk = func(node NodeID) {
		if node == NodeNIL || seen[node] {
			return
		}
		seen[node] = true
		_, shead := clone.GetNode(node)
		for sptr := shead; sptr != NodeNIL; {
			_, child, next := clone.GetSlist(sptr)
			switch {
			case child.IsInput():
				if np, ok := remap[child.InputPos()]; ok {
					clone.PutSlist(sptr, childInput(np))
				}
			case child.IsNode():
				walk(child.Node())
			}
			sptr = next
		}
	}
	walk(NodeRoot)
	return clone
}
