package ppm

// EscapeMethod selects how a context's "none of the above" probability mass
// is computed and how the trie's per-node tcount accumulates (§4.D,
// §9). Grounded on increment_trie_node + reset_position's escape handling
// in Tawa-0.7/lib/pyTawa/ppm_context.c and PPM_increment_trie_node in
// ppm_trie.c.
type EscapeMethod uint8

const (
	// EscapeA: escape mass is fixed at 1 regardless of how many distinct
	// symbols have been seen at a node; tcount advances by 1 per update.
	EscapeA EscapeMethod = iota

	// EscapeB is declared for format compatibility with the reference
	// implementation but was never implemented there either; NewModel
	// rejects it with ErrEscapeMethodUnsupported.
	EscapeB

	// EscapeC: escape mass equals the number of distinct symbols seen at
	// a node (Laplace-style); tcount advances by 1 per update.
	EscapeC

	// EscapeD: escape mass equals half the number of distinct symbols,
	// realized without fractional counts by doubling every ordinary
	// increment (tcount advances by 2) while escape mass still advances
	// by 1 per distinct symbol. This is the default in the reference
	// tool.
	EscapeD
)

// Valid reports whether m is one of the four declared escape methods.
func (m EscapeMethod) Valid() bool {
	return m == EscapeA || m == EscapeB || m == EscapeC || m == EscapeD
}

// Supported reports whether m has a working implementation. Only EscapeB
// is declared-but-unsupported.
func (m EscapeMethod) Supported() bool {
	return m.Valid() && m != EscapeB
}

// tcountIncrement returns the amount a node's tcount advances by on a
// matching update under this method (PPM_increment_trie_node).
func (m EscapeMethod) tcountIncrement() uint32 {
	if m == EscapeD {
		return 2
	}
	return 1
}

// perSymbolEscape reports whether escape mass accrues once per distinct
// symbol seen at a node (C, D) as opposed to a single fixed unit
// regardless of how many symbols are present (A).
func (m EscapeMethod) perSymbolEscape() bool {
	return m == EscapeC || m == EscapeD
}

func (m EscapeMethod) String() string {
	switch m {
	case EscapeA:
		return "A"
	case EscapeB:
		return "B"
	case EscapeC:
		return "C"
	case EscapeD:
		return "D"
	default:
		return "invalid"
	}
}
