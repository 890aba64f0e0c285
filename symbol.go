package ppm

import "math"

// Symbol is an opaque, non-negative integer emitted or consumed by a model.
// Symbols are never unicode code points or bytes as such: callers decide the
// mapping from their own alphabet onto the unsigned integer range.
type Symbol uint32

const (
	// Sentinel is the reserved end-of-string / forced context reset symbol.
	// Clients must never emit it as ordinary data; UpdateContext/EncodeSymbol
	// treat it specially (it truncates the suffix list instead of extending
	// the input log).
	Sentinel Symbol = math.MaxUint32 - 1

	// SentinelSecondary is the secondary reserved symbol mentioned in the
	// data model. Tawa reserves it for a second break class (used by some of
	// the out-of-scope model types, e.g. SSS); this package never emits it
	// itself but refuses to accept it as ordinary data, same as Sentinel.
	SentinelSecondary Symbol = math.MaxUint32
)

// IsReserved reports whether sym is one of the two sentinel values a caller
// must never use as ordinary data.
func (s Symbol) IsReserved() bool {
	return s == Sentinel || s == SentinelSecondary
}

// Alphabet describes a model's symbol universe: either bounded at a fixed
// Size (valid symbols in [0, Size)) or unbounded (Size == 0), in which case
// MaxSymbol tracks the highest symbol observed so far and the alphabet grows
// by one every time MaxSymbol+1 is emitted.
type Alphabet struct {
	Size      uint32
	MaxSymbol uint32
	seenZero  bool // MaxSymbol == 0 is ambiguous between "never seen" and "saw symbol 0"
}

// Bounded reports whether the alphabet has a fixed size.
func (a Alphabet) Bounded() bool { return a.Size > 0 }

// Valid reports whether sym is a legal ordinary (non-sentinel) symbol for
// this alphabet in its current state.
func (a Alphabet) Valid(sym Symbol) bool {
	if sym.IsReserved() {
		return false
	}
	if a.Bounded() {
		return uint32(sym) < a.Size
	}
	return uint32(sym) <= a.MaxSymbol+1
}

// expand grows an unbounded alphabet after sym == MaxSymbol+1 is observed.
// The caller must have already checked Valid(sym).
func (a *Alphabet) expand(sym Symbol) {
	if a.Bounded() {
		return
	}
	if uint32(sym) == 0 {
		a.seenZero = true
	}
	if uint32(sym) > a.MaxSymbol {
		a.MaxSymbol = uint32(sym)
	}
}

// hasSeen reports whether this (unbounded) alphabet has recorded any
// symbol yet.
func (a Alphabet) hasSeen() bool { return a.MaxSymbol != 0 || a.seenZero }
