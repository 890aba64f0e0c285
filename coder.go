package ppm

import "io"

// MaxFreq is the coder's precision ceiling: callers of Coder must keep
// total <= MaxFreq for every encode/decode step (§4.F).
const MaxFreq = 1 << 27

const rangeTop = 1 << 24

// Coder is the narrow arithmetic-coding capability a Model drives (§4.F).
// Every caller must uphold lbnd < hbnd <= total <= MaxFreq(); a violation
// is a value-domain error the model layer is responsible for preventing
// before it ever reaches a Coder.
type Coder interface {
	MaxFreq() uint32
	Encode(lbnd, hbnd, total uint32)
	DecodeTarget(total uint32) uint32
	Decode(lbnd, hbnd, total uint32)
}

// RangeEncoder is the default Coder implementation: a carry-propagating
// byte-oriented range coder in the style used by 7-Zip's PPMd and LZMA
// coders, generalized from their binary form to arbitrary (lbnd, hbnd,
// total) triples — the same shape this package's multi-symbol escape walk
// produces. There is no teacher or pack source for this piece (none of the
// example repos implement an arithmetic coder of this kind); see DESIGN.md
// for why it is written from the well-established reference algorithm
// rather than grounded in a specific pack file.
type RangeEncoder struct {
	w         io.ByteWriter
	low       uint64
	rng       uint32
	cache     byte
	cacheSize uint64
}

// NewRangeEncoder returns an encoder writing its output stream to w.
// Callers must call Finish when done to flush the last pending bytes.
func NewRangeEncoder(w io.ByteWriter) *RangeEncoder {
	return &RangeEncoder{w: w, rng: 0xFFFFFFFF, cacheSize: 1}
}

// MaxFreq implements Coder.
func (e *RangeEncoder) MaxFreq() uint32 { return MaxFreq }

// Encode implements Coder.
func (e *RangeEncoder) Encode(lbnd, hbnd, total uint32) {
	if !(lbnd < hbnd && hbnd <= total && total <= MaxFreq) {
		panic(ErrCoderRangeOverflow)
	}
	r := e.rng / total
	e.low += uint64(lbnd) * uint64(r)
	e.rng = r * (hbnd - lbnd)
	for e.rng < rangeTop {
		e.rng <<= 8
		e.shiftLow()
	}
}

func (e *RangeEncoder) shiftLow() {
	if uint32(e.low>>32) != 0 || e.low < 0xFF000000 {
		temp := e.cache
		for {
			e.w.WriteByte(temp + byte(e.low>>32))
			temp = 0xFF
			e.cacheSize--
			if e.cacheSize == 0 {
				break
			}
		}
		e.cache = byte(e.low >> 24)
	}
	e.cacheSize++
	e.low = (e.low << 8) & 0xFFFFFFFF
}

// Finish flushes the remaining pending bytes. Call exactly once, after the
// last Encode call.
func (e *RangeEncoder) Finish() {
	for i := 0; i < 5; i++ {
		e.shiftLow()
	}
}

// DecodeTarget and Decode are not meaningful on an encoder; RangeEncoder
// and RangeDecoder are deliberately separate types (one direction each),
// matching how encode_symbol and decode_symbol are never called against
// the same coder handle in a single session (§6).

// RangeDecoder is the decode-direction counterpart to RangeEncoder.
type RangeDecoder struct {
	r    io.ByteReader
	code uint32
	rng  uint32
	div  uint32 // Range already divided by total, set by DecodeTarget
	err  error
}

// NewRangeDecoder primes the decoder by reading the first 5 bytes of the
// stream r produced (the leading byte is the encoder's flush artifact and
// is discarded as part of normal 32-bit wraparound, matching the
// reference algorithm).
func NewRangeDecoder(r io.ByteReader) *RangeDecoder {
	d := &RangeDecoder{r: r, rng: 0xFFFFFFFF}
	for i := 0; i < 5; i++ {
		b, err := r.ReadByte()
		if err != nil {
			d.err = err
			b = 0
		}
		d.code = d.code<<8 | uint32(b)
	}
	return d
}

// MaxFreq implements Coder.
func (d *RangeDecoder) MaxFreq() uint32 { return MaxFreq }

// Encode is not meaningful on a decoder; present only so RangeDecoder
// could satisfy a hypothetical bidirectional interface. Not part of Coder.

// DecodeTarget implements Coder: it locates where in [0, total) the next
// symbol's code point falls, without consuming it — the caller uses the
// result to find the matching (lbnd, hbnd) via the model, then calls
// Decode to commit.
func (d *RangeDecoder) DecodeTarget(total uint32) uint32 {
	d.div = d.rng / total
	t := d.code / d.div
	if t >= total {
		t = total - 1
	}
	return t
}

// Decode implements Coder: commits the sub-range located by the most
// recent DecodeTarget call.
func (d *RangeDecoder) Decode(lbnd, hbnd, total uint32) {
	d.code -= lbnd * d.div
	d.rng = d.div * (hbnd - lbnd)
	for d.rng < rangeTop {
		b, err := d.r.ReadByte()
		if err != nil {
			d.err = err
			b = 0
		}
		d.code = d.code<<8 | uint32(b)
		d.rng <<= 8
	}
}

// Err returns the first read error encountered while priming or refilling
// the decoder, if any. A caller that sees a non-nil Err after decoding
// should treat the whole session as unrecoverable (§7): the coder's
// internal state is desynchronized from this point on.
func (d *RangeDecoder) Err() error { return d.err }
