package ppm

import "errors"

// Programming-precondition violations: the caller passed a handle or value
// that was never valid. The spec classifies these as debug-assertion-grade
// errors rather than structural failures.
var (
	ErrInvalidModel   = errors.New("ppm: invalid model id")
	ErrInvalidContext = errors.New("ppm: invalid context id")
	ErrInvalidSymbol  = errors.New("ppm: symbol is reserved or out of range")
)

// Value-domain / API-contract errors.
var (
	ErrEscapeMethodUnsupported = errors.New("ppm: escape method B is declared but not implemented")
	ErrAlphabetMismatch        = errors.New("ppm: alphabet_size and max_order are inconsistent")
	ErrModelHasLiveContexts    = errors.New("ppm: cannot release model with live contexts")
	ErrCopyDynamicContext      = errors.New("ppm: copy_context is forbidden on a dynamic model; use clone_context")
	ErrDynamicModelBusy        = errors.New("ppm: dynamic model already has a live context; use clone_context")
	ErrStaticModelImmutable    = errors.New("ppm: cannot update a static model")
	ErrWriteDynamicFromStatic  = errors.New("ppm: cannot write a dynamic model loaded as static")
	ErrCoderRangeOverflow      = errors.New("ppm: coding range total exceeds coder MAX_FREQ")
)

// Structural/fatal errors surfaced from the serializer. These are wrapped
// with github.com/pkg/errors so callers printing "%+v" get the call stack
// that led to the corruption being detected.
var (
	ErrVersionMismatch = errors.New("ppm: file format version mismatch")
	ErrCorruptFile     = errors.New("ppm: corrupt model file")
)
