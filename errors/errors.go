package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of the toolchain produced the error.
type Phase string

const (
	PhaseTranslate Phase = "translate" // wasm -> flat bytecode
	PhaseEncode    Phase = "encode"    // opcode -> binary
	PhaseDecode    Phase = "decode"    // binary -> opcode
	PhaseLoad      Phase = "load"      // compiled module loading
	PhaseLink      Phase = "link"      // host function resolution
	PhaseRun       Phase = "run"       // interpreter dispatch
)

// Kind categorizes the error. The set mirrors the failure modes of the
// compiler, the codec, the loader and the interpreter.
type Kind string

const (
	KindTranslation        Kind = "translation_error"
	KindMissingEntrypoint  Kind = "missing_entrypoint"
	KindMissingFunction    Kind = "missing_function"
	KindUnsupportedOpcode  Kind = "unsupported_opcode"
	KindIllegalOpcode      Kind = "illegal_opcode"
	KindUnsupportedImport  Kind = "unsupported_import"
	KindUnsupportedMemory  Kind = "unsupported_memory"
	KindParse              Kind = "parse_error"
	KindOutOfBuffer        Kind = "out_of_buffer"
	KindNeedMore           Kind = "need_more"
	KindReachedUnreachable Kind = "reached_unreachable"
	KindImpossibleJump     Kind = "impossible_jump"
	KindInternal           Kind = "internal_error"
	KindMemoryOverflow     Kind = "memory_overflow"
	KindEmptyBytecode      Kind = "empty_bytecode"
)

// Kind sentinels for errors.Is matching. A sentinel matches any *Error of
// the same kind regardless of phase.
var (
	ErrTranslation        = &Error{Kind: KindTranslation}
	ErrMissingEntrypoint  = &Error{Kind: KindMissingEntrypoint}
	ErrMissingFunction    = &Error{Kind: KindMissingFunction}
	ErrUnsupportedOpcode  = &Error{Kind: KindUnsupportedOpcode}
	ErrIllegalOpcode      = &Error{Kind: KindIllegalOpcode}
	ErrUnsupportedImport  = &Error{Kind: KindUnsupportedImport}
	ErrUnsupportedMemory  = &Error{Kind: KindUnsupportedMemory}
	ErrParse              = &Error{Kind: KindParse}
	ErrOutOfBuffer        = &Error{Kind: KindOutOfBuffer}
	ErrNeedMore           = &Error{Kind: KindNeedMore}
	ErrReachedUnreachable = &Error{Kind: KindReachedUnreachable}
	ErrImpossibleJump     = &Error{Kind: KindImpossibleJump}
	ErrInternal           = &Error{Kind: KindInternal}
	ErrMemoryOverflow     = &Error{Kind: KindMemoryOverflow}
	ErrEmptyBytecode      = &Error{Kind: KindEmptyBytecode}
)

// Error is the structured error type used throughout the toolchain.
type Error struct {
	Phase  Phase
	Kind   Kind
	Detail string
	Cause  error

	// Need holds the number of missing bytes for need_more errors.
	Need int
	// Tag holds the offending tag byte for illegal_opcode errors.
	Tag byte
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))
	switch e.Kind {
	case KindNeedMore:
		fmt.Fprintf(&b, " (%d bytes)", e.Need)
	case KindIllegalOpcode:
		fmt.Fprintf(&b, " (0x%02x)", e.Tag)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error on kind, and on phase when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return t.Kind == e.Kind
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New starts building an error for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the common failure modes.

// Translation wraps a parser or validator rejection.
func Translation(cause error) *Error {
	return &Error{Phase: PhaseTranslate, Kind: KindTranslation, Cause: cause}
}

// MissingEntrypoint reports that the module exports no "main" function.
func MissingEntrypoint() *Error {
	return &Error{Phase: PhaseTranslate, Kind: KindMissingEntrypoint, Detail: `no exported "main" function`}
}

// MissingFunction reports a dangling function reference.
func MissingFunction(phase Phase, index uint32) *Error {
	return &Error{Phase: phase, Kind: KindMissingFunction, Detail: fmt.Sprintf("function %d", index)}
}

// UnsupportedImport reports an import name the host registry cannot resolve.
func UnsupportedImport(module, field string) *Error {
	return &Error{Phase: PhaseTranslate, Kind: KindUnsupportedImport, Detail: module + "." + field}
}

// UnsupportedMemory reports a data-segment shape the compiler rejects.
func UnsupportedMemory(reason string) *Error {
	return &Error{Phase: PhaseTranslate, Kind: KindUnsupportedMemory, Detail: reason}
}

// IllegalOpcode reports an unassigned tag byte in the binary.
func IllegalOpcode(phase Phase, tag byte) *Error {
	return &Error{Phase: phase, Kind: KindIllegalOpcode, Tag: tag}
}

// NeedMore reports a codec underflow of n missing bytes.
func NeedMore(phase Phase, n int) *Error {
	return &Error{Phase: phase, Kind: KindNeedMore, Need: n}
}

// OutOfBuffer reports a relocation target outside the code section.
func OutOfBuffer(phase Phase) *Error {
	return &Error{Phase: phase, Kind: KindOutOfBuffer}
}

// ReachedUnreachable reports a missing relocation target or an executed
// Unreachable opcode.
func ReachedUnreachable(phase Phase, detail string) *Error {
	return &Error{Phase: phase, Kind: KindReachedUnreachable, Detail: detail}
}

// ImpossibleJump reports a jump target outside the decoded bytecode.
func ImpossibleJump(pos int, target int) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindImpossibleJump,
		Detail: fmt.Sprintf("opcode %d jumps to %d", pos, target),
	}
}

// Internal reports an invariant violation.
func Internal(phase Phase, msg string, args ...any) *Error {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Phase: phase, Kind: KindInternal, Detail: msg}
}

// MemoryOverflow reports a linear memory access beyond its bounds.
func MemoryOverflow(offset uint64, length uint64) *Error {
	return &Error{
		Phase:  PhaseRun,
		Kind:   KindMemoryOverflow,
		Detail: fmt.Sprintf("access of %d bytes at offset %d", length, offset),
	}
}

// EmptyBytecode reports zero-length input to the module loader.
func EmptyBytecode() *Error {
	return &Error{Phase: PhaseLoad, Kind: KindEmptyBytecode}
}

// Parse reports malformed operand bytes.
func Parse(phase Phase, msg string) *Error {
	return &Error{Phase: phase, Kind: KindParse, Detail: msg}
}
