// Package errors defines the tagged error type shared by every stage of
// the toolchain: translation, the bytecode codec, module loading, linking
// and execution.
//
// Every failure is a single *Error value carrying the phase that produced
// it and a kind from the fixed taxonomy. Callers match errors with
// errors.Is against the exported kind sentinels:
//
//	if errors.Is(err, errors.ErrIllegalOpcode) {
//	    ...
//	}
//
// Tracing never produces errors: the tracer records best-effort and the
// taxonomy has no trace-side kinds beyond internal invariant violations.
package errors
