// Package engine executes compiled flat bytecode and produces its trace.
//
// An Engine owns exactly one Store (linear memory, globals, tracer) and
// runs a single-threaded dispatch loop over a CompiledModule. The
// instrumentation contract: the tracer's PreOpcodeState fires in strict
// program order immediately before each opcode of the traced entrypoint,
// and every store records its delta synchronously, so the deltas
// attached to a log record are exactly those performed since the
// previous record.
//
// Host calls run with no engine lock held: a host function may read
// memory, record trace events, or re-enter the engine through the handle
// registry. The registry's lock guards only its map; per-engine
// exclusion never spans a call into host code.
package engine
