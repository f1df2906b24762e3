// Package tracer records the execution trace the whole toolchain exists
// to produce: per-instruction program counter, opcode identity and
// parameters, stack snapshots, memory deltas, function metadata and the
// initial memory image, serialized to a stable JSON layout.
//
// The interpreter drives the tracer through a small hook surface:
// GlobalMemory and GlobalVariable at instantiation, FunctionCall on
// function entry, MemoryChange synchronously with every store executed
// while tracing, and
// PreOpcodeState immediately before each opcode executes. Recording is
// best effort in the sense that it never fails the run, but an
// instruction signaled through PreOpcodeState is always logged.
package tracer
