// Package wasmtracer is a tracing WebAssembly interpreter toolchain: it
// lowers validated WebAssembly modules into a flat, position-independent
// bytecode, executes that bytecode deterministically, and records a
// structured execution trace suitable for downstream verification.
//
// The pipeline, package by package:
//
//	compiler  wasm -> flat bytecode (and back: the CompiledModule loader)
//	binary    big-endian fixed-width bytecode codec
//	opcode    value model and opcode model shared by every layer
//	hostcall  reserved host-import registry and reference EVM host
//	engine    store, dispatch loop, engine facade, handle registry
//	tracer    per-instruction trace recording and JSON serialization
//
// The cmd/wasm-tracer command wraps the pipeline for batch use.
package wasmtracer
