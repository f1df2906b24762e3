// Package compiler lowers a validated WebAssembly module into the flat
// bytecode executed by the engine, and loads such bytecode back into a
// CompiledModule.
//
// Translation emits, in deterministic order: initialization code for
// every declared global, initialization code for every active data
// segment (greedy 8/4/2/1-byte chunks, parsed big-endian), the body of
// the exported "main" function, then every other local function in index
// order. Structured control flow is flattened into relative
// opcode-position branches; stack reshaping rides as explicit drop-keep
// micro-sequences ahead of branches and returns, guarded so they only
// execute on the taken path.
//
// Jump destinations live in two reference frames. The instruction set
// under construction uses relative opcode positions; Finalize rewrites
// every destination to an absolute byte offset while encoding, which is
// safe because all operands are fixed width. Loading reverses the
// mapping, so a CompiledModule's branches are relative opcode positions
// again. Call placeholders are resolved through a separate function
// mapping and never through the branch offset arithmetic.
package compiler
