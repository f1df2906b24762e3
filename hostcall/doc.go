// Package hostcall maps well-known host import names to the reserved
// index range 0xEE01..0xEE2A and binds Go implementations to those
// indices for the interpreter's CallHost dispatch.
//
// The mapping is a compile-time constant bijection: the compiler resolves
// an import's (module, field) pair to its reserved index, and the encoded
// bytecode refers to host functions only by that index. The Linker binds
// indices to implementations at instantiation time; package hostcall also
// ships a reference EVM-style host backed by an in-memory context.
package hostcall
