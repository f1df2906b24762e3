// Package binary implements the flat bytecode wire format: a sequence of
// opcodes, each a single tag byte followed by a fixed-width big-endian
// operand. There is no header, no length prefix and no checksum; a
// decoder reads until end of input.
//
// Every operand width is fixed (Index/Offset/JumpDest 4 bytes, Fuel and
// value immediates 8 bytes, DropKeep 8 bytes, BranchParams 12 bytes), so
// rewriting a jump destination never changes an instruction's size. The
// relocation pass in the compiler depends on this; a variable-width
// encoding must never be introduced at this layer.
//
// Floating-point opcodes are recognized by the model but deliberately
// not encoded: writing one is a no-op, and no tag decodes into one.
package binary
