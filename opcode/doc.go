// Package opcode defines the flat intermediate representation executed by
// the engine: untyped 64-bit values, the semantic integer newtypes
// (Index, Offset, JumpDest, Fuel), stack-reshaping descriptors (DropKeep,
// BranchParams) and the opcode model itself.
//
// An OpCode is a tagged value carrying at most one structured operand.
// Opcode identity is the codec tag byte: every encodable kind's numeric
// value is its tag in the binary format, which keeps the model and the
// codec in lockstep. Kinds above 0xFF (floating point, element segments)
// exist in the model but have no binary encoding.
package opcode
