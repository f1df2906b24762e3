package compiler

import (
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// translateDropKeep expands a DropKeep into an explicit stack-reshaping
// micro-sequence so the interpreter's dispatch stays uniform. Local
// depths are relative to the top of the value stack, with local.set
// addressing the slot after its pop:
//
//   - nothing to drop: empty sequence
//   - nothing to keep: Drop x drop
//   - drop >= keep:    LocalSet(drop) x keep, Drop x (drop-keep)
//   - drop <  keep:    LocalGet(keep) x keep, LocalSet(drop+keep) x keep,
//     Drop x drop (the copies slide down through the dropped region)
func translateDropKeep(out *opcode.InstructionSet, dk opcode.DropKeep) {
	drop, keep := dk.Drop, dk.Keep
	switch {
	case drop == 0:
	case keep == 0:
		for i := uint32(0); i < drop; i++ {
			out.OpDrop()
		}
	case drop >= keep:
		for i := uint32(0); i < keep; i++ {
			out.OpLocalSet(drop)
		}
		for i := uint32(0); i < drop-keep; i++ {
			out.OpDrop()
		}
	default:
		for i := uint32(0); i < keep; i++ {
			out.OpLocalGet(keep)
		}
		for i := uint32(0); i < keep; i++ {
			out.OpLocalSet(drop + keep)
		}
		for i := uint32(0); i < drop; i++ {
			out.OpDrop()
		}
	}
}

// dropKeepSet builds the expansion in isolation, for callers that need
// its length before emitting it.
func dropKeepSet(dk opcode.DropKeep) *opcode.InstructionSet {
	out := opcode.NewInstructionSet()
	translateDropKeep(out, dk)
	return out
}
