package opcode

// Params returns the parameter values recorded in the trace for this
// opcode, or nil when it carries none. The per-family rules are part of
// the trace contract and must not change shape between releases.
func (op OpCode) Params() []uint64 {
	switch op.Kind {
	case KindLocalGet, KindLocalSet, KindLocalTee:
		return []uint64{uint64(op.Index)}
	case KindBr, KindBrIfEqz, KindBrIfNez, KindCall:
		// the signed destination, reinterpreted through its i32 bits.
		// For Call this is only the fallback: the tracer substitutes
		// the resolved function index whenever the engine's function
		// table is available.
		return []uint64{uint64(uint32(op.Branch.Offset))}
	case KindBrTable:
		return []uint64{uint64(op.Index)}
	case KindConsumeFuel:
		return []uint64{uint64(op.Fuel)}
	case KindReturnCall:
		return []uint64{uint64(op.Index)}
	case KindCallHost:
		return []uint64{uint64(op.Index)}
	case KindReturnCallIndirect, KindCallIndirect:
		return []uint64{uint64(op.Index), uint64(op.Index2)}
	case KindGlobalGet, KindGlobalSet:
		return []uint64{uint64(op.Index)}
	case KindMemoryInit, KindDataDrop, KindElemDrop, KindRefFunc:
		return []uint64{uint64(op.Index)}
	case KindTableSize, KindTableGrow, KindTableFill, KindTableGet, KindTableSet:
		return []uint64{uint64(op.Index)}
	case KindTableCopy, KindTableInit:
		return []uint64{uint64(op.Index), uint64(op.Index2)}
	case KindI32Const, KindI64Const, KindF32Const, KindF64Const:
		return []uint64{op.Value.Bits()}
	}
	if op.Kind.IsMemAccess() {
		return []uint64{uint64(op.Offset)}
	}
	return nil
}

// TraceDropKeep returns the stack reshaping recorded in the trace, or
// false when the opcode carries none (or an all-zero one).
func (op OpCode) TraceDropKeep() (DropKeep, bool) {
	var dk DropKeep
	switch op.Kind {
	case KindBr, KindBrIfEqz, KindBrIfNez:
		dk = op.Branch.DropKeep
	case KindReturn, KindReturnIfNez, KindReturnCall, KindReturnCallIndirect:
		dk = op.DropKeep
	default:
		return DropKeep{}, false
	}
	if dk.IsNoop() {
		return DropKeep{}, false
	}
	return dk, true
}
