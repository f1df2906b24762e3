package binary

import (
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

func writeDropKeep(w *Writer, dk opcode.DropKeep) error {
	if err := w.WriteU32(dk.Drop); err != nil {
		return err
	}
	return w.WriteU32(dk.Keep)
}

func readDropKeep(r *Reader) (opcode.DropKeep, error) {
	drop, err := r.ReadU32()
	if err != nil {
		return opcode.DropKeep{}, err
	}
	keep, err := r.ReadU32()
	if err != nil {
		return opcode.DropKeep{}, err
	}
	return opcode.DropKeep{Drop: drop, Keep: keep}, nil
}

func writeBranchParams(w *Writer, p opcode.BranchParams) error {
	if err := w.WriteI32(int32(p.Offset)); err != nil {
		return err
	}
	return writeDropKeep(w, p.DropKeep)
}

func readBranchParams(r *Reader) (opcode.BranchParams, error) {
	offset, err := r.ReadI32()
	if err != nil {
		return opcode.BranchParams{}, err
	}
	dk, err := readDropKeep(r)
	if err != nil {
		return opcode.BranchParams{}, err
	}
	return opcode.BranchParams{Offset: opcode.JumpDest(offset), DropKeep: dk}, nil
}

// EncodeOpCode writes one opcode into w. Kinds without a binary encoding
// (the floating-point and element-segment families) write nothing and
// return nil; the compiler rejects them before they can reach a binary.
func EncodeOpCode(w *Writer, op opcode.OpCode) error {
	if !op.Kind.Encodable() {
		return nil
	}
	if err := w.WriteU8(op.Kind.Tag()); err != nil {
		return err
	}
	switch op.Kind {
	case opcode.KindConsumeFuel:
		return w.WriteU64(uint64(op.Fuel))
	case opcode.KindLocalGet, opcode.KindLocalSet, opcode.KindLocalTee,
		opcode.KindBrTable, opcode.KindCallHost, opcode.KindCallIndirect,
		opcode.KindGlobalGet, opcode.KindGlobalSet,
		opcode.KindMemoryInit, opcode.KindDataDrop,
		opcode.KindTableSize, opcode.KindTableGrow, opcode.KindTableFill,
		opcode.KindTableGet, opcode.KindTableSet:
		return w.WriteU32(uint32(op.Index))
	case opcode.KindTableCopy, opcode.KindTableInit:
		if err := w.WriteU32(uint32(op.Index)); err != nil {
			return err
		}
		return w.WriteU32(uint32(op.Index2))
	case opcode.KindBr, opcode.KindBrIfEqz, opcode.KindBrIfNez:
		return writeBranchParams(w, op.Branch)
	case opcode.KindReturn, opcode.KindReturnIfNez:
		return writeDropKeep(w, op.DropKeep)
	case opcode.KindReturnCall, opcode.KindReturnCallIndirect:
		if err := w.WriteU32(uint32(op.Index)); err != nil {
			return err
		}
		return writeDropKeep(w, op.DropKeep)
	case opcode.KindCall:
		return w.WriteI32(int32(op.Branch.Offset))
	case opcode.KindI64Const, opcode.KindI32Const:
		return w.WriteU64(op.Value.Bits())
	}
	if op.Kind.IsMemAccess() {
		return w.WriteU32(uint32(op.Offset))
	}
	// remaining encodable kinds carry no operand
	return nil
}

// DecodeOpCode reads exactly one opcode from r. An unassigned tag byte
// fails with an illegal-opcode error; a truncated operand fails with
// need-more.
func DecodeOpCode(r *Reader) (opcode.OpCode, error) {
	tag, err := r.ReadU8()
	if err != nil {
		return opcode.OpCode{}, err
	}
	kind := opcode.Kind(tag)
	if !kind.Valid() {
		return opcode.OpCode{}, errors.IllegalOpcode(errors.PhaseDecode, tag)
	}

	op := opcode.OpCode{Kind: kind}
	switch kind {
	case opcode.KindConsumeFuel:
		amount, err := r.ReadU64()
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Fuel = opcode.Fuel(amount)
	case opcode.KindLocalGet, opcode.KindLocalSet, opcode.KindLocalTee,
		opcode.KindBrTable, opcode.KindCallHost, opcode.KindCallIndirect,
		opcode.KindGlobalGet, opcode.KindGlobalSet,
		opcode.KindMemoryInit, opcode.KindDataDrop,
		opcode.KindTableSize, opcode.KindTableGrow, opcode.KindTableFill,
		opcode.KindTableGet, opcode.KindTableSet:
		idx, err := r.ReadU32()
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Index = opcode.Index(idx)
	case opcode.KindTableCopy, opcode.KindTableInit:
		first, err := r.ReadU32()
		if err != nil {
			return opcode.OpCode{}, err
		}
		second, err := r.ReadU32()
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Index, op.Index2 = opcode.Index(first), opcode.Index(second)
	case opcode.KindBr, opcode.KindBrIfEqz, opcode.KindBrIfNez:
		params, err := readBranchParams(r)
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Branch = params
	case opcode.KindReturn, opcode.KindReturnIfNez:
		dk, err := readDropKeep(r)
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.DropKeep = dk
	case opcode.KindReturnCall, opcode.KindReturnCallIndirect:
		idx, err := r.ReadU32()
		if err != nil {
			return opcode.OpCode{}, err
		}
		dk, err := readDropKeep(r)
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Index, op.DropKeep = opcode.Index(idx), dk
	case opcode.KindCall:
		dest, err := r.ReadI32()
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Branch.Offset = opcode.JumpDest(dest)
	case opcode.KindI64Const, opcode.KindI32Const:
		bits, err := r.ReadU64()
		if err != nil {
			return opcode.OpCode{}, err
		}
		op.Value = opcode.FromBits(bits)
	default:
		if kind.IsMemAccess() {
			offset, err := r.ReadU32()
			if err != nil {
				return opcode.OpCode{}, err
			}
			op.Offset = opcode.Offset(offset)
		}
	}
	return op, nil
}

// EncodedSize returns the number of bytes EncodeOpCode writes for op.
func EncodedSize(op opcode.OpCode) int {
	if !op.Kind.Encodable() {
		return 0
	}
	switch op.Kind {
	case opcode.KindConsumeFuel, opcode.KindI64Const, opcode.KindI32Const:
		return 1 + 8
	case opcode.KindBr, opcode.KindBrIfEqz, opcode.KindBrIfNez,
		opcode.KindReturnCall, opcode.KindReturnCallIndirect:
		return 1 + 12
	case opcode.KindReturn, opcode.KindReturnIfNez,
		opcode.KindTableCopy, opcode.KindTableInit:
		return 1 + 8
	case opcode.KindLocalGet, opcode.KindLocalSet, opcode.KindLocalTee,
		opcode.KindBrTable, opcode.KindCall, opcode.KindCallHost, opcode.KindCallIndirect,
		opcode.KindGlobalGet, opcode.KindGlobalSet,
		opcode.KindMemoryInit, opcode.KindDataDrop,
		opcode.KindTableSize, opcode.KindTableGrow, opcode.KindTableFill,
		opcode.KindTableGet, opcode.KindTableSet:
		return 1 + 4
	}
	if op.Kind.IsMemAccess() {
		return 1 + 4
	}
	return 1
}

// AppendOpCode encodes op and appends its bytes to dst.
func AppendOpCode(dst []byte, op opcode.OpCode) ([]byte, error) {
	buf := make([]byte, EncodedSize(op))
	w := NewWriter(buf)
	if err := EncodeOpCode(w, op); err != nil {
		return dst, err
	}
	return append(dst, w.Bytes()...), nil
}

// EncodeAll encodes an opcode sequence into one flat byte slice.
func EncodeAll(ops []opcode.OpCode) ([]byte, error) {
	var out []byte
	for _, op := range ops {
		var err error
		if out, err = AppendOpCode(out, op); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeAll decodes opcodes until the reader is exhausted.
func DecodeAll(r *Reader) ([]opcode.OpCode, error) {
	var out []opcode.OpCode
	for !r.IsEmpty() {
		op, err := DecodeOpCode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	return out, nil
}
