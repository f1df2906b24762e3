package engine

import (
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

func errorUnsupported(op opcode.OpCode) error {
	return errors.New(errors.PhaseRun, errors.KindUnsupportedOpcode).
		Detail("%s", op.Kind).Build()
}

// memAccess executes one typed load or store. Addresses are the popped
// base plus the static offset, evaluated in 64 bits so the bounds check
// cannot be defeated by wraparound. Typed access is big-endian, matching
// the byte order of the flat IR and of data-segment initialization.
func (v *vm) memAccess(op opcode.OpCode) error {
	memory := v.engine.store.Memory
	switch op.Kind {
	case opcode.KindI32Store, opcode.KindI64Store,
		opcode.KindI32Store8, opcode.KindI32Store16,
		opcode.KindI64Store8, opcode.KindI64Store16, opcode.KindI64Store32:
		value := v.pop()
		address := uint64(v.pop().AsU32()) + uint64(op.Offset)
		var width int
		switch op.Kind {
		case opcode.KindI32Store8, opcode.KindI64Store8:
			width = 1
		case opcode.KindI32Store16, opcode.KindI64Store16:
			width = 2
		case opcode.KindI32Store, opcode.KindI64Store32:
			width = 4
		case opcode.KindI64Store:
			width = 8
		}
		written, err := memory.WriteUint(address, width, value.Bits())
		if err != nil {
			return err
		}
		if v.tracing {
			v.engine.store.Tracer.MemoryChange(uint32(address), uint32(width), written)
		}
		return nil
	}

	address := uint64(v.pop().AsU32()) + uint64(op.Offset)
	var value opcode.UntypedValue
	switch op.Kind {
	case opcode.KindI32Load:
		raw, err := memory.ReadUint(address, 4)
		if err != nil {
			return err
		}
		value = opcode.FromU32(uint32(raw))
	case opcode.KindI64Load:
		raw, err := memory.ReadUint(address, 8)
		if err != nil {
			return err
		}
		value = opcode.FromBits(raw)
	case opcode.KindI32Load8S:
		raw, err := memory.ReadUint(address, 1)
		if err != nil {
			return err
		}
		value = opcode.FromI32(int32(int8(raw)))
	case opcode.KindI32Load8U:
		raw, err := memory.ReadUint(address, 1)
		if err != nil {
			return err
		}
		value = opcode.FromU32(uint32(raw))
	case opcode.KindI32Load16S:
		raw, err := memory.ReadUint(address, 2)
		if err != nil {
			return err
		}
		value = opcode.FromI32(int32(int16(raw)))
	case opcode.KindI32Load16U:
		raw, err := memory.ReadUint(address, 2)
		if err != nil {
			return err
		}
		value = opcode.FromU32(uint32(raw))
	case opcode.KindI64Load8S:
		raw, err := memory.ReadUint(address, 1)
		if err != nil {
			return err
		}
		value = opcode.FromI64(int64(int8(raw)))
	case opcode.KindI64Load8U:
		raw, err := memory.ReadUint(address, 1)
		if err != nil {
			return err
		}
		value = opcode.FromBits(raw)
	case opcode.KindI64Load16S:
		raw, err := memory.ReadUint(address, 2)
		if err != nil {
			return err
		}
		value = opcode.FromI64(int64(int16(raw)))
	case opcode.KindI64Load16U:
		raw, err := memory.ReadUint(address, 2)
		if err != nil {
			return err
		}
		value = opcode.FromBits(raw)
	case opcode.KindI64Load32S:
		raw, err := memory.ReadUint(address, 4)
		if err != nil {
			return err
		}
		value = opcode.FromI64(int64(int32(raw)))
	case opcode.KindI64Load32U:
		raw, err := memory.ReadUint(address, 4)
		if err != nil {
			return err
		}
		value = opcode.FromBits(raw)
	default:
		return errorUnsupported(op)
	}
	return v.push(value)
}

// numeric executes the i32/i64 comparison, arithmetic, bitwise, shift
// and extension families. It reports false for kinds outside them.
func (v *vm) numeric(op opcode.OpCode) (bool, error) {
	unary := func(fn func(opcode.UntypedValue) opcode.UntypedValue) (bool, error) {
		v.stack[len(v.stack)-1] = fn(v.top())
		return true, nil
	}
	bin := func(fn func(opcode.UntypedValue, opcode.UntypedValue) opcode.UntypedValue) (bool, error) {
		rhs := v.pop()
		v.stack[len(v.stack)-1] = fn(v.top(), rhs)
		return true, nil
	}
	binErr := func(fn func(opcode.UntypedValue, opcode.UntypedValue) (opcode.UntypedValue, error)) (bool, error) {
		rhs := v.pop()
		result, err := fn(v.top(), rhs)
		if err != nil {
			return true, err
		}
		v.stack[len(v.stack)-1] = result
		return true, nil
	}

	switch op.Kind {
	case opcode.KindI32Eqz:
		return unary(opcode.UntypedValue.I32Eqz)
	case opcode.KindI32Eq:
		return bin(opcode.UntypedValue.I32Eq)
	case opcode.KindI32Ne:
		return bin(opcode.UntypedValue.I32Ne)
	case opcode.KindI32LtS:
		return bin(opcode.UntypedValue.I32LtS)
	case opcode.KindI32LtU:
		return bin(opcode.UntypedValue.I32LtU)
	case opcode.KindI32GtS:
		return bin(opcode.UntypedValue.I32GtS)
	case opcode.KindI32GtU:
		return bin(opcode.UntypedValue.I32GtU)
	case opcode.KindI32LeS:
		return bin(opcode.UntypedValue.I32LeS)
	case opcode.KindI32LeU:
		return bin(opcode.UntypedValue.I32LeU)
	case opcode.KindI32GeS:
		return bin(opcode.UntypedValue.I32GeS)
	case opcode.KindI32GeU:
		return bin(opcode.UntypedValue.I32GeU)
	case opcode.KindI64Eqz:
		return unary(opcode.UntypedValue.I64Eqz)
	case opcode.KindI64Eq:
		return bin(opcode.UntypedValue.I64Eq)
	case opcode.KindI64Ne:
		return bin(opcode.UntypedValue.I64Ne)
	case opcode.KindI64LtS:
		return bin(opcode.UntypedValue.I64LtS)
	case opcode.KindI64LtU:
		return bin(opcode.UntypedValue.I64LtU)
	case opcode.KindI64GtS:
		return bin(opcode.UntypedValue.I64GtS)
	case opcode.KindI64GtU:
		return bin(opcode.UntypedValue.I64GtU)
	case opcode.KindI64LeS:
		return bin(opcode.UntypedValue.I64LeS)
	case opcode.KindI64LeU:
		return bin(opcode.UntypedValue.I64LeU)
	case opcode.KindI64GeS:
		return bin(opcode.UntypedValue.I64GeS)
	case opcode.KindI64GeU:
		return bin(opcode.UntypedValue.I64GeU)

	case opcode.KindI32Clz:
		return unary(opcode.UntypedValue.I32Clz)
	case opcode.KindI32Ctz:
		return unary(opcode.UntypedValue.I32Ctz)
	case opcode.KindI32Popcnt:
		return unary(opcode.UntypedValue.I32Popcnt)
	case opcode.KindI32Add:
		return bin(opcode.UntypedValue.I32Add)
	case opcode.KindI32Sub:
		return bin(opcode.UntypedValue.I32Sub)
	case opcode.KindI32Mul:
		return bin(opcode.UntypedValue.I32Mul)
	case opcode.KindI32DivS:
		return binErr(opcode.UntypedValue.I32DivS)
	case opcode.KindI32DivU:
		return binErr(opcode.UntypedValue.I32DivU)
	case opcode.KindI32RemS:
		return binErr(opcode.UntypedValue.I32RemS)
	case opcode.KindI32RemU:
		return binErr(opcode.UntypedValue.I32RemU)
	case opcode.KindI32And:
		return bin(opcode.UntypedValue.I32And)
	case opcode.KindI32Or:
		return bin(opcode.UntypedValue.I32Or)
	case opcode.KindI32Xor:
		return bin(opcode.UntypedValue.I32Xor)
	case opcode.KindI32Shl:
		return bin(opcode.UntypedValue.I32Shl)
	case opcode.KindI32ShrS:
		return bin(opcode.UntypedValue.I32ShrS)
	case opcode.KindI32ShrU:
		return bin(opcode.UntypedValue.I32ShrU)
	case opcode.KindI32Rotl:
		return bin(opcode.UntypedValue.I32Rotl)
	case opcode.KindI32Rotr:
		return bin(opcode.UntypedValue.I32Rotr)

	case opcode.KindI64Clz:
		return unary(opcode.UntypedValue.I64Clz)
	case opcode.KindI64Ctz:
		return unary(opcode.UntypedValue.I64Ctz)
	case opcode.KindI64Popcnt:
		return unary(opcode.UntypedValue.I64Popcnt)
	case opcode.KindI64Add:
		return bin(opcode.UntypedValue.I64Add)
	case opcode.KindI64Sub:
		return bin(opcode.UntypedValue.I64Sub)
	case opcode.KindI64Mul:
		return bin(opcode.UntypedValue.I64Mul)
	case opcode.KindI64DivS:
		return binErr(opcode.UntypedValue.I64DivS)
	case opcode.KindI64DivU:
		return binErr(opcode.UntypedValue.I64DivU)
	case opcode.KindI64RemS:
		return binErr(opcode.UntypedValue.I64RemS)
	case opcode.KindI64RemU:
		return binErr(opcode.UntypedValue.I64RemU)
	case opcode.KindI64And:
		return bin(opcode.UntypedValue.I64And)
	case opcode.KindI64Or:
		return bin(opcode.UntypedValue.I64Or)
	case opcode.KindI64Xor:
		return bin(opcode.UntypedValue.I64Xor)
	case opcode.KindI64Shl:
		return bin(opcode.UntypedValue.I64Shl)
	case opcode.KindI64ShrS:
		return bin(opcode.UntypedValue.I64ShrS)
	case opcode.KindI64ShrU:
		return bin(opcode.UntypedValue.I64ShrU)
	case opcode.KindI64Rotl:
		return bin(opcode.UntypedValue.I64Rotl)
	case opcode.KindI64Rotr:
		return bin(opcode.UntypedValue.I64Rotr)

	case opcode.KindI32WrapI64:
		return unary(opcode.UntypedValue.I32WrapI64)
	case opcode.KindI64ExtendI32S:
		return unary(opcode.UntypedValue.I64ExtendI32S)
	case opcode.KindI64ExtendI32U:
		return unary(opcode.UntypedValue.I64ExtendI32U)
	case opcode.KindI32Extend8S:
		return unary(opcode.UntypedValue.I32Extend8S)
	case opcode.KindI32Extend16S:
		return unary(opcode.UntypedValue.I32Extend16S)
	case opcode.KindI64Extend8S:
		return unary(opcode.UntypedValue.I64Extend8S)
	case opcode.KindI64Extend16S:
		return unary(opcode.UntypedValue.I64Extend16S)
	case opcode.KindI64Extend32S:
		return unary(opcode.UntypedValue.I64Extend32S)
	}
	return false, nil
}
