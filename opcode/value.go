package opcode

import (
	"math"
	"math/bits"

	"github.com/zkvmlabs/wasm-tracer/errors"
)

// UntypedValue is a 64-bit bag of bits. Every stack slot holds exactly
// one UntypedValue; the typed interpretation is chosen by the opcode
// operating on it, never by the value itself.
type UntypedValue uint64

// FromBits reinterprets a raw bit pattern as a value.
func FromBits(bits uint64) UntypedValue { return UntypedValue(bits) }

// FromI32 stores a 32-bit integer in the low 32 bits of a value; the
// upper half is zero.
func FromI32(v int32) UntypedValue { return UntypedValue(uint64(uint32(v))) }

// FromI64 reinterprets a 64-bit integer as a value.
func FromI64(v int64) UntypedValue { return UntypedValue(uint64(v)) }

// FromU32 zero-extends a 32-bit integer into a value.
func FromU32(v uint32) UntypedValue { return UntypedValue(uint64(v)) }

// FromBool encodes a boolean as 1 or 0.
func FromBool(v bool) UntypedValue {
	if v {
		return 1
	}
	return 0
}

// Bits returns the raw bit pattern.
func (v UntypedValue) Bits() uint64 { return uint64(v) }

// AsI32 truncates to the low 32 bits, signed.
func (v UntypedValue) AsI32() int32 { return int32(uint32(v)) }

// AsU32 truncates to the low 32 bits, unsigned.
func (v UntypedValue) AsU32() uint32 { return uint32(v) }

// AsI64 reinterprets the bits as a signed 64-bit integer.
func (v UntypedValue) AsI64() int64 { return int64(v) }

// AsU64 reinterprets the bits as an unsigned 64-bit integer.
func (v UntypedValue) AsU64() uint64 { return uint64(v) }

// AsBool reports whether the value is nonzero.
func (v UntypedValue) AsBool() bool { return v != 0 }

// i32 comparisons

func (v UntypedValue) I32Eqz() UntypedValue { return FromBool(v.AsU32() == 0) }

func (v UntypedValue) I32Eq(o UntypedValue) UntypedValue { return FromBool(v.AsU32() == o.AsU32()) }
func (v UntypedValue) I32Ne(o UntypedValue) UntypedValue { return FromBool(v.AsU32() != o.AsU32()) }

func (v UntypedValue) I32LtS(o UntypedValue) UntypedValue { return FromBool(v.AsI32() < o.AsI32()) }
func (v UntypedValue) I32LtU(o UntypedValue) UntypedValue { return FromBool(v.AsU32() < o.AsU32()) }
func (v UntypedValue) I32GtS(o UntypedValue) UntypedValue { return FromBool(v.AsI32() > o.AsI32()) }
func (v UntypedValue) I32GtU(o UntypedValue) UntypedValue { return FromBool(v.AsU32() > o.AsU32()) }
func (v UntypedValue) I32LeS(o UntypedValue) UntypedValue { return FromBool(v.AsI32() <= o.AsI32()) }
func (v UntypedValue) I32LeU(o UntypedValue) UntypedValue { return FromBool(v.AsU32() <= o.AsU32()) }
func (v UntypedValue) I32GeS(o UntypedValue) UntypedValue { return FromBool(v.AsI32() >= o.AsI32()) }
func (v UntypedValue) I32GeU(o UntypedValue) UntypedValue { return FromBool(v.AsU32() >= o.AsU32()) }

// i64 comparisons

func (v UntypedValue) I64Eqz() UntypedValue { return FromBool(v == 0) }

func (v UntypedValue) I64Eq(o UntypedValue) UntypedValue { return FromBool(v == o) }
func (v UntypedValue) I64Ne(o UntypedValue) UntypedValue { return FromBool(v != o) }

func (v UntypedValue) I64LtS(o UntypedValue) UntypedValue { return FromBool(v.AsI64() < o.AsI64()) }
func (v UntypedValue) I64LtU(o UntypedValue) UntypedValue { return FromBool(v.AsU64() < o.AsU64()) }
func (v UntypedValue) I64GtS(o UntypedValue) UntypedValue { return FromBool(v.AsI64() > o.AsI64()) }
func (v UntypedValue) I64GtU(o UntypedValue) UntypedValue { return FromBool(v.AsU64() > o.AsU64()) }
func (v UntypedValue) I64LeS(o UntypedValue) UntypedValue { return FromBool(v.AsI64() <= o.AsI64()) }
func (v UntypedValue) I64LeU(o UntypedValue) UntypedValue { return FromBool(v.AsU64() <= o.AsU64()) }
func (v UntypedValue) I64GeS(o UntypedValue) UntypedValue { return FromBool(v.AsI64() >= o.AsI64()) }
func (v UntypedValue) I64GeU(o UntypedValue) UntypedValue { return FromBool(v.AsU64() >= o.AsU64()) }

// i32 arithmetic and bit operations

func (v UntypedValue) I32Clz() UntypedValue    { return FromU32(uint32(bits.LeadingZeros32(v.AsU32()))) }
func (v UntypedValue) I32Ctz() UntypedValue    { return FromU32(uint32(bits.TrailingZeros32(v.AsU32()))) }
func (v UntypedValue) I32Popcnt() UntypedValue { return FromU32(uint32(bits.OnesCount32(v.AsU32()))) }

func (v UntypedValue) I32Add(o UntypedValue) UntypedValue { return FromU32(v.AsU32() + o.AsU32()) }
func (v UntypedValue) I32Sub(o UntypedValue) UntypedValue { return FromU32(v.AsU32() - o.AsU32()) }
func (v UntypedValue) I32Mul(o UntypedValue) UntypedValue { return FromU32(v.AsU32() * o.AsU32()) }

func (v UntypedValue) I32DivS(o UntypedValue) (UntypedValue, error) {
	lhs, rhs := v.AsI32(), o.AsI32()
	if rhs == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	if lhs == math.MinInt32 && rhs == -1 {
		return 0, errors.Internal(errors.PhaseRun, "integer overflow")
	}
	return FromI32(lhs / rhs), nil
}

func (v UntypedValue) I32DivU(o UntypedValue) (UntypedValue, error) {
	if o.AsU32() == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	return FromU32(v.AsU32() / o.AsU32()), nil
}

func (v UntypedValue) I32RemS(o UntypedValue) (UntypedValue, error) {
	lhs, rhs := v.AsI32(), o.AsI32()
	if rhs == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	if lhs == math.MinInt32 && rhs == -1 {
		return 0, nil
	}
	return FromI32(lhs % rhs), nil
}

func (v UntypedValue) I32RemU(o UntypedValue) (UntypedValue, error) {
	if o.AsU32() == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	return FromU32(v.AsU32() % o.AsU32()), nil
}

func (v UntypedValue) I32And(o UntypedValue) UntypedValue { return FromU32(v.AsU32() & o.AsU32()) }
func (v UntypedValue) I32Or(o UntypedValue) UntypedValue  { return FromU32(v.AsU32() | o.AsU32()) }
func (v UntypedValue) I32Xor(o UntypedValue) UntypedValue { return FromU32(v.AsU32() ^ o.AsU32()) }

func (v UntypedValue) I32Shl(o UntypedValue) UntypedValue {
	return FromU32(v.AsU32() << (o.AsU32() & 31))
}

func (v UntypedValue) I32ShrS(o UntypedValue) UntypedValue {
	return FromI32(v.AsI32() >> (o.AsU32() & 31))
}

func (v UntypedValue) I32ShrU(o UntypedValue) UntypedValue {
	return FromU32(v.AsU32() >> (o.AsU32() & 31))
}

func (v UntypedValue) I32Rotl(o UntypedValue) UntypedValue {
	return FromU32(bits.RotateLeft32(v.AsU32(), int(o.AsU32()&31)))
}

func (v UntypedValue) I32Rotr(o UntypedValue) UntypedValue {
	return FromU32(bits.RotateLeft32(v.AsU32(), -int(o.AsU32()&31)))
}

// i64 arithmetic and bit operations

func (v UntypedValue) I64Clz() UntypedValue    { return UntypedValue(bits.LeadingZeros64(v.AsU64())) }
func (v UntypedValue) I64Ctz() UntypedValue    { return UntypedValue(bits.TrailingZeros64(v.AsU64())) }
func (v UntypedValue) I64Popcnt() UntypedValue { return UntypedValue(bits.OnesCount64(v.AsU64())) }

func (v UntypedValue) I64Add(o UntypedValue) UntypedValue { return v + o }
func (v UntypedValue) I64Sub(o UntypedValue) UntypedValue { return v - o }
func (v UntypedValue) I64Mul(o UntypedValue) UntypedValue { return v * o }

func (v UntypedValue) I64DivS(o UntypedValue) (UntypedValue, error) {
	lhs, rhs := v.AsI64(), o.AsI64()
	if rhs == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	if lhs == math.MinInt64 && rhs == -1 {
		return 0, errors.Internal(errors.PhaseRun, "integer overflow")
	}
	return FromI64(lhs / rhs), nil
}

func (v UntypedValue) I64DivU(o UntypedValue) (UntypedValue, error) {
	if o == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	return UntypedValue(v.AsU64() / o.AsU64()), nil
}

func (v UntypedValue) I64RemS(o UntypedValue) (UntypedValue, error) {
	lhs, rhs := v.AsI64(), o.AsI64()
	if rhs == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	if lhs == math.MinInt64 && rhs == -1 {
		return 0, nil
	}
	return FromI64(lhs % rhs), nil
}

func (v UntypedValue) I64RemU(o UntypedValue) (UntypedValue, error) {
	if o == 0 {
		return 0, errors.Internal(errors.PhaseRun, "integer division by zero")
	}
	return UntypedValue(v.AsU64() % o.AsU64()), nil
}

func (v UntypedValue) I64And(o UntypedValue) UntypedValue { return v & o }
func (v UntypedValue) I64Or(o UntypedValue) UntypedValue  { return v | o }
func (v UntypedValue) I64Xor(o UntypedValue) UntypedValue { return v ^ o }

func (v UntypedValue) I64Shl(o UntypedValue) UntypedValue { return v << (o.AsU64() & 63) }

func (v UntypedValue) I64ShrS(o UntypedValue) UntypedValue {
	return FromI64(v.AsI64() >> (o.AsU64() & 63))
}

func (v UntypedValue) I64ShrU(o UntypedValue) UntypedValue { return v >> (o.AsU64() & 63) }

func (v UntypedValue) I64Rotl(o UntypedValue) UntypedValue {
	return UntypedValue(bits.RotateLeft64(v.AsU64(), int(o.AsU64()&63)))
}

func (v UntypedValue) I64Rotr(o UntypedValue) UntypedValue {
	return UntypedValue(bits.RotateLeft64(v.AsU64(), -int(o.AsU64()&63)))
}

// conversions

func (v UntypedValue) I32WrapI64() UntypedValue { return FromU32(uint32(v)) }

func (v UntypedValue) I64ExtendI32S() UntypedValue { return FromI64(int64(v.AsI32())) }
func (v UntypedValue) I64ExtendI32U() UntypedValue { return FromU32(v.AsU32()) }

func (v UntypedValue) I32Extend8S() UntypedValue  { return FromI32(int32(int8(v))) }
func (v UntypedValue) I32Extend16S() UntypedValue { return FromI32(int32(int16(v))) }
func (v UntypedValue) I64Extend8S() UntypedValue  { return FromI64(int64(int8(v))) }
func (v UntypedValue) I64Extend16S() UntypedValue { return FromI64(int64(int16(v))) }
func (v UntypedValue) I64Extend32S() UntypedValue { return FromI64(int64(int32(v))) }
