package compiler

import (
	ops "github.com/go-interpreter/wagon/wasm/operators"

	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// memAccessKinds maps wasm load/store operators to their flat-IR kinds.
var memAccessKinds = map[byte]opcode.Kind{
	ops.I32Load:    opcode.KindI32Load,
	ops.I64Load:    opcode.KindI64Load,
	ops.F32Load:    opcode.KindF32Load,
	ops.F64Load:    opcode.KindF64Load,
	ops.I32Load8s:  opcode.KindI32Load8S,
	ops.I32Load8u:  opcode.KindI32Load8U,
	ops.I32Load16s: opcode.KindI32Load16S,
	ops.I32Load16u: opcode.KindI32Load16U,
	ops.I64Load8s:  opcode.KindI64Load8S,
	ops.I64Load8u:  opcode.KindI64Load8U,
	ops.I64Load16s: opcode.KindI64Load16S,
	ops.I64Load16u: opcode.KindI64Load16U,
	ops.I64Load32s: opcode.KindI64Load32S,
	ops.I64Load32u: opcode.KindI64Load32U,
	ops.I32Store:   opcode.KindI32Store,
	ops.I64Store:   opcode.KindI64Store,
	ops.F32Store:   opcode.KindF32Store,
	ops.F64Store:   opcode.KindF64Store,
	ops.I32Store8:  opcode.KindI32Store8,
	ops.I32Store16: opcode.KindI32Store16,
	ops.I64Store8:  opcode.KindI64Store8,
	ops.I64Store16: opcode.KindI64Store16,
	ops.I64Store32: opcode.KindI64Store32,
}

// numericKinds maps every straight-line numeric wasm operator to its
// flat-IR kind. Stack effects come from the operator metadata, so only
// the identity mapping lives here.
var numericKinds = map[byte]opcode.Kind{
	ops.I32Eqz: opcode.KindI32Eqz,
	ops.I32Eq:  opcode.KindI32Eq,
	ops.I32Ne:  opcode.KindI32Ne,
	ops.I32LtS: opcode.KindI32LtS,
	ops.I32LtU: opcode.KindI32LtU,
	ops.I32GtS: opcode.KindI32GtS,
	ops.I32GtU: opcode.KindI32GtU,
	ops.I32LeS: opcode.KindI32LeS,
	ops.I32LeU: opcode.KindI32LeU,
	ops.I32GeS: opcode.KindI32GeS,
	ops.I32GeU: opcode.KindI32GeU,
	ops.I64Eqz: opcode.KindI64Eqz,
	ops.I64Eq:  opcode.KindI64Eq,
	ops.I64Ne:  opcode.KindI64Ne,
	ops.I64LtS: opcode.KindI64LtS,
	ops.I64LtU: opcode.KindI64LtU,
	ops.I64GtS: opcode.KindI64GtS,
	ops.I64GtU: opcode.KindI64GtU,
	ops.I64LeS: opcode.KindI64LeS,
	ops.I64LeU: opcode.KindI64LeU,
	ops.I64GeS: opcode.KindI64GeS,
	ops.I64GeU: opcode.KindI64GeU,

	ops.I32Clz:    opcode.KindI32Clz,
	ops.I32Ctz:    opcode.KindI32Ctz,
	ops.I32Popcnt: opcode.KindI32Popcnt,
	ops.I32Add:    opcode.KindI32Add,
	ops.I32Sub:    opcode.KindI32Sub,
	ops.I32Mul:    opcode.KindI32Mul,
	ops.I32DivS:   opcode.KindI32DivS,
	ops.I32DivU:   opcode.KindI32DivU,
	ops.I32RemS:   opcode.KindI32RemS,
	ops.I32RemU:   opcode.KindI32RemU,
	ops.I32And:    opcode.KindI32And,
	ops.I32Or:     opcode.KindI32Or,
	ops.I32Xor:    opcode.KindI32Xor,
	ops.I32Shl:    opcode.KindI32Shl,
	ops.I32ShrS:   opcode.KindI32ShrS,
	ops.I32ShrU:   opcode.KindI32ShrU,
	ops.I32Rotl:   opcode.KindI32Rotl,
	ops.I32Rotr:   opcode.KindI32Rotr,
	ops.I64Clz:    opcode.KindI64Clz,
	ops.I64Ctz:    opcode.KindI64Ctz,
	ops.I64Popcnt: opcode.KindI64Popcnt,
	ops.I64Add:    opcode.KindI64Add,
	ops.I64Sub:    opcode.KindI64Sub,
	ops.I64Mul:    opcode.KindI64Mul,
	ops.I64DivS:   opcode.KindI64DivS,
	ops.I64DivU:   opcode.KindI64DivU,
	ops.I64RemS:   opcode.KindI64RemS,
	ops.I64RemU:   opcode.KindI64RemU,
	ops.I64And:    opcode.KindI64And,
	ops.I64Or:     opcode.KindI64Or,
	ops.I64Xor:    opcode.KindI64Xor,
	ops.I64Shl:    opcode.KindI64Shl,
	ops.I64ShrS:   opcode.KindI64ShrS,
	ops.I64ShrU:   opcode.KindI64ShrU,
	ops.I64Rotl:   opcode.KindI64Rotl,
	ops.I64Rotr:   opcode.KindI64Rotr,

	ops.I32WrapI64:    opcode.KindI32WrapI64,
	ops.I64ExtendSI32: opcode.KindI64ExtendI32S,
	ops.I64ExtendUI32: opcode.KindI64ExtendI32U,

	ops.F32Eq: opcode.KindF32Eq,
	ops.F32Ne: opcode.KindF32Ne,
	ops.F32Lt: opcode.KindF32Lt,
	ops.F32Gt: opcode.KindF32Gt,
	ops.F32Le: opcode.KindF32Le,
	ops.F32Ge: opcode.KindF32Ge,
	ops.F64Eq: opcode.KindF64Eq,
	ops.F64Ne: opcode.KindF64Ne,
	ops.F64Lt: opcode.KindF64Lt,
	ops.F64Gt: opcode.KindF64Gt,
	ops.F64Le: opcode.KindF64Le,
	ops.F64Ge: opcode.KindF64Ge,

	ops.F32Abs:      opcode.KindF32Abs,
	ops.F32Neg:      opcode.KindF32Neg,
	ops.F32Ceil:     opcode.KindF32Ceil,
	ops.F32Floor:    opcode.KindF32Floor,
	ops.F32Trunc:    opcode.KindF32Trunc,
	ops.F32Nearest:  opcode.KindF32Nearest,
	ops.F32Sqrt:     opcode.KindF32Sqrt,
	ops.F32Add:      opcode.KindF32Add,
	ops.F32Sub:      opcode.KindF32Sub,
	ops.F32Mul:      opcode.KindF32Mul,
	ops.F32Div:      opcode.KindF32Div,
	ops.F32Min:      opcode.KindF32Min,
	ops.F32Max:      opcode.KindF32Max,
	ops.F32Copysign: opcode.KindF32Copysign,
	ops.F64Abs:      opcode.KindF64Abs,
	ops.F64Neg:      opcode.KindF64Neg,
	ops.F64Ceil:     opcode.KindF64Ceil,
	ops.F64Floor:    opcode.KindF64Floor,
	ops.F64Trunc:    opcode.KindF64Trunc,
	ops.F64Nearest:  opcode.KindF64Nearest,
	ops.F64Sqrt:     opcode.KindF64Sqrt,
	ops.F64Add:      opcode.KindF64Add,
	ops.F64Sub:      opcode.KindF64Sub,
	ops.F64Mul:      opcode.KindF64Mul,
	ops.F64Div:      opcode.KindF64Div,
	ops.F64Min:      opcode.KindF64Min,
	ops.F64Max:      opcode.KindF64Max,
	ops.F64Copysign: opcode.KindF64Copysign,

	ops.I32TruncSF32:   opcode.KindI32TruncF32S,
	ops.I32TruncUF32:   opcode.KindI32TruncF32U,
	ops.I32TruncSF64:   opcode.KindI32TruncF64S,
	ops.I32TruncUF64:   opcode.KindI32TruncF64U,
	ops.I64TruncSF32:   opcode.KindI64TruncF32S,
	ops.I64TruncUF32:   opcode.KindI64TruncF32U,
	ops.I64TruncSF64:   opcode.KindI64TruncF64S,
	ops.I64TruncUF64:   opcode.KindI64TruncF64U,
	ops.F32ConvertSI32: opcode.KindF32ConvertI32S,
	ops.F32ConvertUI32: opcode.KindF32ConvertI32U,
	ops.F32ConvertSI64: opcode.KindF32ConvertI64S,
	ops.F32ConvertUI64: opcode.KindF32ConvertI64U,
	ops.F32DemoteF64:   opcode.KindF32DemoteF64,
	ops.F64ConvertSI32: opcode.KindF64ConvertI32S,
	ops.F64ConvertUI32: opcode.KindF64ConvertI32U,
	ops.F64ConvertSI64: opcode.KindF64ConvertI64S,
	ops.F64ConvertUI64: opcode.KindF64ConvertI64U,
	ops.F64PromoteF32:  opcode.KindF64PromoteF32,
}
