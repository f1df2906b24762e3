package wasmtest

import "bytes"

// Code builds a function body from instruction fragments.
func Code(fragments ...[]byte) []byte {
	var out bytes.Buffer
	for _, fragment := range fragments {
		out.Write(fragment)
	}
	return out.Bytes()
}

// Raw wraps literal opcode bytes.
func Raw(code ...byte) []byte { return code }

// OpI32Const encodes i32.const.
func OpI32Const(v int32) []byte {
	var out bytes.Buffer
	out.WriteByte(0x41)
	writeSleb(&out, int64(v))
	return out.Bytes()
}

// OpI64Const encodes i64.const.
func OpI64Const(v int64) []byte {
	var out bytes.Buffer
	out.WriteByte(0x42)
	writeSleb(&out, v)
	return out.Bytes()
}

func opWithIndex(op byte, index uint32) []byte {
	var out bytes.Buffer
	out.WriteByte(op)
	writeUleb(&out, uint64(index))
	return out.Bytes()
}

// OpLocalGet encodes local.get.
func OpLocalGet(index uint32) []byte { return opWithIndex(0x20, index) }

// OpLocalSet encodes local.set.
func OpLocalSet(index uint32) []byte { return opWithIndex(0x21, index) }

// OpLocalTee encodes local.tee.
func OpLocalTee(index uint32) []byte { return opWithIndex(0x22, index) }

// OpGlobalGet encodes global.get.
func OpGlobalGet(index uint32) []byte { return opWithIndex(0x23, index) }

// OpGlobalSet encodes global.set.
func OpGlobalSet(index uint32) []byte { return opWithIndex(0x24, index) }

// OpCall encodes call.
func OpCall(index uint32) []byte { return opWithIndex(0x10, index) }

// OpBr encodes br.
func OpBr(label uint32) []byte { return opWithIndex(0x0C, label) }

// OpBrIf encodes br_if.
func OpBrIf(label uint32) []byte { return opWithIndex(0x0D, label) }

// OpBlock opens a void block.
func OpBlock() []byte { return []byte{0x02, 0x40} }

// OpLoop opens a void loop.
func OpLoop() []byte { return []byte{0x03, 0x40} }

// OpIf opens a void if.
func OpIf() []byte { return []byte{0x04, 0x40} }

// OpElse starts the else branch.
func OpElse() []byte { return []byte{0x05} }

// OpEnd closes a block.
func OpEnd() []byte { return []byte{0x0B} }

// OpReturn encodes return.
func OpReturn() []byte { return []byte{0x0F} }

// OpDrop encodes drop.
func OpDrop() []byte { return []byte{0x1A} }

// OpI32Add encodes i32.add.
func OpI32Add() []byte { return []byte{0x6A} }

// OpI32Sub encodes i32.sub.
func OpI32Sub() []byte { return []byte{0x6B} }

// OpI32Mul encodes i32.mul.
func OpI32Mul() []byte { return []byte{0x6C} }

// OpI32LtU encodes i32.lt_u.
func OpI32LtU() []byte { return []byte{0x49} }

// OpI32Store encodes i32.store with alignment 2 and the given offset.
func OpI32Store(offset uint32) []byte {
	var out bytes.Buffer
	out.WriteByte(0x36)
	writeUleb(&out, 2)
	writeUleb(&out, uint64(offset))
	return out.Bytes()
}

// OpI32Load encodes i32.load with alignment 2 and the given offset.
func OpI32Load(offset uint32) []byte {
	var out bytes.Buffer
	out.WriteByte(0x28)
	writeUleb(&out, 2)
	writeUleb(&out, uint64(offset))
	return out.Bytes()
}
