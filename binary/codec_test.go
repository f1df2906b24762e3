package binary

import (
	stderrors "errors"
	"testing"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// sample builds a representative opcode with nonzero operands for every
// kind, so round trips exercise each operand path.
func sample(k opcode.Kind) opcode.OpCode {
	dk := opcode.NewDropKeep(3, 2)
	switch k {
	case opcode.KindConsumeFuel:
		return opcode.ConsumeFuel(0x1122334455667788)
	case opcode.KindLocalGet:
		return opcode.LocalGet(11)
	case opcode.KindLocalSet:
		return opcode.LocalSet(12)
	case opcode.KindLocalTee:
		return opcode.LocalTee(13)
	case opcode.KindBr:
		return opcode.Br(opcode.NewBranchParams(-7, dk))
	case opcode.KindBrIfEqz:
		return opcode.BrIfEqz(opcode.NewBranchParams(9, dk))
	case opcode.KindBrIfNez:
		return opcode.BrIfNez(opcode.NewBranchParams(-1, dk))
	case opcode.KindBrTable:
		return opcode.BrTable(5)
	case opcode.KindReturn:
		return opcode.Return(dk)
	case opcode.KindReturnIfNez:
		return opcode.ReturnIfNez(dk)
	case opcode.KindReturnCall:
		return opcode.ReturnCall(4, dk)
	case opcode.KindReturnCallIndirect:
		return opcode.ReturnCallIndirect(1, dk)
	case opcode.KindCall:
		return opcode.Call(-42)
	case opcode.KindCallHost:
		return opcode.CallHost(0xEE10)
	case opcode.KindCallIndirect:
		return opcode.CallIndirect(2)
	case opcode.KindGlobalGet:
		return opcode.GlobalGet(6)
	case opcode.KindGlobalSet:
		return opcode.GlobalSet(7)
	case opcode.KindMemoryInit, opcode.KindDataDrop,
		opcode.KindTableSize, opcode.KindTableGrow, opcode.KindTableFill,
		opcode.KindTableGet, opcode.KindTableSet:
		return opcode.WithIndex(k, 3)
	case opcode.KindTableCopy:
		return opcode.TableCopy(1, 2)
	case opcode.KindTableInit:
		return opcode.TableInit(2, 3)
	case opcode.KindI32Const, opcode.KindI64Const:
		return opcode.ConstBits(k, 0xDEADBEEF11223344)
	}
	if k.IsMemAccess() {
		return opcode.MemAccess(k, 0x1000)
	}
	return opcode.Plain(k)
}

func TestRoundTripAllEncodableKinds(t *testing.T) {
	for _, kind := range opcode.Kinds() {
		op := sample(kind)
		encoded, err := EncodeAll([]opcode.OpCode{op})
		if err != nil {
			t.Fatalf("%s: encode: %v", kind, err)
		}
		if !kind.Encodable() {
			if len(encoded) != 0 {
				t.Fatalf("%s: unencodable kind produced %d bytes", kind, len(encoded))
			}
			continue
		}
		decoded, err := DecodeOpCode(NewReader(encoded))
		if err != nil {
			t.Fatalf("%s: decode: %v", kind, err)
		}
		if decoded != op {
			t.Fatalf("%s: round trip mismatch: %+v != %+v", kind, decoded, op)
		}
		if len(encoded) != EncodedSize(op) {
			t.Fatalf("%s: EncodedSize %d, encoded %d bytes", kind, EncodedSize(op), len(encoded))
		}
	}
}

func TestSizeInvarianceUnderRewrite(t *testing.T) {
	for _, kind := range []opcode.Kind{opcode.KindBr, opcode.KindBrIfEqz, opcode.KindBrIfNez, opcode.KindCall} {
		op := sample(kind)
		for _, offset := range []opcode.JumpDest{-0x7FFFFFFF, -1, 0, 1, 0x7FFFFFFF} {
			rewritten := op.WithRelocationOffset(offset)
			a, err := EncodeAll([]opcode.OpCode{op})
			if err != nil {
				t.Fatal(err)
			}
			b, err := EncodeAll([]opcode.OpCode{rewritten})
			if err != nil {
				t.Fatal(err)
			}
			if len(a) != len(b) {
				t.Fatalf("%s: rewrite changed size %d -> %d", kind, len(a), len(b))
			}
		}
	}
}

func TestBrEncodingBoundary(t *testing.T) {
	op := opcode.Br(opcode.NewBranchParams(-1, opcode.NewDropKeep(3, 2)))
	encoded, err := EncodeAll([]opcode.OpCode{op})
	if err != nil {
		t.Fatal(err)
	}
	if len(encoded) != 13 {
		t.Fatalf("expected 13 bytes (tag + 12 operand), got %d", len(encoded))
	}
	want := []byte{
		0x20,                   // br
		0xFF, 0xFF, 0xFF, 0xFF, // offset -1
		0x00, 0x00, 0x00, 0x03, // drop 3
		0x00, 0x00, 0x00, 0x02, // keep 2
	}
	for i := range want {
		if encoded[i] != want[i] {
			t.Fatalf("byte %d: got %#02x, want %#02x (%x)", i, encoded[i], want[i], encoded)
		}
	}
	decoded, err := DecodeOpCode(NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if decoded != op {
		t.Fatalf("boundary round trip mismatch: %+v", decoded)
	}
}

func TestIllegalOpcode(t *testing.T) {
	_, err := DecodeOpCode(NewReader([]byte{0xF7}))
	if !stderrors.Is(err, errors.ErrIllegalOpcode) {
		t.Fatalf("expected illegal opcode, got %v", err)
	}
	var tagged *errors.Error
	if !stderrors.As(err, &tagged) || tagged.Tag != 0xF7 {
		t.Fatalf("expected offending tag in error, got %v", err)
	}
}

func TestNeedMoreOnTruncatedOperand(t *testing.T) {
	op := opcode.ConstI64(0x0102030405060708)
	encoded, err := EncodeAll([]opcode.OpCode{op})
	if err != nil {
		t.Fatal(err)
	}
	for cut := 1; cut < len(encoded); cut++ {
		_, err := DecodeOpCode(NewReader(encoded[:cut]))
		if !stderrors.Is(err, errors.ErrNeedMore) {
			t.Fatalf("cut %d: expected need_more, got %v", cut, err)
		}
	}
}

func TestWriterNeedMoreKeepsPosition(t *testing.T) {
	w := NewWriter(make([]byte, 5))
	if err := w.WriteU32(1); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteU32(2); !stderrors.Is(err, errors.ErrNeedMore) {
		t.Fatalf("expected need_more, got %v", err)
	}
	if w.Pos() != 4 {
		t.Fatalf("failed write must not advance, pos %d", w.Pos())
	}
	var tagged *errors.Error
	if !stderrors.As(w.WriteU32(2), &tagged) || tagged.Need != 3 {
		t.Fatalf("expected 3 missing bytes")
	}
}

func TestDecodeAllReadsSequentially(t *testing.T) {
	program := []opcode.OpCode{
		opcode.ConstI32(100),
		opcode.Plain(opcode.KindI32Add),
		opcode.Return(opcode.DropKeep{}),
	}
	encoded, err := EncodeAll(program)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeAll(NewReader(encoded))
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != len(program) {
		t.Fatalf("got %d opcodes, want %d", len(decoded), len(program))
	}
	for i := range program {
		if decoded[i] != program[i] {
			t.Fatalf("opcode %d mismatch: %+v != %+v", i, decoded[i], program[i])
		}
	}
}
