package opcode

import "testing"

func TestI32Arithmetic(t *testing.T) {
	if got := FromI32(-5).I32Add(FromI32(7)); got.AsI32() != 2 {
		t.Fatalf("add: got %d", got.AsI32())
	}
	if got := FromI32(3).I32Sub(FromI32(5)); got.AsI32() != -2 {
		t.Fatalf("sub: got %d", got.AsI32())
	}
	if got := FromI32(-1).I32ShrU(FromI32(28)); got.AsU32() != 0xF {
		t.Fatalf("shr_u: got %#x", got.AsU32())
	}
	if got := FromU32(0x80000001).I32Rotl(FromI32(1)); got.AsU32() != 0x3 {
		t.Fatalf("rotl: got %#x", got.AsU32())
	}
}

func TestDivisionTraps(t *testing.T) {
	if _, err := FromI32(1).I32DivS(FromI32(0)); err == nil {
		t.Fatalf("expected division by zero")
	}
	if _, err := FromI32(-0x80000000).I32DivS(FromI32(-1)); err == nil {
		t.Fatalf("expected signed overflow")
	}
	got, err := FromI32(-0x80000000).I32RemS(FromI32(-1))
	if err != nil || got != 0 {
		t.Fatalf("rem_s overflow case: got %d, err %v", got.AsI32(), err)
	}
	if _, err := FromI64(1).I64RemU(FromI64(0)); err == nil {
		t.Fatalf("expected i64 division by zero")
	}
}

func TestComparisonsProduceBits(t *testing.T) {
	if got := FromI32(-1).I32LtS(FromI32(0)); got != 1 {
		t.Fatalf("lt_s: got %d", got)
	}
	if got := FromI32(-1).I32LtU(FromI32(0)); got != 0 {
		t.Fatalf("lt_u: -1 is max unsigned, got %d", got)
	}
	if got := FromI64(0).I64Eqz(); got != 1 {
		t.Fatalf("eqz: got %d", got)
	}
}

func TestExtensions(t *testing.T) {
	if got := FromBits(0x80).I32Extend8S(); got.AsI32() != -128 {
		t.Fatalf("extend8_s: got %d", got.AsI32())
	}
	if got := FromI32(-1).I64ExtendI32U(); got.AsU64() != 0xFFFFFFFF {
		t.Fatalf("extend_u: got %#x", got.AsU64())
	}
	if got := FromI32(-1).I64ExtendI32S(); got.AsI64() != -1 {
		t.Fatalf("extend_s: got %d", got.AsI64())
	}
	if got := FromBits(0x1_0000_0002).I32WrapI64(); got.AsU64() != 2 {
		t.Fatalf("wrap: got %#x", got.AsU64())
	}
}

func TestValueRepresentation(t *testing.T) {
	// i32 values occupy the low 32 bits with a zero upper half
	if got := FromI32(-1); got.Bits() != 0xFFFFFFFF {
		t.Fatalf("i32 representation: got %#x", got.Bits())
	}
	if got := FromBool(true); got != 1 {
		t.Fatalf("bool representation: got %d", got)
	}
}
