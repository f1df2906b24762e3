package opcode

import "testing"

func TestJumpOffsetAccessor(t *testing.T) {
	branch := Br(NewBranchParams(-3, NewDropKeep(1, 2)))
	offset, ok := branch.JumpOffset()
	if !ok || offset != -3 {
		t.Fatalf("expected offset -3, got %d (ok=%v)", offset, ok)
	}
	// calls are relocated through the call mapping, never this accessor
	if _, ok := Call(7).JumpOffset(); ok {
		t.Fatalf("call must not expose a jump offset")
	}
	if _, ok := ConstI32(1).JumpOffset(); ok {
		t.Fatalf("const must not expose a jump offset")
	}
}

func TestRelocationOffsetIncludesCall(t *testing.T) {
	offset, ok := Call(9).RelocationOffset()
	if !ok || offset != 9 {
		t.Fatalf("expected call relocation offset 9, got %d (ok=%v)", offset, ok)
	}
	rewritten := Call(9).WithRelocationOffset(-4)
	if rewritten.Branch.Offset != -4 {
		t.Fatalf("expected rewritten call offset -4, got %d", rewritten.Branch.Offset)
	}
}

func TestRewriteJumpOffsetKeepsDropKeep(t *testing.T) {
	branch := BrIfNez(NewBranchParams(1, NewDropKeep(2, 1)))
	rewritten := branch.RewriteJumpOffset(42)
	if rewritten.Branch.Offset != 42 {
		t.Fatalf("expected offset 42, got %d", rewritten.Branch.Offset)
	}
	if rewritten.Branch.DropKeep != NewDropKeep(2, 1) {
		t.Fatalf("rewrite must preserve drop/keep, got %+v", rewritten.Branch.DropKeep)
	}
}

func TestRewriteJumpOffsetPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-branch rewrite")
		}
	}()
	_ = Plain(KindDrop).RewriteJumpOffset(1)
}

func TestAddOffset(t *testing.T) {
	load := MemAccess(KindI64Load, 16)
	if got := load.AddOffset(8); got.Offset != 24 {
		t.Fatalf("expected offset 24, got %d", got.Offset)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for non-memory add_offset")
		}
	}()
	_ = Plain(KindSelect).AddOffset(1)
}

func TestBumpFuelConsumption(t *testing.T) {
	fuel := ConsumeFuel(10)
	fuel.BumpFuelConsumption(32)
	if fuel.Fuel != 42 {
		t.Fatalf("expected 42 fuel, got %d", fuel.Fuel)
	}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on fuel overflow")
		}
	}()
	overflow := ConsumeFuel(^uint64(0))
	overflow.BumpFuelConsumption(1)
}

func TestParamsRules(t *testing.T) {
	cases := []struct {
		op   OpCode
		want []uint64
	}{
		{LocalGet(3), []uint64{3}},
		{Br(NewBranchParams(-1, DropKeep{})), []uint64{0xFFFFFFFF}},
		{BrTable(4), []uint64{4}},
		{ConsumeFuel(77), []uint64{77}},
		{CallHost(0xEE02), []uint64{0xEE02}},
		{GlobalSet(2), []uint64{2}},
		{MemAccess(KindI64Store32, 64), []uint64{64}},
		{TableCopy(1, 2), []uint64{1, 2}},
		{ConstI32(-1), []uint64{0xFFFFFFFF}},
		{ConstI64(7), []uint64{7}},
	}
	for _, tc := range cases {
		got := tc.op.Params()
		if len(got) != len(tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.op.Kind, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: got %v, want %v", tc.op.Kind, got, tc.want)
			}
		}
	}
	if Plain(KindI32Add).Params() != nil {
		t.Fatalf("i32_add must carry no params")
	}
	if Plain(KindReturn).Params() != nil {
		t.Fatalf("return must carry no params")
	}
}

func TestTraceDropKeep(t *testing.T) {
	if _, ok := Return(DropKeep{}).TraceDropKeep(); ok {
		t.Fatalf("empty drop/keep must not be reported")
	}
	dk, ok := Return(NewDropKeep(2, 1)).TraceDropKeep()
	if !ok || dk != NewDropKeep(2, 1) {
		t.Fatalf("expected drop/keep (2,1), got %+v (ok=%v)", dk, ok)
	}
	dk, ok = Br(NewBranchParams(5, NewDropKeep(1, 0))).TraceDropKeep()
	if !ok || dk.Drop != 1 {
		t.Fatalf("expected branch drop/keep, got %+v (ok=%v)", dk, ok)
	}
}

func TestKindIdentityIsCodecTag(t *testing.T) {
	cases := map[Kind]byte{
		KindUnreachable: 0x00,
		KindConsumeFuel: 0x01,
		KindCallHost:    0x29,
		KindI64Const:    0x60,
		KindI32Const:    0x61,
		KindI32Add:      0x7B,
		KindI64Extend32S: 0xA3,
	}
	for kind, tag := range cases {
		if kind.Tag() != tag {
			t.Errorf("%s: tag 0x%02x, want 0x%02x", kind, kind.Tag(), tag)
		}
	}
	if KindF64Const.Encodable() {
		t.Fatalf("float consts must not be encodable")
	}
	if KindElemDrop.Encodable() {
		t.Fatalf("elem_drop must not be encodable")
	}
}

func TestKindNames(t *testing.T) {
	cases := map[Kind]string{
		KindI32Const:           "i32_const",
		KindI32Add:             "i32_add",
		KindDrop:               "drop",
		KindReturn:             "return",
		KindCallHost:           "call_host",
		KindBrIfEqz:            "br_if_eqz",
		KindI64Load32U:         "i64_load32_u",
		KindReturnCallIndirect: "return_call_indirect",
		KindF64PromoteF32:      "f64_promote_f32",
	}
	for kind, want := range cases {
		if kind.Name() != want {
			t.Errorf("kind %d: name %q, want %q", kind, kind.Name(), want)
		}
	}
}
