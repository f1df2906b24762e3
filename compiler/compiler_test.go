package compiler

import (
	gobinary "encoding/binary"
	stderrors "errors"
	"testing"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/hostcall"
	"github.com/zkvmlabs/wasm-tracer/internal/wasmtest"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

func compile(t *testing.T, wasmBinary []byte) (*Compiler, []byte, *CompiledModule) {
	t.Helper()
	c, err := New(wasmBinary)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Translate(); err != nil {
		t.Fatal(err)
	}
	flat, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	module, err := Load(flat)
	if err != nil {
		t.Fatal(err)
	}
	return c, flat, module
}

func kindsOf(module *CompiledModule) []opcode.Kind {
	out := make([]opcode.Kind, 0, len(module.Bytecode()))
	for _, op := range module.Bytecode() {
		out = append(out, op.Kind)
	}
	return out
}

func TestTranslateSimpleArithmetic(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpI32Const(100),
		wasmtest.OpI32Const(20),
		wasmtest.OpI32Const(3),
		wasmtest.OpI32Add(),
		wasmtest.OpI32Add(),
		wasmtest.OpDrop(),
	))
	b.ExportFunc("main", main)

	c, _, module := compile(t, b.Build())

	want := []opcode.Kind{
		opcode.KindI32Const, opcode.KindI32Const, opcode.KindI32Const,
		opcode.KindI32Add, opcode.KindI32Add, opcode.KindDrop, opcode.KindReturn,
	}
	got := kindsOf(module)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("opcode %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if module.Bytecode()[0].Value.AsI32() != 100 {
		t.Fatalf("first const %d", module.Bytecode()[0].Value.AsI32())
	}
	if len(module.Metas()) != len(module.Bytecode()) {
		t.Fatalf("metas and bytecode lengths differ")
	}
	funcs := c.Funcs()
	if funcs[0].MaxStackHeight != 3 || funcs[0].NumLocals != 0 {
		t.Fatalf("unexpected func info %+v", funcs[0])
	}
}

func TestGlobalAndDataInitialization(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	b.AddMemory(1)
	b.AddGlobal(wasmtest.I32, true, 127)
	main := b.AddFunc(void, nil)
	b.ExportFunc("main", main)
	b.AddData(0, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE})

	_, _, module := compile(t, b.Build())
	ops := module.Bytecode()

	// global init, then the 5-byte segment as a 4-byte and a 1-byte chunk
	want := []struct {
		kind opcode.Kind
		bits uint64
	}{
		{opcode.KindI64Const, 127},
		{opcode.KindGlobalSet, 0},
		{opcode.KindI32Const, 0},
		{opcode.KindI64Const, 0xAABBCCDD},
		{opcode.KindI64Store32, 0},
		{opcode.KindI32Const, 4},
		{opcode.KindI64Const, 0xEE},
		{opcode.KindI32Store8, 0},
		{opcode.KindReturn, 0},
	}
	if len(ops) != len(want) {
		t.Fatalf("got %d opcodes: %v", len(ops), kindsOf(module))
	}
	for i, w := range want {
		if ops[i].Kind != w.kind {
			t.Fatalf("opcode %d: got %s, want %s", i, ops[i].Kind, w.kind)
		}
		if w.kind == opcode.KindI64Const || w.kind == opcode.KindI32Const {
			if ops[i].Value.Bits() != w.bits {
				t.Fatalf("opcode %d: value %#x, want %#x", i, ops[i].Value.Bits(), w.bits)
			}
		}
	}
	if module.NumGlobals() != 1 {
		t.Fatalf("num_globals %d", module.NumGlobals())
	}
}

func TestCallRelocation(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	binop := b.AddType([]byte{wasmtest.I32, wasmtest.I32}, []byte{wasmtest.I32})
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpI32Const(100),
		wasmtest.OpI32Const(20),
		wasmtest.OpCall(1),
		wasmtest.OpDrop(),
	))
	add := b.AddFunc(binop, wasmtest.Code(
		wasmtest.OpLocalGet(0),
		wasmtest.OpLocalGet(1),
		wasmtest.OpI32Add(),
	))
	b.ExportFunc("main", main)

	c, flat, module := compile(t, b.Build())

	entry, ok := c.FunctionMapping()[add]
	if !ok {
		t.Fatalf("no mapping for add")
	}
	var callPos = -1
	for i, op := range module.Bytecode() {
		if op.Kind == opcode.KindCall {
			callPos = i
			break
		}
	}
	if callPos < 0 {
		t.Fatalf("no call in %v", kindsOf(module))
	}

	// loaded form: relative opcode-position delta
	delta := module.Bytecode()[callPos].Branch.Offset
	if callPos+int(delta) != int(entry) {
		t.Fatalf("call resolves to %d, add entry is %d", callPos+int(delta), entry)
	}

	// encoded form: absolute byte offset of add's first instruction
	callByte := module.Metas()[callPos].SourcePC
	entryByte := module.Metas()[entry].SourcePC
	if flat[callByte] != 0x28 {
		t.Fatalf("call tag byte %#x", flat[callByte])
	}
	if got := gobinary.BigEndian.Uint32(flat[callByte+1:]); got != entryByte {
		t.Fatalf("encoded call destination %d, want byte offset %d", got, entryByte)
	}
}

func TestTailCallLowering(t *testing.T) {
	c := &Compiler{
		code:            opcode.NewInstructionSet(),
		functionMapping: make(map[uint32]uint32),
		callMapping:     make(map[uint32]uint32),
		numImportFuncs:  1,
		funcs: []FuncInfo{
			{Index: 0, Host: true, HostIndex: hostcall.ImportEvmStop},
			{Index: 1},
		},
	}
	c.code.OpConstI32(1) // stand-in for the callee body / caller frame

	// tail call to a local function: the reshaping runs before the
	// branch placeholder, and the placeholder resolves through the
	// call mapping like a plain call
	if err := c.translateCall(1, opcode.NewDropKeep(2, 1), true); err != nil {
		t.Fatal(err)
	}
	wantLocal := []opcode.Kind{
		opcode.KindI32Const, opcode.KindLocalSet, opcode.KindDrop, opcode.KindBr,
	}
	ops := c.code.Ops()
	if len(ops) != len(wantLocal) {
		t.Fatalf("got %d opcodes, want %d", len(ops), len(wantLocal))
	}
	for i, kind := range wantLocal {
		if ops[i].Kind != kind {
			t.Fatalf("opcode %d: got %s, want %s", i, ops[i].Kind, kind)
		}
	}
	brPos := uint32(3)
	if target, ok := c.callMapping[brPos]; !ok || target != 1 {
		t.Fatalf("call mapping for the placeholder: %v", c.callMapping)
	}

	// tail call to a host import: reshaping, the host call, then a
	// bare return (there is no callee body to branch into)
	if err := c.translateCall(0, opcode.NewDropKeep(1, 0), true); err != nil {
		t.Fatal(err)
	}
	ops = c.code.Ops()
	tail := ops[len(ops)-3:]
	if tail[0].Kind != opcode.KindDrop || tail[1].Kind != opcode.KindCallHost || tail[2].Kind != opcode.KindReturn {
		t.Fatalf("host tail call lowered to %v %v %v", tail[0].Kind, tail[1].Kind, tail[2].Kind)
	}
	if tail[1].Index != hostcall.ImportEvmStop {
		t.Fatalf("host index 0x%X", uint32(tail[1].Index))
	}

	// relocation: the Br placeholder resolves to the callee entry
	c.functionMapping[1] = 0
	flat, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	module, err := Load(flat)
	if err != nil {
		t.Fatal(err)
	}
	br := module.Bytecode()[brPos]
	if br.Kind != opcode.KindBr {
		t.Fatalf("expected br, got %s", br.Kind)
	}
	if int(brPos)+int(br.Branch.Offset) != 0 {
		t.Fatalf("tail call resolves to %d, want 0", int(brPos)+int(br.Branch.Offset))
	}
}

func TestBranchLoweringIfElse(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpI32Const(1),
		wasmtest.OpIf(),
		wasmtest.OpI32Const(10),
		wasmtest.OpDrop(),
		wasmtest.OpElse(),
		wasmtest.OpI32Const(20),
		wasmtest.OpDrop(),
		wasmtest.OpEnd(),
	))
	b.ExportFunc("main", main)

	_, _, module := compile(t, b.Build())

	var guards, jumps int
	for i, op := range module.Bytecode() {
		offset, ok := op.RelocationOffset()
		if !ok {
			continue
		}
		switch op.Kind {
		case opcode.KindBrIfEqz:
			guards++
		case opcode.KindBr:
			jumps++
		}
		target := i + int(offset)
		if target < 0 || target > len(module.Bytecode()) {
			t.Fatalf("opcode %d jumps out of range to %d", i, target)
		}
	}
	if guards != 1 || jumps != 1 {
		t.Fatalf("expected one guard and one skip jump, got %d/%d in %v", guards, jumps, kindsOf(module))
	}
}

func TestBranchLoweringLoop(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpLoop(),
		wasmtest.OpLocalGet(0),
		wasmtest.OpI32Const(1),
		wasmtest.OpI32Add(),
		wasmtest.OpLocalTee(0),
		wasmtest.OpI32Const(3),
		wasmtest.OpI32LtU(),
		wasmtest.OpBrIf(0),
		wasmtest.OpEnd(),
	))
	b.AddLocals(1, wasmtest.I32)
	b.ExportFunc("main", main)

	_, _, module := compile(t, b.Build())

	var backward int
	for _, op := range module.Bytecode() {
		if op.Kind == opcode.KindBr && op.Branch.Offset < 0 {
			backward++
		}
	}
	if backward != 1 {
		t.Fatalf("expected one backward branch into the loop, got %d in %v", backward, kindsOf(module))
	}
}

func TestOpcodePositionInvariantAfterLoad(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpBlock(),
		wasmtest.OpI32Const(1),
		wasmtest.OpBrIf(0),
		wasmtest.OpEnd(),
		wasmtest.OpI32Const(5),
		wasmtest.OpDrop(),
	))
	b.ExportFunc("main", main)

	_, _, module := compile(t, b.Build())
	for i, op := range module.Bytecode() {
		offset, ok := op.RelocationOffset()
		if !ok {
			continue
		}
		target := i + int(offset)
		if target < 0 || target >= len(module.Bytecode()) {
			t.Fatalf("opcode %d (%s) jumps to %d, bytecode has %d opcodes",
				i, op.Kind, target, len(module.Bytecode()))
		}
	}
}

func TestMissingEntrypoint(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	b.AddFunc(void, nil)

	c, err := New(b.Build())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Translate(); !stderrors.Is(err, errors.ErrMissingEntrypoint) {
		t.Fatalf("expected missing_entrypoint, got %v", err)
	}
}

func TestUnsupportedImport(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	b.ImportFunc("env", "_evm_unknown", void)
	main := b.AddFunc(void, nil)
	b.ExportFunc("main", main)

	if _, err := New(b.Build()); !stderrors.Is(err, errors.ErrUnsupportedImport) {
		t.Fatalf("expected unsupported_import, got %v", err)
	}
}

func TestHostImportLowersToCallHost(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	ret := b.AddType([]byte{wasmtest.I32, wasmtest.I32}, nil)
	b.ImportFunc("env", "_evm_return", ret)
	b.AddMemory(1)
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpI32Const(0),
		wasmtest.OpI32Const(4),
		wasmtest.OpCall(0),
	))
	b.ExportFunc("main", main)

	_, _, module := compile(t, b.Build())
	var hostCalls int
	for _, op := range module.Bytecode() {
		if op.Kind == opcode.KindCallHost {
			hostCalls++
			if op.Index != 0xEE02 {
				t.Fatalf("host index 0x%X", uint32(op.Index))
			}
		}
		if op.Kind == opcode.KindCall {
			t.Fatalf("imports must not lower to plain calls")
		}
	}
	if hostCalls != 1 {
		t.Fatalf("expected one call_host, got %d", hostCalls)
	}
}

func TestTranslateWithoutEntrypoint(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	b.AddFunc(void, wasmtest.Code(wasmtest.OpI32Const(1), wasmtest.OpDrop()))

	c, err := New(b.Build())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.TranslateWithoutEntrypoint(); err != nil {
		t.Fatal(err)
	}
	flat, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(flat); err != nil {
		t.Fatal(err)
	}
}

func TestFuelMeteringChargesPerOpcode(t *testing.T) {
	b := wasmtest.NewBuilder()
	void := b.AddType(nil, nil)
	main := b.AddFunc(void, wasmtest.Code(
		wasmtest.OpI32Const(1),
		wasmtest.OpI32Const(2),
		wasmtest.OpI32Add(),
		wasmtest.OpDrop(),
	))
	b.ExportFunc("main", main)

	c, err := New(b.Build(), WithFuelMetering())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Translate(); err != nil {
		t.Fatal(err)
	}
	flat, err := c.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	module, err := Load(flat)
	if err != nil {
		t.Fatal(err)
	}
	first := module.Bytecode()[0]
	if first.Kind != opcode.KindConsumeFuel {
		t.Fatalf("expected consume_fuel prologue, got %s", first.Kind)
	}
	// one unit per opcode in the function: the checkpoint itself plus
	// const, const, add, drop, return
	if uint64(first.Fuel) != 6 {
		t.Fatalf("fuel amount %d, want 6", first.Fuel)
	}
}
