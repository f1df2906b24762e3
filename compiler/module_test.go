package compiler

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/zkvmlabs/wasm-tracer/binary"
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

func encode(t *testing.T, ops ...opcode.OpCode) []byte {
	t.Helper()
	flat, err := binary.EncodeAll(ops)
	if err != nil {
		t.Fatal(err)
	}
	return flat
}

func TestLoadEmptyBytecode(t *testing.T) {
	if _, err := Load(nil); !stderrors.Is(err, errors.ErrEmptyBytecode) {
		t.Fatalf("expected empty_bytecode, got %v", err)
	}
}

func TestLoadIllegalTag(t *testing.T) {
	if _, err := Load([]byte{0xF0}); !stderrors.Is(err, errors.ErrIllegalOpcode) {
		t.Fatalf("expected illegal_opcode, got %v", err)
	}
}

func TestLoadTruncatedOperand(t *testing.T) {
	flat := encode(t, opcode.ConstI64(7))
	if _, err := Load(flat[:4]); !stderrors.Is(err, errors.ErrNeedMore) {
		t.Fatalf("expected need_more, got %v", err)
	}
}

func TestLoadRebuildsRelativeOffsets(t *testing.T) {
	// layout: I32Const (9 bytes at 0), Br (13 bytes at 9),
	// Drop (1 byte at 22), Return (9 bytes at 23)
	flat := encode(t,
		opcode.ConstI32(1),
		opcode.Br(opcode.NewBranchParams(23, opcode.DropKeep{})), // byte offset of Return
		opcode.Plain(opcode.KindDrop),
		opcode.Return(opcode.DropKeep{}),
	)
	module, err := Load(flat)
	if err != nil {
		t.Fatal(err)
	}
	br := module.Bytecode()[1]
	if br.Branch.Offset != 2 {
		t.Fatalf("expected relative delta 2 (position 3 from 1), got %d", br.Branch.Offset)
	}
	metas := module.Metas()
	if len(metas) != 4 {
		t.Fatalf("expected 4 metas, got %d", len(metas))
	}
	if metas[1].SourcePC != 9 || metas[1].Code != 0x20 {
		t.Fatalf("meta for br: %+v", metas[1])
	}
	if metas[3].SourcePC != 23 {
		t.Fatalf("meta for return: %+v", metas[3])
	}
}

func TestLoadRejectsMisalignedJump(t *testing.T) {
	flat := encode(t,
		opcode.ConstI32(1),
		opcode.Br(opcode.NewBranchParams(5, opcode.DropKeep{})), // inside the const
		opcode.Return(opcode.DropKeep{}),
	)
	if _, err := Load(flat); !stderrors.Is(err, errors.ErrReachedUnreachable) {
		t.Fatalf("expected reached_unreachable, got %v", err)
	}
}

func TestLoadCountsGlobals(t *testing.T) {
	flat := encode(t,
		opcode.GlobalGet(2),
		opcode.Plain(opcode.KindDrop),
		opcode.ConstI32(0),
		opcode.GlobalSet(5),
		opcode.Return(opcode.DropKeep{}),
	)
	module, err := Load(flat)
	if err != nil {
		t.Fatal(err)
	}
	if module.NumGlobals() != 6 {
		t.Fatalf("num_globals %d, want 6", module.NumGlobals())
	}

	noGlobals, err := Load(encode(t, opcode.Return(opcode.DropKeep{})))
	if err != nil {
		t.Fatal(err)
	}
	if noGlobals.NumGlobals() != 0 {
		t.Fatalf("num_globals %d, want 0", noGlobals.NumGlobals())
	}
}

func TestDisassemble(t *testing.T) {
	module, err := Load(encode(t,
		opcode.ConstI32(100),
		opcode.Plain(opcode.KindDrop),
		opcode.Return(opcode.DropKeep{}),
	))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(module.Disassemble()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", lines)
	}
	if lines[0] != "i32_const 100" {
		t.Fatalf("first line %q", lines[0])
	}
}
