package compiler

import (
	"math"

	"github.com/go-interpreter/wagon/disasm"
	"github.com/go-interpreter/wagon/wasm"
	ops "github.com/go-interpreter/wagon/wasm/operators"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// block tracks one open structured-control scope during lowering.
type block struct {
	loop      bool
	ifBlock   bool   // true until the guard is patched at else/end
	guardPos  uint32 // position of the BrIfEqz guard of an if
	contPos   uint32 // loop continuation target
	patches   []uint32
	height    int
	hasResult bool
}

// funcLowering flattens one disassembled function body into the shared
// code section. It tracks the operand stack height itself so local
// depths and drop-keep counts can be derived at every instruction.
type funcLowering struct {
	c       *Compiler
	out     *opcode.InstructionSet
	fnIndex uint32

	frameSize  int // params + declared locals
	numResults int

	height      int
	maxHeight   int
	blocks      []*block
	skipDepth   int
	unreachable bool

	code []disasm.Instr
}

func newFuncLowering(c *Compiler, fnIndex uint32, fn wasm.Function) (*funcLowering, error) {
	dis, err := disasm.NewDisassembly(fn, c.module)
	if err != nil {
		return nil, errors.Translation(err)
	}
	frameSize := len(fn.Sig.ParamTypes)
	for _, local := range fn.Body.Locals {
		frameSize += int(local.Count)
	}
	l := &funcLowering{
		c:          c,
		out:        c.code,
		fnIndex:    fnIndex,
		frameSize:  frameSize,
		numResults: len(fn.Sig.ReturnTypes),
		code:       dis.Code,
	}
	return l, nil
}

func (l *funcLowering) maxStackHeight() uint32 { return uint32(l.maxHeight) }

func (l *funcLowering) push(n int) {
	l.height += n
	if l.height > l.maxHeight {
		l.maxHeight = l.height
	}
}

func (l *funcLowering) pop(n int) { l.height -= n }

// run emits the local zero-init prologue, the lowered body, and the
// implicit return epilogue.
func (l *funcLowering) run() error {
	numLocals := l.frameSize - int(l.c.funcs[l.fnIndex].NumParams)
	for i := 0; i < numLocals; i++ {
		l.out.OpConstI64(0)
	}
	for i := range l.code {
		if err := l.lower(&l.code[i]); err != nil {
			return err
		}
	}
	if !l.unreachable {
		l.emitReturn()
	}
	return nil
}

func (l *funcLowering) lower(instr *disasm.Instr) error {
	code := instr.Op.Code

	// instructions after an unconditional transfer are dead until the
	// enclosing block closes
	if l.unreachable {
		switch code {
		case ops.Block, ops.Loop, ops.If:
			l.skipDepth++
			return nil
		case ops.Else:
			if l.skipDepth == 0 {
				l.lowerElse()
				return nil
			}
			return nil
		case ops.End:
			if l.skipDepth > 0 {
				l.skipDepth--
				return nil
			}
			l.lowerEnd()
			return nil
		default:
			return nil
		}
	}

	switch code {
	case ops.Nop:
		return nil
	case ops.Unreachable:
		l.out.OpUnreachable()
		l.unreachable = true
		return nil
	case ops.Drop:
		l.out.OpDrop()
		l.pop(1)
		return nil
	case ops.Select:
		l.out.OpSelect()
		l.pop(2)
		return nil

	case ops.Block:
		l.blocks = append(l.blocks, &block{
			height:    l.height,
			hasResult: instr.Immediates[0].(wasm.BlockType) != wasm.BlockTypeEmpty,
		})
		return nil
	case ops.Loop:
		l.blocks = append(l.blocks, &block{
			loop:      true,
			contPos:   l.out.Len(),
			height:    l.height,
			hasResult: instr.Immediates[0].(wasm.BlockType) != wasm.BlockTypeEmpty,
		})
		return nil
	case ops.If:
		l.pop(1)
		guard := l.out.OpBrIfEqz(opcode.BranchParams{})
		l.blocks = append(l.blocks, &block{
			ifBlock:   true,
			guardPos:  guard,
			height:    l.height,
			hasResult: instr.Immediates[0].(wasm.BlockType) != wasm.BlockTypeEmpty,
		})
		return nil
	case ops.Else:
		l.lowerElse()
		return nil
	case ops.End:
		l.lowerEnd()
		return nil

	case ops.Br:
		l.emitBr(instr.Immediates[0].(uint32))
		l.unreachable = true
		return nil
	case ops.BrIf:
		l.emitBrIf(instr.Immediates[0].(uint32))
		return nil
	case ops.BrTable:
		l.emitBrTable(instr.Immediates)
		l.unreachable = true
		return nil
	case ops.Return:
		l.emitReturn()
		l.unreachable = true
		return nil

	case ops.Call:
		fnIndex := instr.Immediates[0].(uint32)
		if int(fnIndex) >= len(l.c.funcs) {
			return errors.MissingFunction(errors.PhaseTranslate, fnIndex)
		}
		callee := l.c.funcs[fnIndex]
		if err := l.c.translateCall(fnIndex, opcode.DropKeep{}, false); err != nil {
			return err
		}
		l.pop(int(callee.NumParams))
		l.push(int(callee.NumResults))
		return nil
	case ops.CallIndirect:
		typeIndex := instr.Immediates[0].(uint32)
		if int(typeIndex) >= len(l.c.module.Types.Entries) {
			return errors.Internal(errors.PhaseTranslate, "call_indirect type %d out of range", typeIndex)
		}
		sig := l.c.module.Types.Entries[typeIndex]
		op := opcode.CallIndirect(0)
		op.Index2 = opcode.Index(typeIndex)
		l.out.Push(op)
		l.pop(1)
		l.pop(len(sig.ParamTypes))
		l.push(len(sig.ReturnTypes))
		return nil

	case ops.GetLocal:
		index := int(instr.Immediates[0].(uint32))
		l.out.OpLocalGet(uint32(l.frameSize + l.height - index))
		l.push(1)
		return nil
	case ops.SetLocal:
		index := int(instr.Immediates[0].(uint32))
		l.out.OpLocalSet(uint32(l.frameSize + l.height - 1 - index))
		l.pop(1)
		return nil
	case ops.TeeLocal:
		index := int(instr.Immediates[0].(uint32))
		l.out.OpLocalTee(uint32(l.frameSize + l.height - index))
		return nil
	case ops.GetGlobal:
		l.out.OpGlobalGet(instr.Immediates[0].(uint32))
		l.push(1)
		return nil
	case ops.SetGlobal:
		l.out.OpGlobalSet(instr.Immediates[0].(uint32))
		l.pop(1)
		return nil

	case ops.I32Const:
		l.out.OpConstI32(instr.Immediates[0].(int32))
		l.push(1)
		return nil
	case ops.I64Const:
		l.out.OpConstI64(instr.Immediates[0].(int64))
		l.push(1)
		return nil
	case ops.F32Const:
		bits := math.Float32bits(instr.Immediates[0].(float32))
		l.out.Push(opcode.ConstBits(opcode.KindF32Const, uint64(bits)))
		l.push(1)
		return nil
	case ops.F64Const:
		bits := math.Float64bits(instr.Immediates[0].(float64))
		l.out.Push(opcode.ConstBits(opcode.KindF64Const, bits))
		l.push(1)
		return nil

	case ops.CurrentMemory:
		l.out.Push(opcode.Plain(opcode.KindMemorySize))
		l.push(1)
		return nil
	case ops.GrowMemory:
		l.out.Push(opcode.Plain(opcode.KindMemoryGrow))
		return nil

	case ops.I32ReinterpretF32, ops.I64ReinterpretF64,
		ops.F32ReinterpretI32, ops.F64ReinterpretI64:
		// bit identity on an untyped stack
		return nil
	}

	if kind, ok := memAccessKinds[code]; ok {
		offset := instr.Immediates[1].(uint32)
		l.out.Push(opcode.MemAccess(kind, offset))
		if kind.IsStore() {
			l.pop(2)
		}
		return nil
	}

	if kind, ok := numericKinds[code]; ok {
		l.out.Push(opcode.Plain(kind))
		l.pop(len(instr.Op.Args))
		if instr.Op.Returns != wasm.ValueType(wasm.BlockTypeEmpty) {
			l.push(1)
		}
		return nil
	}

	return errors.New(errors.PhaseTranslate, errors.KindUnsupportedOpcode).
		Detail("%s", instr.Op.Name).Build()
}

func (l *funcLowering) lowerElse() {
	b := l.blocks[len(l.blocks)-1]
	if !l.unreachable {
		pos := l.out.OpBr(opcode.BranchParams{})
		b.patches = append(b.patches, pos)
	}
	// the if-guard lands at the start of the else branch
	guard := l.out.At(b.guardPos)
	l.out.Set(b.guardPos, guard.RewriteJumpOffset(opcode.JumpDest(int32(l.out.Len())-int32(b.guardPos))))
	b.ifBlock = false
	l.height = b.height
	l.unreachable = false
	l.skipDepth = 0
}

func (l *funcLowering) lowerEnd() {
	b := l.blocks[len(l.blocks)-1]
	l.blocks = l.blocks[:len(l.blocks)-1]
	end := l.out.Len()
	if b.ifBlock {
		guard := l.out.At(b.guardPos)
		l.out.Set(b.guardPos, guard.RewriteJumpOffset(opcode.JumpDest(int32(end)-int32(b.guardPos))))
	}
	for _, pos := range b.patches {
		op := l.out.At(pos)
		l.out.Set(pos, op.RewriteJumpOffset(opcode.JumpDest(int32(end)-int32(pos))))
	}
	l.height = b.height
	if b.hasResult {
		l.push(1)
	}
	l.unreachable = false
	l.skipDepth = 0
}

// branchDropKeep computes the reshaping for a branch to the given label.
// The second result reports whether the label is the function level, in
// which case the branch lowers to a return.
func (l *funcLowering) branchDropKeep(label uint32) (opcode.DropKeep, bool) {
	if int(label) >= len(l.blocks) {
		keep := l.numResults
		return opcode.NewDropKeep(uint32(l.frameSize+l.height-keep), uint32(keep)), true
	}
	b := l.blocks[len(l.blocks)-1-int(label)]
	if b.loop {
		return opcode.NewDropKeep(uint32(l.height-b.height), 0), false
	}
	keep := 0
	if b.hasResult {
		keep = 1
	}
	return opcode.NewDropKeep(uint32(l.height-b.height-keep), uint32(keep)), false
}

// registerBranch emits a branch opcode toward the given label: loop
// targets resolve immediately to a negative delta, forward targets are
// patched when the block closes. The embedded DropKeep rides along for
// br_table targets.
func (l *funcLowering) registerBranch(label uint32, dk opcode.DropKeep) {
	b := l.blocks[len(l.blocks)-1-int(label)]
	if b.loop {
		pos := l.out.Len()
		l.out.OpBr(opcode.NewBranchParams(opcode.JumpDest(int32(b.contPos)-int32(pos)), dk))
		return
	}
	pos := l.out.OpBr(opcode.BranchParams{DropKeep: dk})
	b.patches = append(b.patches, pos)
}

// emitBr lowers an unconditional branch: drop-keep expansion first, then
// the branch toward the parser-level destination.
func (l *funcLowering) emitBr(label uint32) {
	dk, isReturn := l.branchDropKeep(label)
	if isReturn {
		l.emitReturn()
		return
	}
	translateDropKeep(l.out, dk)
	l.registerBranch(label, opcode.DropKeep{})
}

// emitBrIf lowers a conditional branch. The inverse guard jumps over the
// drop-keep expansion and the branch itself, so the reshaping only
// executes on the taken path.
func (l *funcLowering) emitBrIf(label uint32) {
	l.pop(1) // condition
	dk, isReturn := l.branchDropKeep(label)
	expansion := dropKeepSet(dk)
	l.out.OpBrIfEqz(opcode.BranchParams{Offset: opcode.JumpDest(int32(expansion.Len()) + 2)})
	l.out.Extend(expansion)
	if isReturn {
		l.out.OpReturn(opcode.DropKeep{})
		return
	}
	l.registerBranch(label, opcode.DropKeep{})
}

// emitBrTable lowers a branch table into a BrTable header followed by
// one branch opcode per target, default last, each carrying its own
// DropKeep in its BranchParams.
func (l *funcLowering) emitBrTable(immediates []interface{}) {
	l.pop(1) // selector
	count := immediates[0].(uint32)
	targets := make([]uint32, 0, count+1)
	for i := uint32(0); i < count; i++ {
		targets = append(targets, immediates[1+i].(uint32))
	}
	targets = append(targets, immediates[1+count].(uint32))

	l.out.OpBrTable(uint32(len(targets)))
	for _, label := range targets {
		dk, isReturn := l.branchDropKeep(label)
		if isReturn {
			l.out.OpReturn(dk)
			continue
		}
		l.registerBranch(label, dk)
	}
}

// emitReturn lowers an explicit or implicit return: the whole frame
// below the results is dropped, then a bare Return transfers control.
func (l *funcLowering) emitReturn() {
	keep := l.numResults
	dk := opcode.NewDropKeep(uint32(l.frameSize+l.height-keep), uint32(keep))
	translateDropKeep(l.out, dk)
	l.out.OpReturn(opcode.DropKeep{})
	l.pop(keep)
}
