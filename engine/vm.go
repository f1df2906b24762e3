package engine

import (
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/hostcall"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// vm is the dispatch state of one execution: the value stack, the call
// stack of return positions, and the program counter in opcode
// positions. Branch offsets in the loaded bytecode are relative opcode
// deltas, so taking a branch is pc += offset.
type vm struct {
	engine   *Engine
	bytecode []opcode.OpCode
	metas    []opcode.InstrMeta

	stack   []opcode.UntypedValue
	calls   []int
	pc      int
	step    uint32
	halted  bool
	tracing bool
}

func newVM(e *Engine) *vm {
	return &vm{
		engine:   e,
		bytecode: e.module.Bytecode(),
		metas:    e.module.Metas(),
	}
}

func (v *vm) push(val opcode.UntypedValue) error {
	if len(v.stack) >= v.engine.cfg.stackLimit {
		return errors.Internal(errors.PhaseRun, "value stack limit of %d exceeded", v.engine.cfg.stackLimit)
	}
	v.stack = append(v.stack, val)
	return nil
}

func (v *vm) pop() opcode.UntypedValue {
	val := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return val
}

func (v *vm) top() opcode.UntypedValue { return v.stack[len(v.stack)-1] }

// applyDropKeep reshapes the stack in place: the top keep values slide
// down over the drop values below them.
func (v *vm) applyDropKeep(dk opcode.DropKeep) error {
	if dk.IsNoop() {
		return nil
	}
	total := int(dk.Drop) + int(dk.Keep)
	if total > len(v.stack) {
		return errors.Internal(errors.PhaseRun, "drop/keep of %d values on a stack of %d", total, len(v.stack))
	}
	base := len(v.stack) - total
	copy(v.stack[base:], v.stack[len(v.stack)-int(dk.Keep):])
	v.stack = v.stack[:base+int(dk.Keep)]
	return nil
}

func (v *vm) snapshot() []uint64 {
	if len(v.stack) == 0 {
		return nil
	}
	out := make([]uint64, len(v.stack))
	for i, val := range v.stack {
		out[i] = val.Bits()
	}
	return out
}

// run executes until the entrypoint returns, or pc reaches stop (used to
// execute the initialization prefix).
func (v *vm) run(stop int) error {
	for !v.halted && v.pc < stop {
		if err := v.stepOnce(); err != nil {
			return err
		}
	}
	return nil
}

func (v *vm) jump(offset opcode.JumpDest) error {
	target := v.pc + int(offset)
	if target < 0 || target >= len(v.bytecode) {
		return errors.ImpossibleJump(v.pc, target)
	}
	v.pc = target
	return nil
}

func (v *vm) enterFunction(fnIndex uint32) {
	if !v.tracing {
		return
	}
	if int(fnIndex) >= len(v.engine.funcs) {
		return
	}
	info := v.engine.funcs[fnIndex]
	v.engine.store.Tracer.FunctionCall(info.Index, info.MaxStackHeight, info.NumLocals, info.Name)
}

func (v *vm) stepOnce() error {
	op := v.bytecode[v.pc]
	if v.tracing {
		recorded := false
		if op.Kind == opcode.KindCall {
			// trace the resolved callee index rather than the raw
			// branch operand whenever the function table knows it
			if target := v.pc + int(op.Branch.Offset); target >= 0 {
				if fnIndex, ok := v.engine.entryFor[uint32(target)]; ok {
					v.engine.store.Tracer.PreCallState(v.step, op, fnIndex, v.snapshot(), v.metas[v.pc])
					recorded = true
				}
			}
		}
		if !recorded {
			v.engine.store.Tracer.PreOpcodeState(v.step, op, v.snapshot(), v.metas[v.pc])
		}
		v.step++
	}

	switch op.Kind {
	case opcode.KindUnreachable:
		return errors.ReachedUnreachable(errors.PhaseRun, "unreachable executed")

	case opcode.KindConsumeFuel:
		if v.engine.cfg.fuelMetering {
			if uint64(op.Fuel) > v.engine.fuelRemaining {
				return errors.Internal(errors.PhaseRun, "all fuel consumed")
			}
			v.engine.fuelRemaining -= uint64(op.Fuel)
		}
		v.pc++
		return nil

	case opcode.KindDrop:
		v.pop()
		v.pc++
		return nil

	case opcode.KindSelect:
		condition := v.pop()
		second := v.pop()
		first := v.pop()
		if condition.AsBool() {
			v.stack = append(v.stack, first)
		} else {
			v.stack = append(v.stack, second)
		}
		v.pc++
		return nil

	case opcode.KindLocalGet:
		if int(op.Index) < 1 || int(op.Index) > len(v.stack) {
			return errors.Internal(errors.PhaseRun, "local depth %d on a stack of %d", op.Index, len(v.stack))
		}
		v.pc++
		return v.push(v.stack[len(v.stack)-int(op.Index)])
	case opcode.KindLocalSet:
		value := v.pop()
		if int(op.Index) < 1 || int(op.Index) > len(v.stack) {
			return errors.Internal(errors.PhaseRun, "local depth %d on a stack of %d", op.Index, len(v.stack))
		}
		v.stack[len(v.stack)-int(op.Index)] = value
		v.pc++
		return nil
	case opcode.KindLocalTee:
		if int(op.Index) < 1 || int(op.Index) > len(v.stack) {
			return errors.Internal(errors.PhaseRun, "local depth %d on a stack of %d", op.Index, len(v.stack))
		}
		v.stack[len(v.stack)-int(op.Index)] = v.top()
		v.pc++
		return nil

	case opcode.KindBr:
		if err := v.applyDropKeep(op.Branch.DropKeep); err != nil {
			return err
		}
		return v.jump(op.Branch.Offset)
	case opcode.KindBrIfEqz:
		if v.pop() == 0 {
			if err := v.applyDropKeep(op.Branch.DropKeep); err != nil {
				return err
			}
			return v.jump(op.Branch.Offset)
		}
		v.pc++
		return nil
	case opcode.KindBrIfNez:
		if v.pop() != 0 {
			if err := v.applyDropKeep(op.Branch.DropKeep); err != nil {
				return err
			}
			return v.jump(op.Branch.Offset)
		}
		v.pc++
		return nil
	case opcode.KindBrTable:
		count := int(op.Index)
		if count == 0 {
			return errors.ImpossibleJump(v.pc, v.pc+1)
		}
		selector := int(v.pop().AsU32())
		if selector >= count {
			selector = count - 1 // the default target sits last
		}
		target := v.pc + 1 + selector
		if target >= len(v.bytecode) {
			return errors.ImpossibleJump(v.pc, target)
		}
		v.pc = target
		return nil

	case opcode.KindReturn:
		if err := v.applyDropKeep(op.DropKeep); err != nil {
			return err
		}
		return v.doReturn()
	case opcode.KindReturnIfNez:
		if v.pop() != 0 {
			if err := v.applyDropKeep(op.DropKeep); err != nil {
				return err
			}
			return v.doReturn()
		}
		v.pc++
		return nil

	case opcode.KindCall:
		target := v.pc + int(op.Branch.Offset)
		if target < 0 || target >= len(v.bytecode) {
			return errors.ImpossibleJump(v.pc, target)
		}
		v.calls = append(v.calls, v.pc+1)
		if fnIndex, ok := v.engine.entryFor[uint32(target)]; ok {
			v.enterFunction(fnIndex)
		}
		v.pc = target
		return nil

	case opcode.KindCallHost:
		if err := v.callHost(op.Index); err != nil {
			return err
		}
		v.pc++
		return nil

	case opcode.KindCallIndirect:
		return v.callIndirect(op)

	case opcode.KindGlobalGet:
		if int(op.Index) >= len(v.engine.store.Globals) {
			return errors.Internal(errors.PhaseRun, "global %d out of range", op.Index)
		}
		v.pc++
		return v.push(v.engine.store.Globals[op.Index])
	case opcode.KindGlobalSet:
		if int(op.Index) >= len(v.engine.store.Globals) {
			return errors.Internal(errors.PhaseRun, "global %d out of range", op.Index)
		}
		v.engine.store.Globals[op.Index] = v.pop()
		v.pc++
		return nil

	case opcode.KindMemorySize:
		v.pc++
		return v.push(opcode.FromU32(uint32(v.engine.store.Memory.Pages())))
	case opcode.KindMemoryGrow:
		delta := v.pop().AsU32()
		previous, ok := v.engine.store.Memory.Grow(opcode.Pages(delta))
		v.pc++
		if !ok {
			return v.push(opcode.FromI32(-1))
		}
		return v.push(opcode.FromU32(uint32(previous)))
	case opcode.KindMemoryFill:
		length := v.pop().AsU32()
		value := byte(v.pop().AsU32())
		dest := v.pop().AsU32()
		data := make([]byte, length)
		for i := range data {
			data[i] = value
		}
		if err := v.writeMemory(dest, data); err != nil {
			return err
		}
		v.pc++
		return nil
	case opcode.KindMemoryCopy:
		length := v.pop().AsU32()
		src := v.pop().AsU32()
		dest := v.pop().AsU32()
		data, err := v.engine.store.Memory.Read(src, length)
		if err != nil {
			return err
		}
		if err := v.writeMemory(dest, data); err != nil {
			return err
		}
		v.pc++
		return nil

	case opcode.KindTableSize:
		table, err := v.table(op.Index)
		if err != nil {
			return err
		}
		v.pc++
		return v.push(opcode.FromU32(uint32(len(table))))
	case opcode.KindTableGet:
		table, err := v.table(op.Index)
		if err != nil {
			return err
		}
		element := int(v.pop().AsU32())
		if element >= len(table) {
			return errors.Internal(errors.PhaseRun, "table element %d out of range", element)
		}
		v.pc++
		return v.push(opcode.FromU32(table[element]))
	case opcode.KindTableSet:
		table, err := v.table(op.Index)
		if err != nil {
			return err
		}
		value := v.pop().AsU32()
		element := int(v.pop().AsU32())
		if element >= len(table) {
			return errors.Internal(errors.PhaseRun, "table element %d out of range", element)
		}
		table[element] = value
		v.pc++
		return nil
	case opcode.KindTableGrow:
		table, err := v.table(op.Index)
		if err != nil {
			return err
		}
		delta := v.pop().AsU32()
		value := v.pop().AsU32()
		previous := len(table)
		grown := append(table, make([]uint32, delta)...)
		for i := previous; i < len(grown); i++ {
			grown[i] = value
		}
		v.engine.tables[op.Index] = grown
		v.pc++
		return v.push(opcode.FromU32(uint32(previous)))
	case opcode.KindTableFill:
		table, err := v.table(op.Index)
		if err != nil {
			return err
		}
		length := int(v.pop().AsU32())
		value := v.pop().AsU32()
		start := int(v.pop().AsU32())
		if start+length > len(table) {
			return errors.Internal(errors.PhaseRun, "table fill of %d at %d out of range", length, start)
		}
		for i := 0; i < length; i++ {
			table[start+i] = value
		}
		v.pc++
		return nil
	case opcode.KindTableCopy:
		dst, err := v.table(op.Index)
		if err != nil {
			return err
		}
		src, err := v.table(op.Index2)
		if err != nil {
			return err
		}
		length := int(v.pop().AsU32())
		from := int(v.pop().AsU32())
		to := int(v.pop().AsU32())
		if from+length > len(src) || to+length > len(dst) {
			return errors.Internal(errors.PhaseRun, "table copy of %d out of range", length)
		}
		copy(dst[to:to+length], src[from:from+length])
		v.pc++
		return nil

	case opcode.KindMemoryInit, opcode.KindDataDrop, opcode.KindTableInit:
		// segments are materialized at translation time and do not
		// exist at runtime
		return errors.New(errors.PhaseRun, errors.KindUnsupportedOpcode).
			Detail("%s", op.Kind).Build()

	case opcode.KindI64Const, opcode.KindI32Const:
		v.pc++
		return v.push(op.Value)
	}

	if op.Kind.IsMemAccess() {
		if err := v.memAccess(op); err != nil {
			return err
		}
		v.pc++
		return nil
	}
	if done, err := v.numeric(op); done || err != nil {
		if err != nil {
			return err
		}
		v.pc++
		return nil
	}
	return errors.New(errors.PhaseRun, errors.KindUnsupportedOpcode).
		Detail("%s", op.Kind).Build()
}

func (v *vm) doReturn() error {
	if len(v.calls) == 0 {
		v.halted = true
		return nil
	}
	v.pc = v.calls[len(v.calls)-1]
	v.calls = v.calls[:len(v.calls)-1]
	return nil
}

func (v *vm) table(index opcode.Index) ([]uint32, error) {
	if int(index) >= len(v.engine.tables) {
		return nil, errors.Internal(errors.PhaseRun, "table %d out of range", index)
	}
	return v.engine.tables[index], nil
}

// writeMemory mutates linear memory and records the delta, except
// during the untraced instantiation prefix: the initial image is
// reported through the global-memory scan instead.
func (v *vm) writeMemory(offset uint32, data []byte) error {
	if err := v.engine.store.Memory.Write(offset, data); err != nil {
		return err
	}
	if v.tracing {
		v.engine.store.Tracer.MemoryChange(offset, uint32(len(data)), data)
	}
	return nil
}

// callHost marshals the stack through the registry signature and runs
// the bound implementation. No engine lock is held here.
func (v *vm) callHost(index opcode.Index) error {
	fn, sig, err := v.engine.linker.ResolveFunction(index)
	if err != nil {
		return err
	}
	if len(v.stack) < sig.NumParams {
		return errors.Internal(errors.PhaseRun, "host call %s needs %d params, stack has %d",
			v.hostName(index), sig.NumParams, len(v.stack))
	}
	params := make([]opcode.UntypedValue, sig.NumParams)
	copy(params, v.stack[len(v.stack)-sig.NumParams:])
	v.stack = v.stack[:len(v.stack)-sig.NumParams]
	results := make([]opcode.UntypedValue, sig.NumResults)
	if err := fn(callerView{store: v.engine.store}, params, results); err != nil {
		return err
	}
	for _, result := range results {
		if err := v.push(result); err != nil {
			return err
		}
	}
	return nil
}

func (v *vm) hostName(index opcode.Index) string {
	if name, ok := hostcall.NameOf(index); ok {
		return name
	}
	return "unknown"
}

func (v *vm) callIndirect(op opcode.OpCode) error {
	table, err := v.table(op.Index)
	if err != nil {
		return err
	}
	element := int(v.pop().AsU32())
	if element >= len(table) {
		return errors.Internal(errors.PhaseRun, "indirect call element %d out of range", element)
	}
	fnIndex := table[element]
	if int(fnIndex) >= len(v.engine.funcs) {
		return errors.MissingFunction(errors.PhaseRun, fnIndex)
	}
	info := v.engine.funcs[fnIndex]
	if op.Index2 != 0 && uint32(op.Index2) != info.TypeIndex {
		return errors.Internal(errors.PhaseRun, "indirect call signature mismatch for function %d", fnIndex)
	}
	if info.Host {
		if err := v.callHost(info.HostIndex); err != nil {
			return err
		}
		v.pc++
		return nil
	}
	entry, ok := v.engine.entries[fnIndex]
	if !ok {
		return errors.MissingFunction(errors.PhaseRun, fnIndex)
	}
	v.calls = append(v.calls, v.pc+1)
	v.enterFunction(fnIndex)
	v.pc = int(entry)
	return nil
}
