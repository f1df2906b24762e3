package tracer

import (
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// MemoryState is one contiguous span of linear memory: the initial image
// chunks and every recorded store delta use this shape.
type MemoryState struct {
	Offset uint32
	Len    uint32
	Data   []byte
}

// OpCodeState is one executed instruction.
type OpCodeState struct {
	ProgramCounter uint32
	OpCode         opcode.OpCode
	MemoryChanges  []MemoryState
	Stack          []uint64
	SourcePC       uint32
	Code           uint16

	// CallIndex holds the resolved callee function index for Call
	// records when the engine's function table is available. It is nil
	// when executing a bare binary with no table, in which case the
	// record falls back to the opcode's raw branch operand.
	CallIndex *uint32
}

// FunctionMeta describes one function entry observed during execution.
type FunctionMeta struct {
	FnIndex        uint32
	MaxStackHeight uint32
	NumLocals      uint32
	FnName         string
}

// GlobalVariable is one initialized global.
type GlobalVariable struct {
	Index uint32
	Value uint64
}

// Tracer accumulates the trace of a single run. It is owned by exactly
// one engine store and is not safe for concurrent use; the engine's
// single-threaded dispatch is the required discipline.
type Tracer struct {
	globalMemory    []MemoryState
	logs            []OpCodeState
	pendingChanges  []MemoryState
	fnsMeta         []FunctionMeta
	globalVariables []GlobalVariable
	externNames     map[opcode.Index]string
	onLogAppend     func(OpCodeState)
}

// New returns an empty tracer.
func New() *Tracer {
	return &Tracer{externNames: make(map[opcode.Index]string)}
}

// GlobalMemory records one nonzero chunk of the initial memory image.
func (t *Tracer) GlobalMemory(offset, length uint32, data []byte) {
	t.globalMemory = append(t.globalMemory, MemoryState{
		Offset: offset,
		Len:    length,
		Data:   append([]byte(nil), data...),
	})
}

// GlobalVariable records the initialized value of a global.
func (t *Tracer) GlobalVariable(value opcode.UntypedValue, index opcode.Index) {
	t.globalVariables = append(t.globalVariables, GlobalVariable{
		Index: uint32(index),
		Value: value.Bits(),
	})
}

// RegisterExternName associates an externally supplied name with a
// function index. It takes precedence over the name reported by
// FunctionCall.
func (t *Tracer) RegisterExternName(index opcode.Index, name string) {
	t.externNames[index] = name
}

// FunctionCall records metadata for a function being entered.
func (t *Tracer) FunctionCall(fnIndex, maxStackHeight, numLocals uint32, fnName string) {
	if extern, ok := t.externNames[opcode.Index(fnIndex)]; ok {
		fnName = extern
	}
	t.fnsMeta = append(t.fnsMeta, FunctionMeta{
		FnIndex:        fnIndex,
		MaxStackHeight: maxStackHeight,
		NumLocals:      numLocals,
		FnName:         fnName,
	})
}

// MemoryChange records a store that mutated linear memory. Deltas
// accumulate until the next PreOpcodeState drains them into its record.
func (t *Tracer) MemoryChange(offset, length uint32, data []byte) {
	t.pendingChanges = append(t.pendingChanges, MemoryState{
		Offset: offset,
		Len:    length,
		Data:   append([]byte(nil), data...),
	})
}

// PreOpcodeState records the machine state immediately before an opcode
// executes: the accumulated memory deltas since the previous record, a
// bottom-to-top snapshot of the value stack, and the opcode's binary
// provenance from meta.
func (t *Tracer) PreOpcodeState(pc uint32, op opcode.OpCode, stack []uint64, meta opcode.InstrMeta) {
	t.appendLog(OpCodeState{
		ProgramCounter: pc,
		OpCode:         op,
		Stack:          stack,
		SourcePC:       meta.SourcePC,
		Code:           meta.Code,
	})
}

// PreCallState records a Call opcode together with its resolved callee
// function index; the index replaces the raw branch operand in the
// emitted params.
func (t *Tracer) PreCallState(pc uint32, op opcode.OpCode, fnIndex uint32, stack []uint64, meta opcode.InstrMeta) {
	t.appendLog(OpCodeState{
		ProgramCounter: pc,
		OpCode:         op,
		Stack:          stack,
		SourcePC:       meta.SourcePC,
		Code:           meta.Code,
		CallIndex:      &fnIndex,
	})
}

// appendLog drains the pending memory deltas into the record, stores it
// and fires the streaming subscriber.
func (t *Tracer) appendLog(state OpCodeState) {
	state.MemoryChanges = t.pendingChanges
	t.pendingChanges = nil
	t.logs = append(t.logs, state)
	if t.onLogAppend != nil {
		t.onLogAppend(state)
	}
}

// SetCallbackOnLogAppend installs the single streaming subscriber,
// invoked synchronously after each log record is appended. Subscribers
// marshalling across a foreign boundary must copy the record before
// returning.
func (t *Tracer) SetCallbackOnLogAppend(cb func(OpCodeState)) {
	t.onLogAppend = cb
}

// ResetCallbackOnLogAppend removes the streaming subscriber.
func (t *Tracer) ResetCallbackOnLogAppend() {
	t.onLogAppend = nil
}

// Logs returns the recorded instruction log.
func (t *Tracer) Logs() []OpCodeState { return t.logs }

// GlobalMemoryChunks returns the recorded initial memory image.
func (t *Tracer) GlobalMemoryChunks() []MemoryState { return t.globalMemory }

// GlobalVariables returns the recorded globals.
func (t *Tracer) GlobalVariables() []GlobalVariable { return t.globalVariables }

// FunctionMetas returns the recorded function entries.
func (t *Tracer) FunctionMetas() []FunctionMeta { return t.fnsMeta }
