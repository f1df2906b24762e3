package tracer

import (
	"encoding/hex"
	"encoding/json"
)

// The trace JSON layout is a wire contract consumed by circuit builders:
// field order and conditional omission must stay exactly as emitted here.

type memoryStateJSON struct {
	Offset uint32 `json:"offset"`
	Len    uint32 `json:"len"`
	Data   string `json:"data"`
}

// MarshalJSON emits the chunk with its payload hex encoded, unprefixed.
func (m MemoryState) MarshalJSON() ([]byte, error) {
	return json.Marshal(memoryStateJSON{
		Offset: m.Offset,
		Len:    m.Len,
		Data:   hex.EncodeToString(m.Data),
	})
}

type opCodeStateJSON struct {
	PC            uint32        `json:"pc"`
	SourcePC      uint32        `json:"source_pc"`
	Name          string        `json:"name"`
	Opcode        uint16        `json:"opcode"`
	StackDrop     *uint32       `json:"stack_drop,omitempty"`
	StackKeep     *uint32       `json:"stack_keep,omitempty"`
	Params        []uint64      `json:"params,omitempty"`
	MemoryChanges []MemoryState `json:"memory_changes,omitempty"`
	Stack         []uint64      `json:"stack,omitempty"`
}

// MarshalJSON emits one log record. stack_drop/stack_keep appear only
// when the opcode carries a nonempty DropKeep; params, memory_changes
// and stack are omitted when empty.
func (s OpCodeState) MarshalJSON() ([]byte, error) {
	params := s.OpCode.Params()
	if s.CallIndex != nil {
		params = []uint64{uint64(*s.CallIndex)}
	}
	out := opCodeStateJSON{
		PC:            s.ProgramCounter,
		SourcePC:      s.SourcePC,
		Name:          s.OpCode.Kind.Name(),
		Opcode:        s.Code,
		Params:        params,
		MemoryChanges: s.MemoryChanges,
		Stack:         s.Stack,
	}
	if dk, ok := s.OpCode.TraceDropKeep(); ok {
		drop, keep := dk.Drop, dk.Keep
		out.StackDrop, out.StackKeep = &drop, &keep
	}
	return json.Marshal(out)
}

type functionMetaJSON struct {
	FnIndex        uint32 `json:"fn_index"`
	MaxStackHeight uint32 `json:"max_stack_height"`
	NumLocals      uint32 `json:"num_locals"`
	FnName         string `json:"fn_name"`
}

func (m FunctionMeta) MarshalJSON() ([]byte, error) {
	return json.Marshal(functionMetaJSON(m))
}

type globalVariableJSON struct {
	Index uint32 `json:"index"`
	Value uint64 `json:"value"`
}

func (g GlobalVariable) MarshalJSON() ([]byte, error) {
	return json.Marshal(globalVariableJSON(g))
}

type tracerJSON struct {
	GlobalMemory    []MemoryState    `json:"global_memory"`
	Logs            []OpCodeState    `json:"logs"`
	GlobalVariables []GlobalVariable `json:"global_variables"`
	FnMetas         []FunctionMeta   `json:"fn_metas"`
}

// ToJSON serializes the whole trace. The four top-level arrays are
// always present, empty or not.
func (t *Tracer) ToJSON() ([]byte, error) {
	out := tracerJSON{
		GlobalMemory:    t.globalMemory,
		Logs:            t.logs,
		GlobalVariables: t.globalVariables,
		FnMetas:         t.fnsMeta,
	}
	if out.GlobalMemory == nil {
		out.GlobalMemory = []MemoryState{}
	}
	if out.Logs == nil {
		out.Logs = []OpCodeState{}
	}
	if out.GlobalVariables == nil {
		out.GlobalVariables = []GlobalVariable{}
	}
	if out.FnMetas == nil {
		out.FnMetas = []FunctionMeta{}
	}
	return json.Marshal(out)
}
