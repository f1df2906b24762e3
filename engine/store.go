package engine

import (
	"github.com/zkvmlabs/wasm-tracer/opcode"
	"github.com/zkvmlabs/wasm-tracer/tracer"
)

// Store holds the mutable state of one engine instance: linear memory,
// globals and the tracer. It is created with the engine and lives for
// exactly one run.
type Store struct {
	Memory  *Memory
	Globals []opcode.UntypedValue
	Tracer  *tracer.Tracer
}

// NewStore builds a store with the given memory and global count.
func NewStore(memory *Memory, numGlobals uint32) *Store {
	return &Store{
		Memory:  memory,
		Globals: make([]opcode.UntypedValue, numGlobals),
		Tracer:  tracer.New(),
	}
}

// callerView is the memory window handed to host functions. Writes are
// recorded as trace deltas exactly like interpreter stores; the tracer
// itself is reachable so re-entrant hosts can record events directly.
type callerView struct {
	store *Store
}

func (v callerView) MemoryRead(offset uint32, length uint32) ([]byte, error) {
	return v.store.Memory.Read(offset, length)
}

func (v callerView) MemoryWrite(offset uint32, data []byte) error {
	if err := v.store.Memory.Write(offset, data); err != nil {
		return err
	}
	v.store.Tracer.MemoryChange(offset, uint32(len(data)), data)
	return nil
}
