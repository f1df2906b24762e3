package hostcall

import (
	"sort"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// Caller is the view of the running engine a host function receives. It
// deliberately exposes only linear memory: host functions observe and
// mutate guest state through memory, never through the value stack.
// Writes made through it are recorded as memory deltas in the trace.
type Caller interface {
	MemoryRead(offset uint32, length uint32) ([]byte, error)
	MemoryWrite(offset uint32, data []byte) error
}

// Func is a bound host function. Params arrive bottom-to-top; results
// must be filled left-to-right. The engine holds no lock while a Func
// runs, so implementations may call back into the engine's tracer or
// memory view.
type Func func(caller Caller, params []opcode.UntypedValue, results []opcode.UntypedValue) error

type binding struct {
	fn  Func
	sig Signature
}

// Linker binds reserved host indices to implementations.
type Linker struct {
	bindings map[opcode.Index]binding
}

// NewLinker returns an empty linker.
func NewLinker() *Linker {
	return &Linker{bindings: make(map[opcode.Index]binding)}
}

// DefineFunction binds fn to the registry index of (module, field).
// Fails when the name is not in the registry.
func (l *Linker) DefineFunction(module, field string, fn Func) error {
	sig, ok := registry[importKey{module, field}]
	if !ok {
		return errors.UnsupportedImport(module, field)
	}
	l.bindings[sig.Index] = binding{fn: fn, sig: sig}
	return nil
}

// ResolveFunction returns the implementation bound to a reserved index.
func (l *Linker) ResolveFunction(index opcode.Index) (Func, Signature, error) {
	b, ok := l.bindings[index]
	if !ok {
		sig, known := SignatureOf(index)
		if !known {
			return nil, Signature{}, errors.New(errors.PhaseLink, errors.KindUnsupportedImport).
				Detail("host index 0x%X outside the reserved range", uint32(index)).Build()
		}
		return nil, sig, errors.New(errors.PhaseLink, errors.KindUnsupportedImport).
			Detail("host index 0x%X is not bound", uint32(index)).Build()
	}
	return b.fn, b.sig, nil
}

// Defined returns the bound indices in ascending order.
func (l *Linker) Defined() []opcode.Index {
	out := make([]opcode.Index, 0, len(l.bindings))
	for idx := range l.bindings {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
