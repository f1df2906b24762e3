package compiler

import (
	"strings"

	"go.uber.org/zap"

	"github.com/zkvmlabs/wasm-tracer/binary"
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/hostcall"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// CompiledModule is a flat binary decoded back into executable form:
// the opcode sequence, one InstrMeta per opcode tying it to its byte
// position and tag, a linker for host functions, and the number of
// globals the bytecode touches. Jump destinations are relative opcode
// positions. Immutable after construction except for the linker.
type CompiledModule struct {
	bytecode   []opcode.OpCode
	metas      []opcode.InstrMeta
	linker     *hostcall.Linker
	numGlobals uint32
}

// Load decodes a flat binary and rebuilds relative jump offsets from the
// absolute byte offsets the compiler wrote at finalization.
func Load(bin []byte) (*CompiledModule, error) {
	if len(bin) == 0 {
		return nil, errors.EmptyBytecode()
	}
	var (
		bytecode []opcode.OpCode
		metas    []opcode.InstrMeta
		jumpDest = make(map[int32]int)
	)
	r := binary.NewReader(bin)
	for !r.IsEmpty() {
		offset := r.Pos()
		tag := bin[offset]
		op, err := binary.DecodeOpCode(r)
		if err != nil {
			return nil, err
		}
		Logger().Debug("decoded opcode",
			zap.Int("offset", offset), zap.Stringer("op", op.Kind))
		jumpDest[int32(offset)] = len(bytecode)
		bytecode = append(bytecode, op)
		metas = append(metas, opcode.InstrMeta{SourcePC: uint32(offset), Code: uint16(tag)})
	}

	for i, op := range bytecode {
		byteOffset, ok := op.RelocationOffset()
		if !ok {
			continue
		}
		position, ok := jumpDest[int32(byteOffset)]
		if !ok {
			return nil, errors.ReachedUnreachable(errors.PhaseLoad, "jump destination is not an opcode boundary")
		}
		bytecode[i] = op.WithRelocationOffset(opcode.JumpDest(int32(position) - int32(i)))
	}

	var numGlobals uint32
	for _, op := range bytecode {
		if op.Kind == opcode.KindGlobalGet || op.Kind == opcode.KindGlobalSet {
			if uint32(op.Index)+1 > numGlobals {
				numGlobals = uint32(op.Index) + 1
			}
		}
	}

	return &CompiledModule{
		bytecode:   bytecode,
		metas:      metas,
		linker:     hostcall.NewLinker(),
		numGlobals: numGlobals,
	}, nil
}

// Bytecode returns the decoded opcode sequence.
func (m *CompiledModule) Bytecode() []opcode.OpCode { return m.bytecode }

// Metas returns one InstrMeta per decoded opcode.
func (m *CompiledModule) Metas() []opcode.InstrMeta { return m.metas }

// Linker returns the module's host function linker.
func (m *CompiledModule) Linker() *hostcall.Linker { return m.linker }

// NumGlobals returns one past the highest global index the bytecode
// references, or zero when it references none.
func (m *CompiledModule) NumGlobals() uint32 { return m.numGlobals }

// Disassemble renders the bytecode as one opcode per line.
func (m *CompiledModule) Disassemble() string {
	var b strings.Builder
	for _, op := range m.bytecode {
		b.WriteString(op.String())
		b.WriteByte('\n')
	}
	return b.String()
}
