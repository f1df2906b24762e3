package opcode

// InstructionSet is an ordered, 0-indexed opcode sequence under
// construction. The index of an opcode is its "opcode position"; byte
// offsets only exist after encoding.
type InstructionSet struct {
	ops []OpCode
}

// NewInstructionSet returns an empty instruction set.
func NewInstructionSet() *InstructionSet {
	return &InstructionSet{}
}

// Push appends an opcode and returns its opcode position.
func (s *InstructionSet) Push(op OpCode) uint32 {
	pos := uint32(len(s.ops))
	s.ops = append(s.ops, op)
	return pos
}

// Len returns the number of opcodes pushed so far.
func (s *InstructionSet) Len() uint32 { return uint32(len(s.ops)) }

// At returns the opcode at the given position.
func (s *InstructionSet) At(pos uint32) OpCode { return s.ops[pos] }

// Set replaces the opcode at the given position.
func (s *InstructionSet) Set(pos uint32, op OpCode) { s.ops[pos] = op }

// Extend appends every opcode of the other set.
func (s *InstructionSet) Extend(other *InstructionSet) {
	s.ops = append(s.ops, other.ops...)
}

// Finalize returns the accumulated opcodes. The set must not be reused
// afterwards.
func (s *InstructionSet) Finalize() []OpCode {
	ops := s.ops
	s.ops = nil
	return ops
}

// Ops returns the live opcode slice for read-only traversal.
func (s *InstructionSet) Ops() []OpCode { return s.ops }

// Typed push helpers, mirroring the constructor set.

func (s *InstructionSet) OpUnreachable() uint32       { return s.Push(Plain(KindUnreachable)) }
func (s *InstructionSet) OpConsumeFuel(n uint64) uint32 { return s.Push(ConsumeFuel(n)) }
func (s *InstructionSet) OpDrop() uint32              { return s.Push(Plain(KindDrop)) }
func (s *InstructionSet) OpSelect() uint32            { return s.Push(Plain(KindSelect)) }

func (s *InstructionSet) OpLocalGet(depth uint32) uint32 { return s.Push(LocalGet(depth)) }
func (s *InstructionSet) OpLocalSet(depth uint32) uint32 { return s.Push(LocalSet(depth)) }
func (s *InstructionSet) OpLocalTee(depth uint32) uint32 { return s.Push(LocalTee(depth)) }

func (s *InstructionSet) OpBr(p BranchParams) uint32      { return s.Push(Br(p)) }
func (s *InstructionSet) OpBrIfEqz(p BranchParams) uint32 { return s.Push(BrIfEqz(p)) }
func (s *InstructionSet) OpBrIfNez(p BranchParams) uint32 { return s.Push(BrIfNez(p)) }
func (s *InstructionSet) OpBrTable(n uint32) uint32       { return s.Push(BrTable(n)) }

func (s *InstructionSet) OpReturn(dk DropKeep) uint32 { return s.Push(Return(dk)) }

func (s *InstructionSet) OpCall(dest JumpDest) uint32      { return s.Push(Call(dest)) }
func (s *InstructionSet) OpCallHost(idx Index) uint32      { return s.Push(CallHost(idx)) }
func (s *InstructionSet) OpCallIndirect(t Index) uint32    { return s.Push(CallIndirect(t)) }

func (s *InstructionSet) OpGlobalGet(idx uint32) uint32 { return s.Push(GlobalGet(idx)) }
func (s *InstructionSet) OpGlobalSet(idx uint32) uint32 { return s.Push(GlobalSet(idx)) }

func (s *InstructionSet) OpConstI32(v int32) uint32 { return s.Push(ConstI32(v)) }
func (s *InstructionSet) OpConstI64(v int64) uint32 { return s.Push(ConstI64(v)) }
