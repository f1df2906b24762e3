package opcode

// DropKeep describes stack reshaping: remove Drop values from below the
// top Keep values, preserving the top Keep in order. The zero value is a
// permitted no-op.
type DropKeep struct {
	Drop uint32
	Keep uint32
}

// NewDropKeep returns a DropKeep with the given counts.
func NewDropKeep(drop, keep uint32) DropKeep {
	return DropKeep{Drop: drop, Keep: keep}
}

// IsNoop returns true when the reshaping removes and preserves nothing.
func (dk DropKeep) IsNoop() bool { return dk.Drop == 0 && dk.Keep == 0 }

// BranchParams bundles a jump offset with the DropKeep applied along the
// taken edge. A BranchParams with a zero offset is uninitialized and
// illegal to execute.
type BranchParams struct {
	Offset   JumpDest
	DropKeep DropKeep
}

// NewBranchParams returns initialized BranchParams.
func NewBranchParams(offset JumpDest, dk DropKeep) BranchParams {
	return BranchParams{Offset: offset, DropKeep: dk}
}
