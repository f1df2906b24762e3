package opcode

// Index identifies a function, global, table, type or data segment.
type Index uint32

// Offset is a memory or stack position.
type Offset uint32

// JumpDest is a signed jump offset. Its reference frame is context-local:
// inside the compiler it is a relative opcode-position delta, inside the
// encoded binary an absolute byte offset, and after loading a relative
// opcode-position delta again.
type JumpDest int32

// Uninit returns true if the offset still holds its zero placeholder.
func (d JumpDest) Uninit() bool { return d == 0 }

// Fuel is a nonnegative fuel consumption amount.
type Fuel uint64

// Pages counts 64 KiB linear memory pages.
type Pages uint32

const (
	// PageSize is the wasm linear memory page size in bytes.
	PageSize = 0x10000
	// MaxPages bounds linear memory to 512 pages (32 MiB).
	MaxPages Pages = 512
)

// Bytes returns the page count in bytes.
func (p Pages) Bytes() uint64 { return uint64(p) * PageSize }
