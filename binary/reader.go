package binary

import (
	gobinary "encoding/binary"

	"github.com/zkvmlabs/wasm-tracer/errors"
)

// Reader reads fixed-width big-endian values from a byte slice. Reads
// are sequential; a failed read reports how many bytes were missing and
// does not advance the cursor.
type Reader struct {
	sink []byte
	pos  int
}

// NewReader returns a reader over the given bytes.
func NewReader(sink []byte) *Reader {
	return &Reader{sink: sink}
}

// IsEmpty reports whether the reader is exhausted.
func (r *Reader) IsEmpty() bool { return r.pos >= len(r.sink) }

// Pos returns the byte offset of the next read.
func (r *Reader) Pos() int { return r.pos }

func (r *Reader) require(n int) error {
	if len(r.sink) < r.pos+n {
		return errors.NeedMore(errors.PhaseDecode, r.pos+n-len(r.sink))
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.sink[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads an unsigned 16-bit big-endian value.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := gobinary.BigEndian.Uint16(r.sink[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads an unsigned 32-bit big-endian value.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := gobinary.BigEndian.Uint32(r.sink[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadI32 reads a signed 32-bit big-endian value.
func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadU64 reads an unsigned 64-bit big-endian value.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := gobinary.BigEndian.Uint64(r.sink[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadI64 reads a signed 64-bit big-endian value.
func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}
