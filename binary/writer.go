package binary

import (
	gobinary "encoding/binary"

	"github.com/zkvmlabs/wasm-tracer/errors"
)

// Writer writes fixed-width big-endian values into a preallocated sink.
// The write offset advances only on success: a failed write leaves the
// writer exactly where it was, reporting how many bytes were missing.
type Writer struct {
	sink []byte
	pos  int
}

// NewWriter returns a writer over the given sink.
func NewWriter(sink []byte) *Writer {
	return &Writer{sink: sink}
}

// Pos returns the number of bytes written so far.
func (w *Writer) Pos() int { return w.pos }

// Bytes returns the written prefix of the sink.
func (w *Writer) Bytes() []byte { return w.sink[:w.pos] }

func (w *Writer) require(n int) error {
	if len(w.sink) < w.pos+n {
		return errors.NeedMore(errors.PhaseEncode, w.pos+n-len(w.sink))
	}
	return nil
}

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(v byte) error {
	if err := w.require(1); err != nil {
		return err
	}
	w.sink[w.pos] = v
	w.pos++
	return nil
}

// WriteU16 writes an unsigned 16-bit big-endian value.
func (w *Writer) WriteU16(v uint16) error {
	if err := w.require(2); err != nil {
		return err
	}
	gobinary.BigEndian.PutUint16(w.sink[w.pos:], v)
	w.pos += 2
	return nil
}

// WriteU32 writes an unsigned 32-bit big-endian value.
func (w *Writer) WriteU32(v uint32) error {
	if err := w.require(4); err != nil {
		return err
	}
	gobinary.BigEndian.PutUint32(w.sink[w.pos:], v)
	w.pos += 4
	return nil
}

// WriteI32 writes a signed 32-bit big-endian value.
func (w *Writer) WriteI32(v int32) error {
	return w.WriteU32(uint32(v))
}

// WriteU64 writes an unsigned 64-bit big-endian value.
func (w *Writer) WriteU64(v uint64) error {
	if err := w.require(8); err != nil {
		return err
	}
	gobinary.BigEndian.PutUint64(w.sink[w.pos:], v)
	w.pos += 8
	return nil
}

// WriteI64 writes a signed 64-bit big-endian value.
func (w *Writer) WriteI64(v int64) error {
	return w.WriteU64(uint64(v))
}
