package engine

import (
	gobinary "encoding/binary"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// Memory is the engine's linear memory: page-granular, bounded by the
// 512-page cap, with big-endian typed access matching the flat IR's byte
// order.
type Memory struct {
	data     []byte
	pages    opcode.Pages
	maxPages opcode.Pages
}

// NewMemory allocates initial pages, bounded by max.
func NewMemory(initial, max opcode.Pages) (*Memory, error) {
	if max == 0 || max > opcode.MaxPages {
		max = opcode.MaxPages
	}
	if initial > max {
		return nil, errors.MemoryOverflow(initial.Bytes(), 0)
	}
	return &Memory{
		data:     make([]byte, initial.Bytes()),
		pages:    initial,
		maxPages: max,
	}, nil
}

// Pages returns the current page count.
func (m *Memory) Pages() opcode.Pages { return m.pages }

// Grow adds delta pages and returns the previous page count. The second
// result is false when the cap would be exceeded.
func (m *Memory) Grow(delta opcode.Pages) (opcode.Pages, bool) {
	if delta > m.maxPages-m.pages {
		return 0, false
	}
	previous := m.pages
	m.pages += delta
	m.data = append(m.data, make([]byte, delta.Bytes())...)
	return previous, true
}

// Data returns a read-only view of the live memory. Callers must not
// retain it across a Grow.
func (m *Memory) Data() []byte { return m.data }

func (m *Memory) check(offset uint64, length uint64) error {
	if offset+length > uint64(len(m.data)) {
		return errors.MemoryOverflow(offset, length)
	}
	return nil
}

// Read returns a copy of length bytes at offset.
func (m *Memory) Read(offset uint32, length uint32) ([]byte, error) {
	if err := m.check(uint64(offset), uint64(length)); err != nil {
		return nil, err
	}
	return append([]byte(nil), m.data[offset:offset+length]...), nil
}

// Write copies data into memory at offset.
func (m *Memory) Write(offset uint32, data []byte) error {
	if err := m.check(uint64(offset), uint64(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

// ReadUint reads an n-byte big-endian unsigned integer.
func (m *Memory) ReadUint(offset uint64, n int) (uint64, error) {
	if err := m.check(offset, uint64(n)); err != nil {
		return 0, err
	}
	var v uint64
	switch n {
	case 1:
		v = uint64(m.data[offset])
	case 2:
		v = uint64(gobinary.BigEndian.Uint16(m.data[offset:]))
	case 4:
		v = uint64(gobinary.BigEndian.Uint32(m.data[offset:]))
	case 8:
		v = gobinary.BigEndian.Uint64(m.data[offset:])
	}
	return v, nil
}

// WriteUint writes the low n bytes of v big-endian and returns the
// written bytes for delta recording.
func (m *Memory) WriteUint(offset uint64, n int, v uint64) ([]byte, error) {
	if err := m.check(offset, uint64(n)); err != nil {
		return nil, err
	}
	switch n {
	case 1:
		m.data[offset] = byte(v)
	case 2:
		gobinary.BigEndian.PutUint16(m.data[offset:], uint16(v))
	case 4:
		gobinary.BigEndian.PutUint32(m.data[offset:], uint32(v))
	case 8:
		gobinary.BigEndian.PutUint64(m.data[offset:], v)
	}
	return m.data[offset : offset+uint64(n)], nil
}
