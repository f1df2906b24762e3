package engine

import (
	stderrors "errors"
	"testing"

	"github.com/zkvmlabs/wasm-tracer/errors"
)

func TestMemoryGrowBounds(t *testing.T) {
	m, err := NewMemory(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	previous, ok := m.Grow(1)
	if !ok || previous != 1 || m.Pages() != 2 {
		t.Fatalf("grow: prev=%d ok=%v pages=%d", previous, ok, m.Pages())
	}
	if _, ok := m.Grow(1); ok {
		t.Fatalf("grow beyond max must fail")
	}
}

func TestMemoryAccessBounds(t *testing.T) {
	m, err := NewMemory(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Write(0xFFFF, []byte{1, 2}); !stderrors.Is(err, errors.ErrMemoryOverflow) {
		t.Fatalf("expected memory_overflow, got %v", err)
	}
	if _, err := m.Read(0x10000, 1); !stderrors.Is(err, errors.ErrMemoryOverflow) {
		t.Fatalf("expected memory_overflow, got %v", err)
	}
}

func TestMemoryTypedAccessIsBigEndian(t *testing.T) {
	m, err := NewMemory(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	written, err := m.WriteUint(8, 4, 0x01020304)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 4 || written[0] != 0x01 || written[3] != 0x04 {
		t.Fatalf("write bytes %x", written)
	}
	v, err := m.ReadUint(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x01020304 {
		t.Fatalf("read %#x", v)
	}
	if b, err := m.ReadUint(8, 1); err != nil || b != 0x01 {
		t.Fatalf("leading byte %#x, err %v", b, err)
	}
}

func TestInitialPagesOverMaxFails(t *testing.T) {
	if _, err := NewMemory(3, 2); !stderrors.Is(err, errors.ErrMemoryOverflow) {
		t.Fatalf("expected memory_overflow, got %v", err)
	}
}
