package hostcall

import (
	stderrors "errors"
	"testing"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

func TestResolveKnownImports(t *testing.T) {
	cases := map[string]opcode.Index{
		"_evm_stop":         ImportEvmStop,
		"_evm_return":       ImportEvmReturn,
		"_evm_keccak256":    ImportEvmKeccak256,
		"_evm_sload":        ImportEvmSLoad,
		"_evm_log4":         ImportEvmLog4,
		"_evm_selfdestruct": ImportEvmSelfDestruct,
	}
	for field, want := range cases {
		got, err := Resolve("env", field)
		if err != nil {
			t.Fatalf("%s: %v", field, err)
		}
		if got != want {
			t.Errorf("%s: index 0x%X, want 0x%X", field, uint32(got), uint32(want))
		}
	}
}

func TestResolveUnknownImport(t *testing.T) {
	if _, err := Resolve("env", "_evm_unknown"); !stderrors.Is(err, errors.ErrUnsupportedImport) {
		t.Fatalf("expected unsupported_import, got %v", err)
	}
	if _, err := Resolve("wasi", "_evm_return"); !stderrors.Is(err, errors.ErrUnsupportedImport) {
		t.Fatalf("module name is part of the key, got %v", err)
	}
}

func TestRegistryIsBijectiveOverReservedRange(t *testing.T) {
	if len(registry) != 42 {
		t.Fatalf("expected 42 host functions, got %d", len(registry))
	}
	seen := make(map[opcode.Index]string)
	for key, sig := range registry {
		if sig.Index < 0xEE01 || sig.Index > 0xEE2A {
			t.Errorf("%s: index 0x%X outside the reserved range", key.field, uint32(sig.Index))
		}
		if other, dup := seen[sig.Index]; dup {
			t.Errorf("index 0x%X assigned to both %s and %s", uint32(sig.Index), other, key.field)
		}
		seen[sig.Index] = key.field
	}
}

func TestLinkerDefineAndResolve(t *testing.T) {
	linker := NewLinker()
	called := false
	err := linker.DefineFunction("env", "_evm_stop", func(Caller, []opcode.UntypedValue, []opcode.UntypedValue) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	fn, sig, err := linker.ResolveFunction(ImportEvmStop)
	if err != nil {
		t.Fatal(err)
	}
	if sig.NumParams != 0 || sig.NumResults != 0 {
		t.Fatalf("unexpected signature %+v", sig)
	}
	if err := fn(nil, nil, nil); err != nil || !called {
		t.Fatalf("bound function not invoked")
	}
}

func TestLinkerUnboundIndex(t *testing.T) {
	linker := NewLinker()
	if _, _, err := linker.ResolveFunction(ImportEvmReturn); !stderrors.Is(err, errors.ErrUnsupportedImport) {
		t.Fatalf("expected unsupported_import for unbound index, got %v", err)
	}
	if _, _, err := linker.ResolveFunction(opcode.Index(0x1234)); !stderrors.Is(err, errors.ErrUnsupportedImport) {
		t.Fatalf("expected unsupported_import outside range, got %v", err)
	}
	if err := linker.DefineFunction("env", "nope", nil); !stderrors.Is(err, errors.ErrUnsupportedImport) {
		t.Fatalf("expected unsupported_import on define, got %v", err)
	}
}

func TestEVMBindsWholeRegistry(t *testing.T) {
	linker := NewLinker()
	if err := NewEVM().BindAll(linker); err != nil {
		t.Fatal(err)
	}
	if got := len(linker.Defined()); got != 42 {
		t.Fatalf("expected all 42 functions bound, got %d", got)
	}
}
