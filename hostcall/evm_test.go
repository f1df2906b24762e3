package hostcall

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// fakeCaller is a flat in-memory Caller for exercising host bindings
// without an engine.
type fakeCaller struct {
	mem []byte
}

func (c *fakeCaller) MemoryRead(offset uint32, length uint32) ([]byte, error) {
	if int(offset)+int(length) > len(c.mem) {
		return nil, errors.MemoryOverflow(uint64(offset), uint64(length))
	}
	return append([]byte(nil), c.mem[offset:offset+length]...), nil
}

func (c *fakeCaller) MemoryWrite(offset uint32, data []byte) error {
	if int(offset)+len(data) > len(c.mem) {
		return errors.MemoryOverflow(uint64(offset), uint64(len(data)))
	}
	copy(c.mem[offset:], data)
	return nil
}

func bind(t *testing.T) (*EVM, *Linker, *fakeCaller) {
	t.Helper()
	evm := NewEVM()
	linker := NewLinker()
	if err := evm.BindAll(linker); err != nil {
		t.Fatal(err)
	}
	return evm, linker, &fakeCaller{mem: make([]byte, 4096)}
}

func call(t *testing.T, linker *Linker, caller Caller, index opcode.Index, params ...uint64) []opcode.UntypedValue {
	t.Helper()
	fn, sig, err := linker.ResolveFunction(index)
	if err != nil {
		t.Fatal(err)
	}
	if len(params) != sig.NumParams {
		t.Fatalf("host 0x%X takes %d params, got %d", uint32(index), sig.NumParams, len(params))
	}
	in := make([]opcode.UntypedValue, len(params))
	for i, p := range params {
		in[i] = opcode.FromBits(p)
	}
	out := make([]opcode.UntypedValue, sig.NumResults)
	if err := fn(caller, in, out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestEvmReturnCapturesOutput(t *testing.T) {
	evm, linker, caller := bind(t)
	copy(caller.mem[64:], "Hello, World")
	call(t, linker, caller, ImportEvmReturn, 64, 12)
	if string(evm.Output) != "Hello, World" {
		t.Fatalf("output %q", evm.Output)
	}
	if evm.Reverted {
		t.Fatalf("return must not revert")
	}
}

func TestEvmRevertSetsFlag(t *testing.T) {
	evm, linker, caller := bind(t)
	copy(caller.mem[0:], "err")
	call(t, linker, caller, ImportEvmRevert, 0, 3)
	if !evm.Reverted || string(evm.Output) != "err" {
		t.Fatalf("revert not captured: %+v", evm)
	}
}

func TestEvmKeccak256(t *testing.T) {
	_, linker, caller := bind(t)
	payload := []byte("tracing")
	copy(caller.mem[0:], payload)
	call(t, linker, caller, ImportEvmKeccak256, 0, uint64(len(payload)), 128)
	want := crypto.Keccak256(payload)
	if !bytes.Equal(caller.mem[128:160], want) {
		t.Fatalf("keccak output mismatch")
	}
}

func TestEvmStorageRoundTrip(t *testing.T) {
	evm, linker, caller := bind(t)
	copy(caller.mem[0:32], common.HexToHash("0x01").Bytes())
	copy(caller.mem[32:64], common.HexToHash("0xCAFE").Bytes())
	call(t, linker, caller, ImportEvmSStore, 0, 32)
	if got := evm.Storage[common.HexToHash("0x01")]; got != common.HexToHash("0xCAFE") {
		t.Fatalf("sstore value %s", got)
	}
	call(t, linker, caller, ImportEvmSLoad, 0, 96)
	if !bytes.Equal(caller.mem[96:128], common.HexToHash("0xCAFE").Bytes()) {
		t.Fatalf("sload wrote %x", caller.mem[96:128])
	}
}

func TestEvmCallDataFamily(t *testing.T) {
	evm, linker, caller := bind(t)
	evm.CallData = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	out := call(t, linker, caller, ImportEvmCallDataSize)
	if out[0].AsU32() != 4 {
		t.Fatalf("calldatasize %d", out[0].AsU32())
	}
	call(t, linker, caller, ImportEvmCallDataCopy, 200, 2, 4)
	if !bytes.Equal(caller.mem[200:204], []byte{0xBE, 0xEF, 0x00, 0x00}) {
		t.Fatalf("calldatacopy wrote %x", caller.mem[200:204])
	}
}

func TestEvmLogsCaptureTopics(t *testing.T) {
	evm, linker, caller := bind(t)
	copy(caller.mem[0:], "data")
	copy(caller.mem[32:64], common.HexToHash("0x11").Bytes())
	copy(caller.mem[64:96], common.HexToHash("0x22").Bytes())
	call(t, linker, caller, ImportEvmLog2, 0, 4, 32, 64)
	if len(evm.Logs) != 1 {
		t.Fatalf("expected one log, got %d", len(evm.Logs))
	}
	record := evm.Logs[0]
	if string(record.Data) != "data" || len(record.Topics) != 2 || record.Topics[1] != common.HexToHash("0x22") {
		t.Fatalf("log record %+v", record)
	}
}

func TestEvmEnvironmentValues(t *testing.T) {
	evm, linker, caller := bind(t)
	evm.Timestamp = 1700000000
	evm.Address = common.HexToAddress("0x00000000000000000000000000000000deadbeef")
	out := call(t, linker, caller, ImportEvmTimestamp)
	if out[0].AsU64() != 1700000000 {
		t.Fatalf("timestamp %d", out[0].AsU64())
	}
	call(t, linker, caller, ImportEvmAddress, 300)
	if !bytes.Equal(caller.mem[300:320], evm.Address.Bytes()) {
		t.Fatalf("address wrote %x", caller.mem[300:320])
	}
}
