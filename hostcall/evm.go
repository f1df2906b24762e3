package hostcall

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// LogRecord is one LOG0..LOG4 emission captured by the reference host.
type LogRecord struct {
	Topics []common.Hash
	Data   []byte
}

// EVM is the reference in-memory host context behind the 42 registry
// functions. It models just enough of an execution environment to run
// guest modules end to end: environment values, storage, return and
// revert buffers, and captured logs. Nested calls and creates are
// accepted but neither executed nor recorded.
type EVM struct {
	Address  common.Address
	Origin   common.Address
	Caller   common.Address
	Coinbase common.Address

	CallValue *uint256.Int
	GasPrice  *uint256.Int
	BaseFee   *uint256.Int
	ChainID   *uint256.Int

	Timestamp  uint64
	Number     uint64
	GasLimit   uint64
	Difficulty common.Hash

	CallData   []byte
	Code       []byte
	ReturnData []byte

	Balances  map[common.Address]*uint256.Int
	ExtCode   map[common.Address][]byte
	Storage   map[common.Hash]common.Hash
	BlockHash func(number uint64) common.Hash

	// Execution results observable after a run.
	Output       []byte
	Reverted     bool
	Stopped      bool
	Logs         []LogRecord
	Destructed   bool
	Beneficiary  common.Address
}

// NewEVM returns a context with empty state and zeroed environment.
func NewEVM() *EVM {
	return &EVM{
		CallValue: uint256.NewInt(0),
		GasPrice:  uint256.NewInt(0),
		BaseFee:   uint256.NewInt(0),
		ChainID:   uint256.NewInt(1),
		Balances:  make(map[common.Address]*uint256.Int),
		ExtCode:   make(map[common.Address][]byte),
		Storage:   make(map[common.Hash]common.Hash),
	}
}

func (e *EVM) readAddress(c Caller, off opcode.UntypedValue) (common.Address, error) {
	raw, err := c.MemoryRead(off.AsU32(), common.AddressLength)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

func (e *EVM) readWord(c Caller, off opcode.UntypedValue) (common.Hash, error) {
	raw, err := c.MemoryRead(off.AsU32(), common.HashLength)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(raw), nil
}

func (e *EVM) writeWord(c Caller, off opcode.UntypedValue, word *uint256.Int) error {
	buf := word.Bytes32()
	return c.MemoryWrite(off.AsU32(), buf[:])
}

func copyPadded(dst []byte, src []byte, from uint32) {
	for i := range dst {
		dst[i] = 0
	}
	if uint64(from) < uint64(len(src)) {
		copy(dst, src[from:])
	}
}

// BindAll defines every registry function on the linker against this
// context.
func (e *EVM) BindAll(l *Linker) error {
	fns := map[string]Func{
		"_evm_stop": func(Caller, []opcode.UntypedValue, []opcode.UntypedValue) error {
			e.Stopped = true
			return nil
		},
		"_evm_return": func(c Caller, p, _ []opcode.UntypedValue) error {
			data, err := c.MemoryRead(p[0].AsU32(), p[1].AsU32())
			if err != nil {
				return err
			}
			e.Output = append([]byte(nil), data...)
			return nil
		},
		"_evm_revert": func(c Caller, p, _ []opcode.UntypedValue) error {
			data, err := c.MemoryRead(p[0].AsU32(), p[1].AsU32())
			if err != nil {
				return err
			}
			e.Output = append([]byte(nil), data...)
			e.Reverted = true
			return nil
		},
		"_evm_keccak256": func(c Caller, p, _ []opcode.UntypedValue) error {
			data, err := c.MemoryRead(p[0].AsU32(), p[1].AsU32())
			if err != nil {
				return err
			}
			return c.MemoryWrite(p[2].AsU32(), crypto.Keccak256(data))
		},
		"_evm_address": func(c Caller, p, _ []opcode.UntypedValue) error {
			return c.MemoryWrite(p[0].AsU32(), e.Address.Bytes())
		},
		"_evm_origin": func(c Caller, p, _ []opcode.UntypedValue) error {
			return c.MemoryWrite(p[0].AsU32(), e.Origin.Bytes())
		},
		"_evm_caller": func(c Caller, p, _ []opcode.UntypedValue) error {
			return c.MemoryWrite(p[0].AsU32(), e.Caller.Bytes())
		},
		"_evm_coinbase": func(c Caller, p, _ []opcode.UntypedValue) error {
			return c.MemoryWrite(p[0].AsU32(), e.Coinbase.Bytes())
		},
		"_evm_balance": func(c Caller, p, _ []opcode.UntypedValue) error {
			addr, err := e.readAddress(c, p[0])
			if err != nil {
				return err
			}
			balance := e.Balances[addr]
			if balance == nil {
				balance = uint256.NewInt(0)
			}
			return e.writeWord(c, p[1], balance)
		},
		"_evm_callvalue": func(c Caller, p, _ []opcode.UntypedValue) error {
			return e.writeWord(c, p[0], e.CallValue)
		},
		"_evm_gasprice": func(c Caller, p, _ []opcode.UntypedValue) error {
			return e.writeWord(c, p[0], e.GasPrice)
		},
		"_evm_basefee": func(c Caller, p, _ []opcode.UntypedValue) error {
			return e.writeWord(c, p[0], e.BaseFee)
		},
		"_evm_chainid": func(c Caller, p, _ []opcode.UntypedValue) error {
			return e.writeWord(c, p[0], e.ChainID)
		},
		"_evm_calldataload": func(c Caller, p, _ []opcode.UntypedValue) error {
			var word [common.HashLength]byte
			copyPadded(word[:], e.CallData, p[0].AsU32())
			return c.MemoryWrite(p[1].AsU32(), word[:])
		},
		"_evm_calldatasize": func(_ Caller, _, r []opcode.UntypedValue) error {
			r[0] = opcode.FromU32(uint32(len(e.CallData)))
			return nil
		},
		"_evm_calldatacopy": func(c Caller, p, _ []opcode.UntypedValue) error {
			buf := make([]byte, p[2].AsU32())
			copyPadded(buf, e.CallData, p[1].AsU32())
			return c.MemoryWrite(p[0].AsU32(), buf)
		},
		"_evm_codesize": func(_ Caller, _, r []opcode.UntypedValue) error {
			r[0] = opcode.FromU32(uint32(len(e.Code)))
			return nil
		},
		"_evm_codecopy": func(c Caller, p, _ []opcode.UntypedValue) error {
			buf := make([]byte, p[2].AsU32())
			copyPadded(buf, e.Code, p[1].AsU32())
			return c.MemoryWrite(p[0].AsU32(), buf)
		},
		"_evm_extcodesize": func(c Caller, p, r []opcode.UntypedValue) error {
			addr, err := e.readAddress(c, p[0])
			if err != nil {
				return err
			}
			r[0] = opcode.FromU32(uint32(len(e.ExtCode[addr])))
			return nil
		},
		"_evm_extcodecopy": func(c Caller, p, _ []opcode.UntypedValue) error {
			addr, err := e.readAddress(c, p[0])
			if err != nil {
				return err
			}
			buf := make([]byte, p[3].AsU32())
			copyPadded(buf, e.ExtCode[addr], p[2].AsU32())
			return c.MemoryWrite(p[1].AsU32(), buf)
		},
		"_evm_extcodehash": func(c Caller, p, _ []opcode.UntypedValue) error {
			addr, err := e.readAddress(c, p[0])
			if err != nil {
				return err
			}
			if code, ok := e.ExtCode[addr]; ok {
				return c.MemoryWrite(p[1].AsU32(), crypto.Keccak256(code))
			}
			return c.MemoryWrite(p[1].AsU32(), common.Hash{}.Bytes())
		},
		"_evm_returndatasize": func(_ Caller, _, r []opcode.UntypedValue) error {
			r[0] = opcode.FromU32(uint32(len(e.ReturnData)))
			return nil
		},
		"_evm_returndatacopy": func(c Caller, p, _ []opcode.UntypedValue) error {
			buf := make([]byte, p[2].AsU32())
			copyPadded(buf, e.ReturnData, p[1].AsU32())
			return c.MemoryWrite(p[0].AsU32(), buf)
		},
		"_evm_blockhash": func(c Caller, p, _ []opcode.UntypedValue) error {
			var hash common.Hash
			if e.BlockHash != nil {
				hash = e.BlockHash(p[0].AsU64())
			}
			return c.MemoryWrite(p[1].AsU32(), hash.Bytes())
		},
		"_evm_timestamp": func(_ Caller, _, r []opcode.UntypedValue) error {
			r[0] = opcode.UntypedValue(e.Timestamp)
			return nil
		},
		"_evm_number": func(_ Caller, _, r []opcode.UntypedValue) error {
			r[0] = opcode.UntypedValue(e.Number)
			return nil
		},
		"_evm_gaslimit": func(_ Caller, _, r []opcode.UntypedValue) error {
			r[0] = opcode.UntypedValue(e.GasLimit)
			return nil
		},
		"_evm_difficulty": func(c Caller, p, _ []opcode.UntypedValue) error {
			return c.MemoryWrite(p[0].AsU32(), e.Difficulty.Bytes())
		},
		"_evm_sload": func(c Caller, p, _ []opcode.UntypedValue) error {
			key, err := e.readWord(c, p[0])
			if err != nil {
				return err
			}
			value := e.Storage[key]
			return c.MemoryWrite(p[1].AsU32(), value.Bytes())
		},
		"_evm_sstore": func(c Caller, p, _ []opcode.UntypedValue) error {
			key, err := e.readWord(c, p[0])
			if err != nil {
				return err
			}
			value, err := e.readWord(c, p[1])
			if err != nil {
				return err
			}
			e.Storage[key] = value
			return nil
		},
		"_evm_selfdestruct": func(c Caller, p, _ []opcode.UntypedValue) error {
			addr, err := e.readAddress(c, p[0])
			if err != nil {
				return err
			}
			e.Destructed = true
			e.Beneficiary = addr
			return nil
		},
	}

	for n := 0; n <= 4; n++ {
		name := "_evm_log" + string(rune('0'+n))
		topics := n
		fns[name] = func(c Caller, p, _ []opcode.UntypedValue) error {
			data, err := c.MemoryRead(p[0].AsU32(), p[1].AsU32())
			if err != nil {
				return err
			}
			record := LogRecord{Data: append([]byte(nil), data...)}
			for i := 0; i < topics; i++ {
				topic, err := e.readWord(c, p[2+i])
				if err != nil {
					return err
				}
				record.Topics = append(record.Topics, topic)
			}
			e.Logs = append(e.Logs, record)
			return nil
		}
	}

	// Nested calls and creates are accepted but not executed: the callee
	// world does not exist in the reference context, so they only clear
	// the return data buffer the way a failed call would.
	noopCall := func(_ Caller, _, r []opcode.UntypedValue) error {
		e.ReturnData = nil
		if len(r) > 0 {
			r[0] = 0
		}
		return nil
	}
	for _, name := range []string{
		"_evm_create", "_evm_call", "_evm_callcode",
		"_evm_delegatecall", "_evm_create2", "_evm_staticcall",
	} {
		fns[name] = noopCall
	}

	for name, fn := range fns {
		if err := l.DefineFunction("env", name, fn); err != nil {
			return err
		}
	}
	return nil
}
