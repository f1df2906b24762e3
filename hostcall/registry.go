package hostcall

import (
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// Reserved host function indices. EVM-compatible host functions start at
// 0xEE01; the range is fixed and shared with the circuit side, so the
// assignments below must never be renumbered.
const (
	ImportEvmStop           opcode.Index = 0xEE01
	ImportEvmReturn         opcode.Index = 0xEE02
	ImportEvmKeccak256      opcode.Index = 0xEE03
	ImportEvmAddress        opcode.Index = 0xEE04
	ImportEvmBalance        opcode.Index = 0xEE05
	ImportEvmOrigin         opcode.Index = 0xEE06
	ImportEvmCaller         opcode.Index = 0xEE07
	ImportEvmCallValue      opcode.Index = 0xEE08
	ImportEvmCallDataLoad   opcode.Index = 0xEE09
	ImportEvmCallDataSize   opcode.Index = 0xEE0A
	ImportEvmCallDataCopy   opcode.Index = 0xEE0B
	ImportEvmCodeSize       opcode.Index = 0xEE0C
	ImportEvmCodeCopy       opcode.Index = 0xEE0D
	ImportEvmGasPrice       opcode.Index = 0xEE0E
	ImportEvmExtCodeSize    opcode.Index = 0xEE0F
	ImportEvmExtCodeCopy    opcode.Index = 0xEE10
	ImportEvmExtCodeHash    opcode.Index = 0xEE11
	ImportEvmReturnDataSize opcode.Index = 0xEE12
	ImportEvmReturnDataCopy opcode.Index = 0xEE13
	ImportEvmBlockHash      opcode.Index = 0xEE14
	ImportEvmCoinbase       opcode.Index = 0xEE15
	ImportEvmTimestamp      opcode.Index = 0xEE16
	ImportEvmNumber         opcode.Index = 0xEE17
	ImportEvmDifficulty     opcode.Index = 0xEE18
	ImportEvmGasLimit       opcode.Index = 0xEE19
	ImportEvmChainID        opcode.Index = 0xEE1A
	ImportEvmBaseFee        opcode.Index = 0xEE1B
	ImportEvmSLoad          opcode.Index = 0xEE1C
	ImportEvmSStore         opcode.Index = 0xEE1D
	ImportEvmLog0           opcode.Index = 0xEE1E
	ImportEvmLog1           opcode.Index = 0xEE1F
	ImportEvmLog2           opcode.Index = 0xEE20
	ImportEvmLog3           opcode.Index = 0xEE21
	ImportEvmLog4           opcode.Index = 0xEE22
	ImportEvmCreate         opcode.Index = 0xEE23
	ImportEvmCall           opcode.Index = 0xEE24
	ImportEvmCallCode       opcode.Index = 0xEE25
	ImportEvmDelegateCall   opcode.Index = 0xEE26
	ImportEvmCreate2        opcode.Index = 0xEE27
	ImportEvmStaticCall     opcode.Index = 0xEE28
	ImportEvmRevert         opcode.Index = 0xEE29
	ImportEvmSelfDestruct   opcode.Index = 0xEE2A
)

// Signature describes the wasm-level arity of a host function.
type Signature struct {
	Index      opcode.Index
	NumParams  int
	NumResults int
}

type importKey struct {
	module string
	field  string
}

var registry = map[importKey]Signature{
	{"env", "_evm_stop"}:           {ImportEvmStop, 0, 0},
	{"env", "_evm_return"}:         {ImportEvmReturn, 2, 0},
	{"env", "_evm_keccak256"}:      {ImportEvmKeccak256, 3, 0},
	{"env", "_evm_address"}:        {ImportEvmAddress, 1, 0},
	{"env", "_evm_balance"}:        {ImportEvmBalance, 2, 0},
	{"env", "_evm_origin"}:         {ImportEvmOrigin, 1, 0},
	{"env", "_evm_caller"}:         {ImportEvmCaller, 1, 0},
	{"env", "_evm_callvalue"}:      {ImportEvmCallValue, 1, 0},
	{"env", "_evm_calldataload"}:   {ImportEvmCallDataLoad, 2, 0},
	{"env", "_evm_calldatasize"}:   {ImportEvmCallDataSize, 0, 1},
	{"env", "_evm_calldatacopy"}:   {ImportEvmCallDataCopy, 3, 0},
	{"env", "_evm_codesize"}:       {ImportEvmCodeSize, 0, 1},
	{"env", "_evm_codecopy"}:       {ImportEvmCodeCopy, 3, 0},
	{"env", "_evm_gasprice"}:       {ImportEvmGasPrice, 1, 0},
	{"env", "_evm_extcodesize"}:    {ImportEvmExtCodeSize, 1, 1},
	{"env", "_evm_extcodecopy"}:    {ImportEvmExtCodeCopy, 4, 0},
	{"env", "_evm_extcodehash"}:    {ImportEvmExtCodeHash, 2, 0},
	{"env", "_evm_returndatasize"}: {ImportEvmReturnDataSize, 0, 1},
	{"env", "_evm_returndatacopy"}: {ImportEvmReturnDataCopy, 3, 0},
	{"env", "_evm_blockhash"}:      {ImportEvmBlockHash, 2, 0},
	{"env", "_evm_coinbase"}:       {ImportEvmCoinbase, 1, 0},
	{"env", "_evm_timestamp"}:      {ImportEvmTimestamp, 0, 1},
	{"env", "_evm_number"}:         {ImportEvmNumber, 0, 1},
	{"env", "_evm_difficulty"}:     {ImportEvmDifficulty, 1, 0},
	{"env", "_evm_gaslimit"}:       {ImportEvmGasLimit, 0, 1},
	{"env", "_evm_chainid"}:        {ImportEvmChainID, 1, 0},
	{"env", "_evm_basefee"}:        {ImportEvmBaseFee, 1, 0},
	{"env", "_evm_sload"}:          {ImportEvmSLoad, 2, 0},
	{"env", "_evm_sstore"}:         {ImportEvmSStore, 2, 0},
	{"env", "_evm_log0"}:           {ImportEvmLog0, 2, 0},
	{"env", "_evm_log1"}:           {ImportEvmLog1, 3, 0},
	{"env", "_evm_log2"}:           {ImportEvmLog2, 4, 0},
	{"env", "_evm_log3"}:           {ImportEvmLog3, 5, 0},
	{"env", "_evm_log4"}:           {ImportEvmLog4, 6, 0},
	{"env", "_evm_create"}:         {ImportEvmCreate, 4, 1},
	{"env", "_evm_call"}:           {ImportEvmCall, 8, 0},
	{"env", "_evm_callcode"}:       {ImportEvmCallCode, 8, 0},
	{"env", "_evm_delegatecall"}:   {ImportEvmDelegateCall, 7, 0},
	{"env", "_evm_create2"}:        {ImportEvmCreate2, 5, 0},
	{"env", "_evm_staticcall"}:     {ImportEvmStaticCall, 7, 0},
	{"env", "_evm_revert"}:         {ImportEvmRevert, 2, 0},
	{"env", "_evm_selfdestruct"}:   {ImportEvmSelfDestruct, 1, 0},
}

var registryByIndex = func() map[opcode.Index]Signature {
	m := make(map[opcode.Index]Signature, len(registry))
	for _, sig := range registry {
		m[sig.Index] = sig
	}
	return m
}()

var namesByIndex = func() map[opcode.Index]string {
	m := make(map[opcode.Index]string, len(registry))
	for key, sig := range registry {
		m[sig.Index] = key.field
	}
	return m
}()

// Resolve maps an import's (module, field) pair to its reserved index.
func Resolve(module, field string) (opcode.Index, error) {
	sig, ok := registry[importKey{module, field}]
	if !ok {
		return 0, errors.UnsupportedImport(module, field)
	}
	return sig.Index, nil
}

// SignatureOf returns the arity of a reserved host index.
func SignatureOf(index opcode.Index) (Signature, bool) {
	sig, ok := registryByIndex[index]
	return sig, ok
}

// NameOf returns the import field name of a reserved host index.
func NameOf(index opcode.Index) (string, bool) {
	name, ok := namesByIndex[index]
	return name, ok
}

// Imports returns every (module, field) pair the registry knows, for
// building import resolvers.
func Imports() map[string][]string {
	out := make(map[string][]string)
	for key := range registry {
		out[key.module] = append(out[key.module], key.field)
	}
	return out
}
