package compiler

import (
	"bytes"
	gobinary "encoding/binary"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/go-interpreter/wagon/validate"
	"github.com/go-interpreter/wagon/wasm"
	"go.uber.org/zap"

	"github.com/zkvmlabs/wasm-tracer/binary"
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/hostcall"
	"github.com/zkvmlabs/wasm-tracer/opcode"
)

// FuncInfo is the per-function metadata the compiler hands to the engine
// facade: entry positions for calls, arities for indirect-call checks,
// and the numbers the tracer reports on function entry.
type FuncInfo struct {
	Index          uint32
	TypeIndex      uint32
	NumParams      uint32
	NumResults     uint32
	NumLocals      uint32
	MaxStackHeight uint32
	Name           string
	Host           bool
	HostIndex      opcode.Index
}

// Compiler lowers one parsed module into flat bytecode. A Compiler is
// single use: Translate builds the instruction set and Finalize consumes
// it.
type Compiler struct {
	module *wasm.Module
	linker *hostcall.Linker

	code            *opcode.InstructionSet
	functionMapping map[uint32]uint32
	callMapping     map[uint32]uint32

	numImportFuncs   uint32
	numImportGlobals uint32
	funcs            []FuncInfo
	mainIndex        uint32
	hasMain          bool

	fuelMetering bool
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithFuelMetering enables ConsumeFuel checkpoints at function entries.
// Disabled by default.
func WithFuelMetering() Option {
	return func(c *Compiler) { c.fuelMetering = true }
}

// New parses and validates a wasm binary and prepares it for
// translation. Host imports are resolved against the host-call registry;
// any other import fails translation.
func New(wasmBinary []byte, opts ...Option) (*Compiler, error) {
	module, err := wasm.ReadModule(bytes.NewReader(wasmBinary), hostModuleResolver)
	if err != nil {
		var notFound wasm.ExportNotFoundError
		if stderrors.As(err, &notFound) {
			return nil, errors.UnsupportedImport(notFound.ModuleName, notFound.FieldName)
		}
		return nil, errors.Translation(err)
	}
	c := &Compiler{
		module:          module,
		linker:          hostcall.NewLinker(),
		code:            opcode.NewInstructionSet(),
		functionMapping: make(map[uint32]uint32),
		callMapping:     make(map[uint32]uint32),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.fixImportedSignatures(); err != nil {
		return nil, err
	}
	if err := validate.VerifyModule(module); err != nil {
		return nil, errors.Translation(err)
	}
	if err := c.collectFuncInfo(); err != nil {
		return nil, err
	}
	return c, nil
}

// hostModuleResolver satisfies wasm.ResolveFunc with a synthetic module
// exporting every host function the registry knows for the requested
// namespace. The stub signatures are placeholders; fixImportedSignatures
// replaces them with the importing module's declared types before
// validation.
func hostModuleResolver(name string) (*wasm.Module, error) {
	fields, ok := hostcall.Imports()[name]
	if !ok {
		return nil, errors.UnsupportedImport(name, "*")
	}
	m := wasm.NewModule()
	m.Types = &wasm.SectionTypes{Entries: []wasm.FunctionSig{{Form: 0}}}
	m.Export = &wasm.SectionExports{Entries: make(map[string]wasm.ExportEntry)}
	stub := func() {}
	for i, field := range fields {
		m.FunctionIndexSpace = append(m.FunctionIndexSpace, wasm.Function{
			Sig:  &m.Types.Entries[0],
			Host: reflect.ValueOf(stub),
			Body: &wasm.FunctionBody{},
		})
		m.Export.Entries[field] = wasm.ExportEntry{
			FieldStr: field,
			Kind:     wasm.ExternalFunction,
			Index:    uint32(i),
		}
	}
	return m, nil
}

// fixImportedSignatures rewrites the imported functions' signatures from
// the importing module's own type section and counts the imported
// globals. Imports of other kinds are passed over here; the host resolver
// exports only functions, so they already fail resolution.
func (c *Compiler) fixImportedSignatures() error {
	if c.module.Import == nil {
		return nil
	}
	var funcIdx uint32
	for _, entry := range c.module.Import.Entries {
		switch imported := entry.Type.(type) {
		case wasm.FuncImport:
			if int(imported.Type) >= len(c.module.Types.Entries) {
				return errors.Internal(errors.PhaseTranslate, "import %s.%s references type %d out of range",
					entry.ModuleName, entry.FieldName, imported.Type)
			}
			if int(funcIdx) >= len(c.module.FunctionIndexSpace) {
				return errors.Internal(errors.PhaseTranslate, "unresolved import %s.%s", entry.ModuleName, entry.FieldName)
			}
			c.module.FunctionIndexSpace[funcIdx].Sig = &c.module.Types.Entries[imported.Type]
			funcIdx++
		case wasm.GlobalVarImport:
			c.numImportGlobals++
		}
	}
	c.numImportFuncs = funcIdx
	return nil
}

func (c *Compiler) collectFuncInfo() error {
	exportNames := make(map[uint32]string)
	if c.module.Export != nil {
		for _, entry := range c.module.Export.Entries {
			if entry.Kind == wasm.ExternalFunction {
				exportNames[entry.Index] = entry.FieldStr
			}
		}
	}
	var importPos uint32
	if c.module.Import != nil {
		for _, entry := range c.module.Import.Entries {
			if _, ok := entry.Type.(wasm.FuncImport); !ok {
				continue
			}
			hostIndex, err := hostcall.Resolve(entry.ModuleName, entry.FieldName)
			if err != nil {
				return err
			}
			fn := c.module.FunctionIndexSpace[importPos]
			c.funcs = append(c.funcs, FuncInfo{
				Index:      importPos,
				TypeIndex:  c.typeIndexOf(fn.Sig),
				NumParams:  uint32(len(fn.Sig.ParamTypes)),
				NumResults: uint32(len(fn.Sig.ReturnTypes)),
				Name:       entry.FieldName,
				Host:       true,
				HostIndex:  hostIndex,
			})
			importPos++
		}
	}
	for i := int(c.numImportFuncs); i < len(c.module.FunctionIndexSpace); i++ {
		fn := c.module.FunctionIndexSpace[i]
		var numLocals uint32
		for _, local := range fn.Body.Locals {
			numLocals += local.Count
		}
		name := fn.Name
		if name == "" {
			name = exportNames[uint32(i)]
		}
		if name == "" {
			name = fmt.Sprintf("fn_%d", i)
		}
		c.funcs = append(c.funcs, FuncInfo{
			Index:      uint32(i),
			TypeIndex:  c.typeIndexOf(fn.Sig),
			NumParams:  uint32(len(fn.Sig.ParamTypes)),
			NumResults: uint32(len(fn.Sig.ReturnTypes)),
			NumLocals:  numLocals,
			Name:       name,
		})
	}
	return nil
}

func (c *Compiler) typeIndexOf(sig *wasm.FunctionSig) uint32 {
	for i := range c.module.Types.Entries {
		if &c.module.Types.Entries[i] == sig {
			return uint32(i)
		}
	}
	for i := range c.module.Types.Entries {
		entry := &c.module.Types.Entries[i]
		if reflect.DeepEqual(entry.ParamTypes, sig.ParamTypes) &&
			reflect.DeepEqual(entry.ReturnTypes, sig.ReturnTypes) {
			return uint32(i)
		}
	}
	return 0
}

// Linker returns the compiler's linker for host function registration.
func (c *Compiler) Linker() *hostcall.Linker { return c.linker }

// Funcs returns the collected per-function metadata.
func (c *Compiler) Funcs() []FuncInfo { return c.funcs }

// FunctionMapping returns function index -> entry opcode position for
// every translated function.
func (c *Compiler) FunctionMapping() map[uint32]uint32 { return c.functionMapping }

// MainIndex returns the index of the exported "main" function. Only
// valid after Translate.
func (c *Compiler) MainIndex() (uint32, bool) { return c.mainIndex, c.hasMain }

// StartIndex returns the module's start function index, if any.
func (c *Compiler) StartIndex() (uint32, bool) {
	if c.module.Start == nil {
		return 0, false
	}
	return c.module.Start.Index, true
}

// MemoryPages returns the module's declared initial page count.
func (c *Compiler) MemoryPages() (opcode.Pages, error) {
	if c.module.Memory == nil || len(c.module.Memory.Entries) == 0 {
		return 0, nil
	}
	initial := c.module.Memory.Entries[0].Limits.Initial
	if opcode.Pages(initial) > opcode.MaxPages {
		return 0, errors.MemoryOverflow(uint64(initial)*opcode.PageSize, 0)
	}
	return opcode.Pages(initial), nil
}

// Tables returns the populated table index spaces (function indices).
func (c *Compiler) Tables() [][]uint32 { return c.module.TableIndexSpace }

// NumGlobals returns the total number of globals, imported included.
func (c *Compiler) NumGlobals() uint32 {
	return uint32(len(c.module.GlobalIndexSpace))
}

// Translate lowers the whole module: global and data-segment
// initialization first, then the "main" entrypoint, then every other
// local function in index order.
func (c *Compiler) Translate() error {
	if err := c.translateGlobals(); err != nil {
		return err
	}
	if err := c.translateMemory(); err != nil {
		return err
	}
	mainIndex, err := c.resolveMain()
	if err != nil {
		return err
	}
	c.mainIndex, c.hasMain = mainIndex, true
	if err := c.translateFunction(mainIndex); err != nil {
		return err
	}
	for i := c.numImportFuncs; i < uint32(len(c.module.FunctionIndexSpace)); i++ {
		if i == mainIndex {
			continue
		}
		if err := c.translateFunction(i); err != nil {
			return err
		}
	}
	return nil
}

// TranslateWithoutEntrypoint lowers every function with no "main"
// requirement, for library-style modules.
func (c *Compiler) TranslateWithoutEntrypoint() error {
	if err := c.translateGlobals(); err != nil {
		return err
	}
	if err := c.translateMemory(); err != nil {
		return err
	}
	for i := c.numImportFuncs; i < uint32(len(c.module.FunctionIndexSpace)); i++ {
		if err := c.translateFunction(i); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) resolveMain() (uint32, error) {
	if c.module.Export == nil {
		return 0, errors.MissingEntrypoint()
	}
	entry, ok := c.module.Export.Entries["main"]
	if !ok {
		return 0, errors.MissingEntrypoint()
	}
	if entry.Kind != wasm.ExternalFunction {
		return 0, errors.Internal(errors.PhaseTranslate, "unresolved function index")
	}
	return entry.Index, nil
}

// translateGlobals emits `I64Const init; GlobalSet g` for every declared
// (non-imported) global.
func (c *Compiler) translateGlobals() error {
	if c.module.Global == nil {
		return nil
	}
	for i, entry := range c.module.Global.Globals {
		value, err := c.module.ExecInitExpr(entry.Init)
		if err != nil {
			return errors.Internal(errors.PhaseTranslate, "only static global variables supported")
		}
		c.code.OpConstI64(int64(initExprBits(value)))
		c.code.OpGlobalSet(c.numImportGlobals + uint32(i))
	}
	return nil
}

func initExprBits(value interface{}) uint64 {
	switch v := value.(type) {
	case int32:
		return uint64(uint32(v))
	case int64:
		return uint64(v)
	case uint32:
		return uint64(v)
	case uint64:
		return v
	}
	return 0
}

// translateMemory emits store sequences reproducing every active data
// segment. The payload is chunked greedily in 8, 4, 2 and 1-byte pieces;
// each chunk is parsed big-endian and stored through the matching typed
// store, so the emitted code writes the segment bytes exactly.
func (c *Compiler) translateMemory() error {
	if c.module.Data == nil {
		return nil
	}
	for _, segment := range c.module.Data.Entries {
		if segment.Index != 0 {
			return errors.UnsupportedMemory("not zero index")
		}
		offsetValue, err := c.module.ExecInitExpr(segment.Offset)
		if err != nil {
			return errors.UnsupportedMemory("can't eval offset")
		}
		addr := uint32(initExprBits(offsetValue))
		data := segment.Data
		for len(data) > 0 {
			var (
				store opcode.OpCode
				value uint64
				size  uint32
			)
			switch {
			case len(data) >= 8:
				store = opcode.MemAccess(opcode.KindI64Store, 0)
				value = gobinary.BigEndian.Uint64(data)
				size = 8
			case len(data) >= 4:
				store = opcode.MemAccess(opcode.KindI64Store32, 0)
				value = uint64(gobinary.BigEndian.Uint32(data))
				size = 4
			case len(data) >= 2:
				store = opcode.MemAccess(opcode.KindI32Store16, 0)
				value = uint64(gobinary.BigEndian.Uint16(data))
				size = 2
			default:
				store = opcode.MemAccess(opcode.KindI32Store8, 0)
				value = uint64(data[0])
				size = 1
			}
			c.code.OpConstI32(int32(addr))
			c.code.OpConstI64(int64(value))
			c.code.Push(store)
			addr += size
			data = data[size:]
		}
	}
	return nil
}

// translateFunction lowers one local function body and records its entry
// opcode position.
func (c *Compiler) translateFunction(fnIndex uint32) error {
	if fnIndex < c.numImportFuncs {
		// imported functions have no body to translate
		return nil
	}
	if int(fnIndex) >= len(c.module.FunctionIndexSpace) {
		return errors.MissingFunction(errors.PhaseTranslate, fnIndex)
	}
	fn := c.module.FunctionIndexSpace[fnIndex]
	entry := c.code.Len()
	c.functionMapping[fnIndex] = entry
	var fuelPos uint32
	if c.fuelMetering {
		fuelPos = c.code.OpConsumeFuel(1)
	}
	lowering, err := newFuncLowering(c, fnIndex, fn)
	if err != nil {
		return err
	}
	if err := lowering.run(); err != nil {
		return err
	}
	if c.fuelMetering {
		// charge one unit per lowered opcode on function entry
		fuel := c.code.At(fuelPos)
		fuel.BumpFuelConsumption(uint64(c.code.Len() - entry - 1))
		c.code.Set(fuelPos, fuel)
	}
	c.funcs[fnIndex].MaxStackHeight = lowering.maxStackHeight()
	Logger().Debug("translated function",
		zap.Uint32("fn_index", fnIndex),
		zap.Uint32("entry", entry),
		zap.Uint32("opcodes", c.code.Len()-entry))
	return nil
}

// translateCall lowers a direct call site. Host imports resolve through
// the registry into CallHost, local targets leave a placeholder and
// record the target in the call mapping for Finalize.
//
// A tail call expands its drop-keep first (the caller frame is gone
// before control transfers), then lowers to a Br placeholder resolved
// through the same call mapping: the callee body is entered by a branch
// instead of a call frame push. A tail call to a host import performs
// the host call and returns.
func (c *Compiler) translateCall(fnIndex uint32, dropKeep opcode.DropKeep, tail bool) error {
	if tail {
		translateDropKeep(c.code, dropKeep)
	}
	if fnIndex >= c.numImportFuncs {
		var pos uint32
		if tail {
			pos = c.code.OpBr(opcode.BranchParams{})
		} else {
			pos = c.code.OpCall(0)
		}
		c.callMapping[pos] = fnIndex
		return nil
	}
	if int(fnIndex) >= len(c.funcs) || !c.funcs[fnIndex].Host {
		return errors.UnsupportedImport("", fmt.Sprintf("function %d", fnIndex))
	}
	c.code.OpCallHost(c.funcs[fnIndex].HostIndex)
	if tail {
		c.code.OpReturn(opcode.DropKeep{})
	}
	return nil
}

// Finalize encodes the instruction set, rewrites every relocatable jump
// destination to its target's absolute byte offset, and returns the flat
// binary. Fixed-width operands guarantee re-encoding never changes an
// instruction's size. The compiler is consumed.
func (c *Compiler) Finalize() ([]byte, error) {
	if c.code == nil {
		return nil, errors.Internal(errors.PhaseTranslate, "compiler already finalized")
	}
	ops := c.code.Finalize()
	c.code = nil

	type state struct {
		offset uint32
		size   uint32
		buf    []byte
	}
	states := make([]state, len(ops))
	var bufferOffset uint32
	for i, op := range ops {
		if !op.Kind.Encodable() {
			return nil, errors.Internal(errors.PhaseEncode, "%s at %d has no binary encoding", op.Kind, i)
		}
		buf, err := binary.AppendOpCode(nil, op)
		if err != nil {
			return nil, err
		}
		states[i] = state{offset: bufferOffset, size: uint32(len(buf)), buf: buf}
		bufferOffset += uint32(len(buf))
	}

	for i, op := range ops {
		var label int64
		if fnIndex, ok := c.callMapping[uint32(i)]; ok {
			entry, ok := c.functionMapping[fnIndex]
			if !ok {
				return nil, errors.MissingFunction(errors.PhaseTranslate, fnIndex)
			}
			label = int64(entry)
		} else if offset, ok := op.RelocationOffset(); ok {
			label = int64(i) + int64(offset)
		} else {
			continue
		}
		if label < 0 || label >= int64(len(states)) {
			return nil, errors.OutOfBuffer(errors.PhaseTranslate)
		}
		rewritten := op.WithRelocationOffset(opcode.JumpDest(states[label].offset))
		buf, err := binary.AppendOpCode(nil, rewritten)
		if err != nil {
			return nil, err
		}
		if uint32(len(buf)) != states[i].size {
			return nil, errors.Internal(errors.PhaseEncode, "relocation changed instruction size at %d", i)
		}
		states[i].buf = buf
	}

	out := make([]byte, 0, bufferOffset)
	for _, s := range states {
		out = append(out, s.buf...)
	}
	return out, nil
}
