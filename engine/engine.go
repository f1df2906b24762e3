package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/zkvmlabs/wasm-tracer/compiler"
	"github.com/zkvmlabs/wasm-tracer/errors"
	"github.com/zkvmlabs/wasm-tracer/hostcall"
	"github.com/zkvmlabs/wasm-tracer/opcode"
	"github.com/zkvmlabs/wasm-tracer/tracer"
)

// Engine glues the pipeline together: it owns one Store, a loaded
// CompiledModule and the metadata the compiler produced, and drives one
// traced run of the "main" entrypoint.
//
// The engine mutex guards the phases around execution (instantiation,
// memory scan, serialization). It is deliberately NOT held while guest
// code runs: host functions may call back into the engine, and an
// exclusion span covering the host call would deadlock.
type Engine struct {
	mu  sync.Mutex
	cfg config

	module *compiler.CompiledModule
	funcs  []compiler.FuncInfo
	// function index -> entry opcode position, and its inverse
	entries  map[uint32]uint32
	entryFor map[uint32]uint32
	tables   [][]uint32

	mainIndex uint32
	hasMain   bool
	hasStart  bool
	startIdx  uint32

	store         *Store
	linker        *hostcall.Linker
	fuelRemaining uint64
	instantiated  bool
}

// NewFromWasm compiles a wasm binary through the full pipeline
// (translate, finalize, load) and prepares an engine around the result.
func NewFromWasm(wasmBinary []byte, opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	var compilerOpts []compiler.Option
	if cfg.fuelMetering {
		compilerOpts = append(compilerOpts, compiler.WithFuelMetering())
	}
	c, err := compiler.New(wasmBinary, compilerOpts...)
	if err != nil {
		return nil, err
	}
	if err := c.Translate(); err != nil {
		return nil, err
	}
	flat, err := c.Finalize()
	if err != nil {
		return nil, err
	}
	module, err := compiler.Load(flat)
	if err != nil {
		return nil, err
	}
	pages, err := c.MemoryPages()
	if err != nil {
		return nil, err
	}

	if pages > cfg.initialPages {
		cfg.initialPages = pages
	}

	memory, err := NewMemory(cfg.initialPages, cfg.maxPages)
	if err != nil {
		return nil, err
	}
	numGlobals := c.NumGlobals()
	if loaded := module.NumGlobals(); loaded > numGlobals {
		numGlobals = loaded
	}

	e := &Engine{
		cfg:      cfg,
		module:   module,
		funcs:    c.Funcs(),
		entries:  c.FunctionMapping(),
		entryFor: make(map[uint32]uint32),
		tables:   c.Tables(),
		store:    NewStore(memory, numGlobals),
		linker:   hostcall.NewLinker(),
	}
	for fnIndex, entry := range e.entries {
		e.entryFor[entry] = fnIndex
	}
	e.mainIndex, e.hasMain = c.MainIndex()
	e.startIdx, e.hasStart = c.StartIndex()
	e.fuelRemaining = cfg.fuelLimit
	return e, nil
}

// NewFromBinary wraps an already-compiled flat binary. Without compiler
// metadata there is no entrypoint or function table, so ComputeTrace
// executes the whole binary from position zero; indirect calls are
// unavailable.
func NewFromBinary(flat []byte, opts ...Option) (*Engine, error) {
	module, err := compiler.Load(flat)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	memory, err := NewMemory(cfg.initialPages, cfg.maxPages)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		module:   module,
		entries:  make(map[uint32]uint32),
		entryFor: make(map[uint32]uint32),
		store:    NewStore(memory, module.NumGlobals()),
		linker:   hostcall.NewLinker(),
	}
	e.fuelRemaining = cfg.fuelLimit
	return e, nil
}

// Linker returns the engine's host function linker.
func (e *Engine) Linker() *hostcall.Linker { return e.linker }

// Tracer returns the store's tracer, for extern-name registration and
// the streaming callback.
func (e *Engine) Tracer() *tracer.Tracer { return e.store.Tracer }

// Module returns the loaded compiled module.
func (e *Engine) Module() *compiler.CompiledModule { return e.module }

// MemoryData returns a copy of the current linear memory.
func (e *Engine) MemoryData() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]byte(nil), e.store.Memory.Data()...)
}

// TraceMemoryChange records an externally performed memory mutation, for
// embedders that write guest memory from outside a host call.
func (e *Engine) TraceMemoryChange(offset, length uint32, data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Tracer.MemoryChange(offset, length, data)
}

// instantiate executes the initialization prefix (global and
// data-segment stores) untraced, runs the start function if the module
// declares one, and records the resulting globals.
func (e *Engine) instantiate() error {
	if e.instantiated {
		return nil
	}
	// the initialization prefix spans [0, main entry); without compiler
	// metadata there is no prefix to run
	if e.hasMain {
		entry, ok := e.entries[e.mainIndex]
		if !ok {
			return errors.MissingFunction(errors.PhaseRun, e.mainIndex)
		}
		init := newVM(e)
		if err := init.run(int(entry)); err != nil {
			return err
		}
	}
	if e.hasStart {
		entry, ok := e.entries[e.startIdx]
		if !ok {
			return errors.MissingFunction(errors.PhaseRun, e.startIdx)
		}
		start := newVM(e)
		start.pc = int(entry)
		if err := start.run(len(e.module.Bytecode())); err != nil {
			return err
		}
	}
	for i, value := range e.store.Globals {
		e.store.Tracer.GlobalVariable(value, opcode.Index(i))
	}
	e.instantiated = true
	return nil
}

// scanGlobalMemory walks linear memory and records every maximal run of
// consecutive nonzero bytes as an initial-image chunk. A zero byte is a
// separator even between nonzero neighbors.
func (e *Engine) scanGlobalMemory() {
	data := e.store.Memory.Data()
	for i := 0; i < len(data); {
		if data[i] == 0 {
			i++
			continue
		}
		start := i
		for i < len(data) && data[i] != 0 {
			i++
		}
		e.store.Tracer.GlobalMemory(uint32(start), uint32(i-start), data[start:i])
	}
}

// ComputeTrace instantiates the module, primes the memory and global
// records, runs "main" with tracing enabled and returns the trace JSON.
// The engine lock is released while guest code runs.
func (e *Engine) ComputeTrace() ([]byte, error) {
	e.mu.Lock()
	if err := e.instantiate(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.scanGlobalMemory()

	run := newVM(e)
	run.tracing = true
	if e.hasMain {
		entry := e.entries[e.mainIndex]
		run.pc = int(entry)
		run.enterFunction(e.mainIndex)
	}
	e.mu.Unlock()

	// no lock from here: host functions may re-enter the engine
	if err := run.run(len(e.module.Bytecode())); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	Logger().Debug("trace complete",
		zap.Uint32("opcodes", run.step),
		zap.Int("stack", len(run.stack)))
	return e.store.Tracer.ToJSON()
}
