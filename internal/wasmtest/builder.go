// Package wasmtest builds small WebAssembly binaries by hand for tests.
// The textual format is out of scope for the toolchain, so tests emit
// the binary encoding directly.
package wasmtest

import (
	"bytes"
	"encoding/binary"
)

// Value type encodings.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
	F32 byte = 0x7D
	F64 byte = 0x7C
)

// Section ids.
const (
	secType   byte = 1
	secImport byte = 2
	secFunc   byte = 3
	secMemory byte = 5
	secGlobal byte = 6
	secExport byte = 7
	secStart  byte = 8
	secCode   byte = 10
	secData   byte = 11
)

// Builder accumulates module sections and emits the binary.
type Builder struct {
	types      []funcType
	imports    []funcImport
	funcs      []function
	hasMemory  bool
	memoryMin  uint32
	globals    []global
	exports    []export
	hasStart   bool
	startIndex uint32
	data       []dataSegment
}

type funcType struct {
	params  []byte
	results []byte
}

type funcImport struct {
	module    string
	field     string
	typeIndex uint32
}

type function struct {
	typeIndex uint32
	locals    []localDecl
	body      []byte
}

type localDecl struct {
	count     uint32
	valueType byte
}

type global struct {
	valueType byte
	mutable   bool
	init      []byte
}

type export struct {
	name  string
	kind  byte
	index uint32
}

type dataSegment struct {
	offset uint32
	data   []byte
}

// NewBuilder returns an empty module builder.
func NewBuilder() *Builder { return &Builder{} }

// AddType registers a function type and returns its index.
func (b *Builder) AddType(params, results []byte) uint32 {
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc declares a function import. Imports occupy the lowest
// function indices, so they must all be declared before AddFunc.
func (b *Builder) ImportFunc(module, field string, typeIndex uint32) uint32 {
	b.imports = append(b.imports, funcImport{module: module, field: field, typeIndex: typeIndex})
	return uint32(len(b.imports) - 1)
}

// AddFunc declares a local function from raw body code (without the
// terminating end; it is appended here) and returns its index.
func (b *Builder) AddFunc(typeIndex uint32, body []byte) uint32 {
	b.funcs = append(b.funcs, function{typeIndex: typeIndex, body: body})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// AddLocals attaches count locals of the given type to the most recently
// added function.
func (b *Builder) AddLocals(count uint32, valueType byte) {
	fn := &b.funcs[len(b.funcs)-1]
	fn.locals = append(fn.locals, localDecl{count: count, valueType: valueType})
}

// AddMemory declares a linear memory of min pages.
func (b *Builder) AddMemory(min uint32) { b.hasMemory, b.memoryMin = true, min }

// AddGlobal declares a global with an i32.const or i64.const initializer
// depending on the value type.
func (b *Builder) AddGlobal(valueType byte, mutable bool, init int64) uint32 {
	var expr bytes.Buffer
	if valueType == I64 {
		expr.WriteByte(0x42)
		writeSleb(&expr, init)
	} else {
		expr.WriteByte(0x41)
		writeSleb(&expr, init)
	}
	expr.WriteByte(0x0B)
	b.globals = append(b.globals, global{valueType: valueType, mutable: mutable, init: expr.Bytes()})
	return uint32(len(b.globals) - 1)
}

// ExportFunc exports a function index under the given name.
func (b *Builder) ExportFunc(name string, index uint32) {
	b.exports = append(b.exports, export{name: name, kind: 0, index: index})
}

// ExportMemory exports memory 0 under the given name.
func (b *Builder) ExportMemory(name string) {
	b.exports = append(b.exports, export{name: name, kind: 2, index: 0})
}

// SetStart marks a start function.
func (b *Builder) SetStart(index uint32) { b.hasStart, b.startIndex = true, index }

// AddData declares an active data segment at a constant offset.
func (b *Builder) AddData(offset uint32, data []byte) {
	b.data = append(b.data, dataSegment{offset: offset, data: data})
}

// Build emits the module binary.
func (b *Builder) Build() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6D})
	_ = binary.Write(&out, binary.LittleEndian, uint32(1))

	if len(b.types) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.types)))
		for _, t := range b.types {
			sec.WriteByte(0x60)
			writeUleb(&sec, uint64(len(t.params)))
			sec.Write(t.params)
			writeUleb(&sec, uint64(len(t.results)))
			sec.Write(t.results)
		}
		writeSection(&out, secType, sec.Bytes())
	}
	if len(b.imports) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.imports)))
		for _, imp := range b.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.field)
			sec.WriteByte(0x00)
			writeUleb(&sec, uint64(imp.typeIndex))
		}
		writeSection(&out, secImport, sec.Bytes())
	}
	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.funcs)))
		for _, fn := range b.funcs {
			writeUleb(&sec, uint64(fn.typeIndex))
		}
		writeSection(&out, secFunc, sec.Bytes())
	}
	if b.hasMemory {
		var sec bytes.Buffer
		writeUleb(&sec, 1)
		sec.WriteByte(0x00)
		writeUleb(&sec, uint64(b.memoryMin))
		writeSection(&out, secMemory, sec.Bytes())
	}
	if len(b.globals) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.globals)))
		for _, g := range b.globals {
			sec.WriteByte(g.valueType)
			if g.mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			sec.Write(g.init)
		}
		writeSection(&out, secGlobal, sec.Bytes())
	}
	if len(b.exports) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.exports)))
		for _, e := range b.exports {
			writeName(&sec, e.name)
			sec.WriteByte(e.kind)
			writeUleb(&sec, uint64(e.index))
		}
		writeSection(&out, secExport, sec.Bytes())
	}
	if b.hasStart {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(b.startIndex))
		writeSection(&out, secStart, sec.Bytes())
	}
	if len(b.funcs) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.funcs)))
		for _, fn := range b.funcs {
			var body bytes.Buffer
			writeUleb(&body, uint64(len(fn.locals)))
			for _, local := range fn.locals {
				writeUleb(&body, uint64(local.count))
				body.WriteByte(local.valueType)
			}
			body.Write(fn.body)
			body.WriteByte(0x0B)
			writeUleb(&sec, uint64(body.Len()))
			sec.Write(body.Bytes())
		}
		writeSection(&out, secCode, sec.Bytes())
	}
	if len(b.data) > 0 {
		var sec bytes.Buffer
		writeUleb(&sec, uint64(len(b.data)))
		for _, seg := range b.data {
			writeUleb(&sec, 0)
			sec.WriteByte(0x41)
			writeSleb(&sec, int64(int32(seg.offset)))
			sec.WriteByte(0x0B)
			writeUleb(&sec, uint64(len(seg.data)))
			sec.Write(seg.data)
		}
		writeSection(&out, secData, sec.Bytes())
	}
	return out.Bytes()
}

func writeSection(out *bytes.Buffer, id byte, content []byte) {
	out.WriteByte(id)
	writeUleb(out, uint64(len(content)))
	out.Write(content)
}

func writeName(out *bytes.Buffer, name string) {
	writeUleb(out, uint64(len(name)))
	out.WriteString(name)
}

func writeUleb(out *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func writeSleb(out *bytes.Buffer, v int64) {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			out.WriteByte(b)
			return
		}
		out.WriteByte(b | 0x80)
	}
}
