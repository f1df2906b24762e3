package opcode

// InstrMeta ties a decoded opcode back to the flat binary it came from:
// the byte position of its tag and the tag byte itself. The loader emits
// one InstrMeta per decoded opcode, and the tracer copies both values
// into every log record.
type InstrMeta struct {
	SourcePC uint32
	Code     uint16
}
