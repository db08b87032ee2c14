// Package ulogtest builds ULog files in memory for tests. The builder writes bytes directly and
// does not share code with the encode package, so it can check the encoder too.
package ulogtest

import (
	"encoding/binary"
	"math"
)

// Magic is the ULog file magic.
var Magic = []byte{0x55, 0x4C, 0x6F, 0x67, 0x01, 0x12, 0x35}

// Builder accumulates a ULog file record by record.
type Builder struct {
	buf []byte
}

// New returns a builder that starts with a file header.
func New(version uint8, timestamp uint64) *Builder {
	b := &Builder{}
	b.buf = append(b.buf, Magic...)
	b.buf = append(b.buf, version)
	b.buf = binary.LittleEndian.AppendUint64(b.buf, timestamp)
	return b
}

// Empty returns a builder with no header.
func Empty() *Builder {
	return &Builder{}
}

// Bytes returns the file built so far.
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf...)
}

// Len returns the size of the file built so far.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Raw appends bytes without framing.
func (b *Builder) Raw(raw ...byte) *Builder {
	b.buf = append(b.buf, raw...)
	return b
}

// Record appends a framed record with the concatenation of `parts` as its content.
func (b *Builder) Record(tag byte, parts ...[]byte) *Builder {
	size := 0
	for _, part := range parts {
		size += len(part)
	}
	b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(size))
	b.buf = append(b.buf, tag)
	for _, part := range parts {
		b.buf = append(b.buf, part...)
	}
	return b
}

// FlagBits appends a flag bits record.
func (b *Builder) FlagBits(compat, incompat [8]byte, offsets [3]uint64) *Builder {
	return b.Record('B', compat[:], incompat[:], U64(offsets[0]), U64(offsets[1]), U64(offsets[2]))
}

// Format appends a format record.
func (b *Builder) Format(definition string) *Builder {
	return b.Record('F', []byte(definition))
}

// Subscribe appends an add subscription record.
func (b *Builder) Subscribe(multiID uint8, msgID uint16, name string) *Builder {
	return b.Record('A', U8(multiID), U16(msgID), []byte(name))
}

// Unsubscribe appends a remove subscription record.
func (b *Builder) Unsubscribe(msgID uint16) *Builder {
	return b.Record('R', U16(msgID))
}

// Data appends a logged data record.
func (b *Builder) Data(msgID uint16, fields ...[]byte) *Builder {
	return b.Record('D', append([][]byte{U16(msgID)}, fields...)...)
}

// Info appends an info record. `key` is "type name".
func (b *Builder) Info(key string, value []byte) *Builder {
	return b.Record('I', U8(uint8(len(key))), []byte(key), value)
}

// MultiInfo appends a multi info record.
func (b *Builder) MultiInfo(continued bool, key string, value []byte) *Builder {
	return b.Record('M', Bool(continued), U8(uint8(len(key))), []byte(key), value)
}

// Param appends a parameter record.
func (b *Builder) Param(key string, value []byte) *Builder {
	return b.Record('P', U8(uint8(len(key))), []byte(key), value)
}

// DefaultParam appends a default parameter record.
func (b *Builder) DefaultParam(defaultTypes uint8, key string, value []byte) *Builder {
	return b.Record('Q', U8(defaultTypes), U8(uint8(len(key))), []byte(key), value)
}

// Log appends a logged string record.
func (b *Builder) Log(level byte, timestamp uint64, text string) *Builder {
	return b.Record('L', U8(level), U64(timestamp), []byte(text))
}

// TaggedLog appends a tagged logged string record.
func (b *Builder) TaggedLog(level byte, tag uint16, timestamp uint64, text string) *Builder {
	return b.Record('C', U8(level), U16(tag), U64(timestamp), []byte(text))
}

// Dropout appends a dropout record.
func (b *Builder) Dropout(ms uint16) *Builder {
	return b.Record('O', U16(ms))
}

// Sync appends a sync record.
func (b *Builder) Sync() *Builder {
	return b.Record('S', []byte{0x2F, 0x73, 0x13, 0x20, 0x25, 0x0C, 0xBB, 0x12})
}

// U8 encodes a uint8.
func U8(v uint8) []byte { return []byte{v} }

// I8 encodes an int8.
func I8(v int8) []byte { return []byte{byte(v)} }

// U16 encodes a little-endian uint16.
func U16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }

// I16 encodes a little-endian int16.
func I16(v int16) []byte { return U16(uint16(v)) }

// U32 encodes a little-endian uint32.
func U32(v uint32) []byte { return binary.LittleEndian.AppendUint32(nil, v) }

// I32 encodes a little-endian int32.
func I32(v int32) []byte { return U32(uint32(v)) }

// U64 encodes a little-endian uint64.
func U64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

// I64 encodes a little-endian int64.
func I64(v int64) []byte { return U64(uint64(v)) }

// F32 encodes a little-endian float.
func F32(v float32) []byte { return U32(math.Float32bits(v)) }

// F64 encodes a little-endian double.
func F64(v float64) []byte { return U64(math.Float64bits(v)) }

// Bool encodes a bool as 0 or 1.
func Bool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// Zeros returns n zero bytes, e.g. for padding.
func Zeros(n int) []byte { return make([]byte, n) }
