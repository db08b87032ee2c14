// Package wire contains the low level byte readers used to decode ULog records: a Source over
// the whole input stream and a Cursor over the payload of a single record.
//
// All multi-byte values in a ULog file are little-endian.
package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	// ErrOutOfBounds is returned when a read asks for more bytes than a payload has left.
	ErrOutOfBounds = errors.New("read past the end of the message payload")
	// ErrInvalidUTF8 is returned when a string field does not hold valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string field")
)

// Cursor is a bounded, position-tracking reader over one message payload. The zero value is an
// empty cursor.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a cursor positioned at the first byte of `buf`. The cursor does not copy
// `buf`; callers must not modify it while the cursor is in use.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Empty reports whether every byte has been read.
func (c *Cursor) Empty() bool {
	return c.Remaining() == 0
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int {
	return c.pos
}

// Advance returns the next `n` bytes and moves past them. The returned slice aliases the
// cursor's buffer. It fails iff `n` is larger than Remaining.
func (c *Cursor) Advance(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, errors.Wrapf(ErrOutOfBounds, "wanted %d bytes at offset %d, %d remaining", n, c.pos, c.Remaining())
	}
	ret := c.buf[c.pos : c.pos+n]
	c.pos += n
	return ret, nil
}

// Skip moves past `n` bytes without returning them.
func (c *Cursor) Skip(n int) error {
	_, err := c.Advance(n)
	return err
}

// RemainingBytes consumes the cursor and returns a copy of every unread byte. Used to keep
// payloads that are not decoded.
func (c *Cursor) RemainingBytes() []byte {
	ret := make([]byte, c.Remaining())
	copy(ret, c.buf[c.pos:])
	c.pos = len(c.buf)
	return ret
}

// Bytes returns a copy of the next `n` bytes.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	raw, err := c.Advance(n)
	if err != nil {
		return nil, err
	}
	ret := make([]byte, n)
	copy(ret, raw)
	return ret, nil
}

// String decodes the next `n` bytes as UTF-8.
func (c *Cursor) String(n int) (string, error) {
	raw, err := c.Advance(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", errors.Wrapf(ErrInvalidUTF8, "%d bytes at offset %d", n, c.pos-n)
	}
	return string(raw), nil
}

// Uint8 reads one byte.
func (c *Cursor) Uint8() (uint8, error) {
	raw, err := c.Advance(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// Uint16 reads a little-endian uint16.
func (c *Cursor) Uint16() (uint16, error) {
	raw, err := c.Advance(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// Uint32 reads a little-endian uint32.
func (c *Cursor) Uint32() (uint32, error) {
	raw, err := c.Advance(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// Uint64 reads a little-endian uint64.
func (c *Cursor) Uint64() (uint64, error) {
	raw, err := c.Advance(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

// Int8 reads one byte as a two's complement integer.
func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err
}

// Int16 reads a little-endian int16.
func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err
}

// Int32 reads a little-endian int32.
func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err
}

// Int64 reads a little-endian int64.
func (c *Cursor) Int64() (int64, error) {
	v, err := c.Uint64()
	return int64(v), err
}

// Float32 reads a little-endian IEEE 754 float.
func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()
	return math.Float32frombits(v), err
}

// Float64 reads a little-endian IEEE 754 double.
func (c *Cursor) Float64() (float64, error) {
	v, err := c.Uint64()
	return math.Float64frombits(v), err
}

// Bool reads one byte. Any non-zero value is true.
func (c *Cursor) Bool() (bool, error) {
	v, err := c.Uint8()
	return v != 0, err
}

// Char reads one byte of character data. ULog chars are raw bytes, not runes.
func (c *Cursor) Char() (byte, error) {
	return c.Uint8()
}
