package wire

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCursorTypedReads(t *testing.T) {
	buf := []byte{
		0xEF, 0xBE, 0xAD, 0xDE, // uint32: 0xDEADBEEF
		0x7F,       // int8: 127
		0xEF, 0xBE, // uint16: 0xBEEF
		0xFF, 0xFF, // int16: -1
		0x2A, 0, 0, 0, 0, 0, 0, 0, // uint64: 42
		0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, // int64: -2
		0, 0, 0x60, 0x40, // float32: 3.5
		0, 0, 0, 0, 0, 0, 0x0C, 0x40, // float64: 3.5
		0x02,      // bool: any non-zero is true
		'x',       // char
		'h', 'i', // string
	}
	c := NewCursor(buf)

	u32, err := c.Uint32()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u32, test.ShouldEqual, uint32(0xDEADBEEF))

	i8, err := c.Int8()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i8, test.ShouldEqual, int8(127))

	u16, err := c.Uint16()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u16, test.ShouldEqual, uint16(0xBEEF))

	i16, err := c.Int16()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i16, test.ShouldEqual, int16(-1))

	u64, err := c.Uint64()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u64, test.ShouldEqual, uint64(42))

	i64, err := c.Int64()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, i64, test.ShouldEqual, int64(-2))

	f32, err := c.Float32()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f32, test.ShouldEqual, float32(3.5))

	f64, err := c.Float64()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f64, test.ShouldEqual, 3.5)

	b, err := c.Bool()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldBeTrue)

	ch, err := c.Char()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ch, test.ShouldEqual, byte('x'))

	str, err := c.String(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, str, test.ShouldEqual, "hi")

	test.That(t, c.Empty(), test.ShouldBeTrue)
	_, err = c.Uint8()
	test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
}

func TestCursorRemainingInvariant(t *testing.T) {
	const total = 64
	buf := make([]byte, total)
	c := NewCursor(buf)

	consumed := 0
	for _, n := range []int{1, 2, 4, 8, 0, 3, 16} {
		_, err := c.Advance(n)
		test.That(t, err, test.ShouldBeNil)
		consumed += n
		test.That(t, c.Remaining(), test.ShouldEqual, total-consumed)
		test.That(t, c.Offset(), test.ShouldEqual, consumed)
	}

	// Advance fails iff n > Remaining, and a failed read consumes nothing.
	remaining := c.Remaining()
	_, err := c.Advance(remaining + 1)
	test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
	test.That(t, c.Remaining(), test.ShouldEqual, remaining)

	_, err = c.Advance(-1)
	test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)

	_, err = c.Advance(remaining)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Empty(), test.ShouldBeTrue)
}

func TestCursorRemainingBytesCopies(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	c := NewCursor(buf)
	test.That(t, c.Skip(2), test.ShouldBeNil)

	rest := c.RemainingBytes()
	test.That(t, rest, test.ShouldResemble, []byte{3, 4, 5})
	test.That(t, c.Empty(), test.ShouldBeTrue)

	buf[2] = 0xFF
	test.That(t, rest[0], test.ShouldEqual, byte(3))

	test.That(t, NewCursor(nil).RemainingBytes(), test.ShouldResemble, []byte{})
}

func TestCursorInvalidUTF8(t *testing.T) {
	c := NewCursor([]byte{0xC3, 0x28})
	_, err := c.String(2)
	test.That(t, errors.Is(err, ErrInvalidUTF8), test.ShouldBeTrue)

	c = NewCursor([]byte("ok"))
	_, err = c.String(3)
	test.That(t, errors.Is(err, ErrOutOfBounds), test.ShouldBeTrue)
}

func TestCursorFloatBits(t *testing.T) {
	nan := math.Float32bits(float32(math.NaN()))
	buf := []byte{byte(nan), byte(nan >> 8), byte(nan >> 16), byte(nan >> 24)}
	f, err := NewCursor(buf).Float32()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, math.Float32bits(f), test.ShouldEqual, nan)
}
