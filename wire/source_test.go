package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestSourceCleanEOF(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte{0x05, 0x00, 'F'}))

	size, err := src.ReadUint16()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldEqual, uint16(5))

	tag, err := src.ReadUint8()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tag, test.ShouldEqual, byte('F'))
	test.That(t, src.EOF(), test.ShouldBeFalse)

	// Nothing left: a clean EOF is reported as zero bytes read, not an error.
	n, err := src.ReadFull(make([]byte, 2))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 0)
	test.That(t, src.EOF(), test.ShouldBeTrue)
	test.That(t, src.BytesRead(), test.ShouldEqual, int64(3))
}

func TestSourceTruncation(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte{1, 2, 3}))

	n, err := src.ReadFull(make([]byte, 8))
	test.That(t, errors.Is(err, io.ErrUnexpectedEOF), test.ShouldBeTrue)
	test.That(t, n, test.ShouldEqual, 3)
	test.That(t, src.EOF(), test.ShouldBeFalse)
	test.That(t, src.BytesRead(), test.ShouldEqual, int64(3))
}

func TestSourceSkip(t *testing.T) {
	src := NewSource(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}))

	skipped, err := src.Skip(4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, skipped, test.ShouldEqual, int64(4))

	v, err := src.ReadUint8()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, byte(5))

	skipped, err = src.Skip(10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, skipped, test.ShouldEqual, int64(1))
	test.That(t, src.EOF(), test.ShouldBeTrue)
	test.That(t, src.BytesRead(), test.ShouldEqual, int64(6))
}

func TestSourceLimit(t *testing.T) {
	src := NewSource(bytes.NewReader(make([]byte, 32)))
	test.That(t, src.LimitReached(), test.ShouldBeFalse)

	src.SetLimit(10)
	test.That(t, src.Limit(), test.ShouldEqual, int64(10))

	_, err := src.ReadFull(make([]byte, 9))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.LimitReached(), test.ShouldBeFalse)

	_, err = src.ReadFull(make([]byte, 1))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, src.LimitReached(), test.ShouldBeTrue)

	src.SetLimit(0)
	test.That(t, src.LimitReached(), test.ShouldBeFalse)
}
