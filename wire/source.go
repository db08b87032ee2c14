package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Source wraps the input stream of a ULog file. It counts every byte consumed and tells a clean
// end of stream, which may only happen on a record boundary, apart from a truncated record.
//
// A Source may carry a read limit: the offset of data appended after the log (e.g. a crash
// dump). The parser stops producing records once BytesRead reaches it.
type Source struct {
	reader    io.Reader
	bytesRead int64
	eof       bool
	limit     int64
}

// NewSource returns a Source reading from `reader`. Callers reading from files should wrap the
// file in a `bufio.Reader`; Source issues one read per header and one per payload.
func NewSource(reader io.Reader) *Source {
	return &Source{reader: reader}
}

// ReadFull fills `buf`. If the stream is already exhausted, ReadFull returns 0 and a nil error
// and EOF starts reporting true. A stream that ends after some but not all of `buf` was filled is
// truncated and returns `io.ErrUnexpectedEOF`.
func (s *Source) ReadFull(buf []byte) (int, error) {
	n, err := io.ReadFull(s.reader, buf)
	s.bytesRead += int64(n)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		s.eof = true
		return 0, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, errors.Wrapf(io.ErrUnexpectedEOF, "wanted %d bytes at offset %d, got %d", len(buf), s.bytesRead-int64(n), n)
	default:
		return n, err
	}
}

// ReadUint8 reads a single byte. A clean end of stream returns 0 with EOF set.
func (s *Source) ReadUint8() (uint8, error) {
	var buf [1]byte
	if _, err := s.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a little-endian uint16. A clean end of stream returns 0 with EOF set.
func (s *Source) ReadUint16() (uint16, error) {
	var buf [2]byte
	if _, err := s.ReadFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

// Skip discards up to `n` bytes and returns how many were discarded. Hitting the end of the
// stream is not an error.
func (s *Source) Skip(n int64) (int64, error) {
	skipped, err := io.CopyN(io.Discard, s.reader, n)
	s.bytesRead += skipped
	if errors.Is(err, io.EOF) {
		s.eof = true
		return skipped, nil
	}
	return skipped, err
}

// EOF reports whether a read found the stream exhausted.
func (s *Source) EOF() bool {
	return s.eof
}

// BytesRead returns the number of bytes consumed from the underlying reader.
func (s *Source) BytesRead() int64 {
	return s.bytesRead
}

// SetLimit sets the offset at which record reading must stop. Zero removes the limit.
func (s *Source) SetLimit(limit int64) {
	s.limit = limit
}

// Limit returns the read limit, or zero when there is none.
func (s *Source) Limit() int64 {
	return s.limit
}

// LimitReached reports whether a read limit is set and BytesRead has reached it.
func (s *Source) LimitReached() bool {
	return s.limit > 0 && s.bytesRead >= s.limit
}
