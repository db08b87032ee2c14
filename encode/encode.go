// Package encode writes model messages back out in the ULog wire format. Encoding every message
// a parser produced under parser.RoundTripConfig reproduces the original file.
package encode

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/ulog/model"
)

var (
	// ErrMessageTooLarge is returned when a record's content does not fit the uint16 size field.
	ErrMessageTooLarge = errors.New("record content larger than 65535 bytes")
	// ErrKeyTooLong is returned when an info or parameter key does not fit the uint8 length field.
	ErrKeyTooLong = errors.New("key longer than 255 bytes")
	// ErrUnsupportedValue is returned for values the wire format cannot carry.
	ErrUnsupportedValue = errors.New("unsupported field value")
)

// Encoder writes messages to an output stream.
type Encoder struct {
	w       io.Writer
	written int64
}

// NewEncoder returns an encoder writing to `w`.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes one message.
func (e *Encoder) Encode(msg model.Message) error {
	raw, err := Message(msg)
	if err != nil {
		return err
	}
	n, err := e.w.Write(raw)
	e.written += int64(n)
	return err
}

// BytesWritten returns the number of bytes written so far.
func (e *Encoder) BytesWritten() int64 {
	return e.written
}

// Message returns the wire bytes of `msg`. The header is written raw; every other message is
// framed with its content size and type tag.
func Message(msg model.Message) ([]byte, error) {
	if header, ok := msg.(*model.Header); ok {
		return appendHeader(nil, header), nil
	}

	// Reserve room for the frame and fill it in once the content size is known.
	buf := make([]byte, 3, 64)
	buf, err := AppendContent(buf, msg)
	if err != nil {
		return nil, err
	}
	size := len(buf) - 3
	if size > math.MaxUint16 {
		return nil, errors.Wrapf(ErrMessageTooLarge, "%s record of %d bytes", msg.MessageType(), size)
	}
	binary.LittleEndian.PutUint16(buf, uint16(size))
	buf[2] = byte(msg.MessageType())
	return buf, nil
}

// AppendContent appends the content of `msg`, without the record frame, to `buf`.
func AppendContent(buf []byte, msg model.Message) ([]byte, error) {
	switch typed := msg.(type) {
	case *model.Header:
		return appendHeader(buf, typed), nil
	case *model.FlagBits:
		buf = append(buf, typed.Compat[:]...)
		buf = append(buf, typed.Incompat[:]...)
		for _, offset := range typed.AppendedOffsets {
			buf = binary.LittleEndian.AppendUint64(buf, offset)
		}
		return buf, nil
	case *model.SchemaDefinition:
		return append(buf, Schema(typed.Schema)...), nil
	case *model.AddSubscription:
		buf = append(buf, typed.MultiID)
		buf = binary.LittleEndian.AppendUint16(buf, typed.MsgID)
		return append(buf, typed.MessageName...), nil
	case *model.LoggedData:
		buf = binary.LittleEndian.AppendUint16(buf, typed.MsgID)
		return appendRecord(buf, typed.Data)
	case *model.Info:
		return appendKeyValue(buf, typed.Type, typed.Key, typed.Value)
	case *model.MultiInfo:
		buf = append(buf, boolByte(typed.Continued))
		return appendKeyValue(buf, typed.Type, typed.Key, typed.Value)
	case *model.Parameter:
		return appendKeyValue(buf, typed.Type, typed.Key, typed.Value)
	case *model.DefaultParameter:
		buf = append(buf, typed.DefaultTypes)
		return appendKeyValue(buf, typed.Type, typed.Key, typed.Value)
	case *model.LoggedString:
		buf = append(buf, byte(typed.Level))
		if typed.Tag != nil {
			buf = binary.LittleEndian.AppendUint16(buf, *typed.Tag)
		}
		buf = binary.LittleEndian.AppendUint64(buf, typed.Timestamp)
		return append(buf, typed.Text...), nil
	case *model.Dropout:
		return binary.LittleEndian.AppendUint16(buf, typed.Duration), nil
	case *model.Unhandled:
		return append(buf, typed.Raw...), nil
	case *model.Ignored:
		return append(buf, typed.Raw...), nil
	default:
		return nil, errors.Errorf("cannot encode message of type %T", msg)
	}
}

// Schema returns the text of a format record.
func Schema(schema *model.Schema) []byte {
	return []byte(schema.Definition())
}

// TypeExpr returns the text of a type, e.g. "uint8_t[4]".
func TypeExpr(te model.TypeExpr) string {
	return te.String()
}

func appendHeader(buf []byte, header *model.Header) []byte {
	buf = append(buf, model.Magic[:]...)
	buf = append(buf, header.Version)
	return binary.LittleEndian.AppendUint64(buf, header.Timestamp)
}

func appendKeyValue(buf []byte, te model.TypeExpr, name string, value model.FieldValue) ([]byte, error) {
	buf, err := appendKey(buf, te, name)
	if err != nil {
		return nil, err
	}
	return appendValue(buf, value)
}

func appendKey(buf []byte, te model.TypeExpr, name string) ([]byte, error) {
	key := TypeExpr(te) + " " + name
	if len(key) > math.MaxUint8 {
		return nil, errors.Wrapf(ErrKeyTooLong, "%q", key)
	}
	buf = append(buf, byte(len(key)))
	return append(buf, key...), nil
}

// appendRecord appends every field of `rec` in order, recursing into nested records.
func appendRecord(buf []byte, rec *model.Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.Wrap(ErrUnsupportedValue, "nil record")
	}
	var err error
	for _, field := range rec.Fields {
		if buf, err = appendValue(buf, field.Value); err != nil {
			return nil, errors.Wrapf(err, "field %q of %q", field.Name, rec.Name)
		}
	}
	return buf, nil
}
