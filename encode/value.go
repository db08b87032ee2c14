package encode

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/ulog/model"
)

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func appendPrimitive[T model.Primitive](buf []byte, v T) []byte {
	switch typed := any(v).(type) {
	case uint8:
		return append(buf, typed)
	case uint16:
		return binary.LittleEndian.AppendUint16(buf, typed)
	case uint32:
		return binary.LittleEndian.AppendUint32(buf, typed)
	case uint64:
		return binary.LittleEndian.AppendUint64(buf, typed)
	case int8:
		return append(buf, byte(typed))
	case int16:
		return binary.LittleEndian.AppendUint16(buf, uint16(typed))
	case int32:
		return binary.LittleEndian.AppendUint32(buf, uint32(typed))
	case int64:
		return binary.LittleEndian.AppendUint64(buf, uint64(typed))
	case float32:
		return binary.LittleEndian.AppendUint32(buf, math.Float32bits(typed))
	case float64:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(typed))
	case bool:
		return append(buf, boolByte(typed))
	case model.Char:
		return append(buf, byte(typed))
	default:
		return buf
	}
}

func appendArray[T model.Primitive](buf []byte, values model.Array[T]) []byte {
	for _, v := range values {
		buf = appendPrimitive(buf, v)
	}
	return buf
}

// appendValue appends the little-endian encoding of `v`. Nested records are written field by
// field.
func appendValue(buf []byte, v model.FieldValue) ([]byte, error) {
	switch typed := v.(type) {
	case model.Scalar[uint8]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[uint16]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[uint32]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[uint64]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[int8]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[int16]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[int32]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[int64]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[float32]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[float64]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[bool]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Scalar[model.Char]:
		return appendPrimitive(buf, typed.Value), nil
	case model.Array[uint8]:
		return append(buf, typed...), nil
	case model.Array[uint16]:
		return appendArray(buf, typed), nil
	case model.Array[uint32]:
		return appendArray(buf, typed), nil
	case model.Array[uint64]:
		return appendArray(buf, typed), nil
	case model.Array[int8]:
		return appendArray(buf, typed), nil
	case model.Array[int16]:
		return appendArray(buf, typed), nil
	case model.Array[int32]:
		return appendArray(buf, typed), nil
	case model.Array[int64]:
		return appendArray(buf, typed), nil
	case model.Array[float32]:
		return appendArray(buf, typed), nil
	case model.Array[float64]:
		return appendArray(buf, typed), nil
	case model.Array[bool]:
		return appendArray(buf, typed), nil
	case model.Array[model.Char]:
		return appendArray(buf, typed), nil
	case model.Nested:
		return appendRecord(buf, typed.Record)
	case model.NestedArray:
		var err error
		for _, rec := range typed {
			if buf, err = appendRecord(buf, rec); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case nil:
		return nil, errors.Wrap(ErrUnsupportedValue, "nil value")
	default:
		return nil, errors.Wrapf(ErrUnsupportedValue, "%T", v)
	}
}
