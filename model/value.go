package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Char is one byte of ULog character data. It is kept distinct from uint8 so that a decoded
// value remembers which of the two it was declared as.
type Char byte

// Primitive is the set of Go types that hold a decoded primitive field.
type Primitive interface {
	uint8 | uint16 | uint32 | uint64 | int8 | int16 | int32 | int64 | float32 | float64 | bool | Char
}

// FieldValue is a decoded field value. The concrete types are Scalar[T] and Array[T] for every
// Primitive T, Nested and NestedArray.
type FieldValue interface {
	// Kind returns the base type of the value. Nested values return KindOther.
	Kind() Kind
	// IsArray reports whether the value was decoded from an array typed field.
	IsArray() bool
	// Len returns the element count of an array value, or 1 for a scalar.
	Len() int
	String() string

	fieldValue()
}

// Scalar is a single primitive value.
type Scalar[T Primitive] struct {
	Value T
}

// Kind returns the base type of T.
func (Scalar[T]) Kind() Kind { return KindOf[T]() }

// IsArray is always false for a Scalar.
func (Scalar[T]) IsArray() bool { return false }

// Len is always 1 for a Scalar.
func (Scalar[T]) Len() int { return 1 }

func (s Scalar[T]) String() string {
	return formatPrimitive(s.Value)
}

func (Scalar[T]) fieldValue() {}

// Array is a fixed length sequence of primitive values.
type Array[T Primitive] []T

// Kind returns the base type of T.
func (Array[T]) Kind() Kind { return KindOf[T]() }

// IsArray is always true for an Array.
func (Array[T]) IsArray() bool { return true }

// Len returns the element count.
func (a Array[T]) Len() int { return len(a) }

func (a Array[T]) String() string {
	if chars, ok := any(a).(Array[Char]); ok {
		return strconv.Quote(CharsToString(chars))
	}
	parts := make([]string, 0, len(a))
	for _, v := range a {
		parts = append(parts, formatPrimitive(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (Array[T]) fieldValue() {}

// Nested is a single record of another schema embedded in a field.
type Nested struct {
	Record *Record
}

// Kind is always KindOther for nested values.
func (Nested) Kind() Kind { return KindOther }

// IsArray is always false for a Nested value.
func (Nested) IsArray() bool { return false }

// Len is always 1 for a Nested value.
func (Nested) Len() int { return 1 }

func (n Nested) String() string {
	return n.Record.String()
}

func (Nested) fieldValue() {}

// NestedArray is a fixed length sequence of records of another schema.
type NestedArray []*Record

// Kind is always KindOther for nested values.
func (NestedArray) Kind() Kind { return KindOther }

// IsArray is always true for a NestedArray.
func (NestedArray) IsArray() bool { return true }

// Len returns the element count.
func (na NestedArray) Len() int { return len(na) }

func (na NestedArray) String() string {
	parts := make([]string, 0, len(na))
	for _, rec := range na {
		parts = append(parts, rec.String())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (NestedArray) fieldValue() {}

// KindOf returns the Kind that T decodes from.
func KindOf[T Primitive]() Kind {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return KindUint8
	case uint16:
		return KindUint16
	case uint32:
		return KindUint32
	case uint64:
		return KindUint64
	case int8:
		return KindInt8
	case int16:
		return KindInt16
	case int32:
		return KindInt32
	case int64:
		return KindInt64
	case float32:
		return KindFloat32
	case float64:
		return KindFloat64
	case bool:
		return KindBool
	case Char:
		return KindChar
	default:
		return 0
	}
}

// ValueType returns the TypeExpr a value encodes as. Nested values report the name of the
// schema of their first record. An empty NestedArray has no schema to report and returns an
// anonymous Other type.
func ValueType(v FieldValue) TypeExpr {
	var base BaseType
	switch typed := v.(type) {
	case Nested:
		base = OtherType(typed.Record.Name)
	case NestedArray:
		if len(typed) > 0 {
			base = OtherType(typed[0].Name)
		} else {
			base = OtherType("")
		}
	default:
		base = PrimitiveType(v.Kind())
	}
	if v.IsArray() {
		return ArrayOf(base, v.Len())
	}
	return ScalarOf(base)
}

// CharsToString converts a char array to a Go string. Bytes are kept as is; decoding the result
// as UTF-8 is up to the caller.
func CharsToString(chars []Char) string {
	raw := make([]byte, len(chars))
	for i, c := range chars {
		raw[i] = byte(c)
	}
	return string(raw)
}

// StringToChars converts a Go string to a char array.
func StringToChars(str string) Array[Char] {
	ret := make(Array[Char], len(str))
	for i := 0; i < len(str); i++ {
		ret[i] = Char(str[i])
	}
	return ret
}

// AsString returns the text held by a char or char array value.
func AsString(v FieldValue) (string, bool) {
	switch typed := v.(type) {
	case Array[Char]:
		return CharsToString(typed), true
	case Scalar[Char]:
		return string([]byte{byte(typed.Value)}), true
	default:
		return "", false
	}
}

// AsUint64 widens any unsigned integer scalar to a uint64.
func AsUint64(v FieldValue) (uint64, bool) {
	switch typed := v.(type) {
	case Scalar[uint8]:
		return uint64(typed.Value), true
	case Scalar[uint16]:
		return uint64(typed.Value), true
	case Scalar[uint32]:
		return uint64(typed.Value), true
	case Scalar[uint64]:
		return typed.Value, true
	default:
		return 0, false
	}
}

// AsInt64 widens any integer scalar to an int64. uint64 values that do not fit are rejected.
func AsInt64(v FieldValue) (int64, bool) {
	switch typed := v.(type) {
	case Scalar[int8]:
		return int64(typed.Value), true
	case Scalar[int16]:
		return int64(typed.Value), true
	case Scalar[int32]:
		return int64(typed.Value), true
	case Scalar[int64]:
		return typed.Value, true
	case Scalar[uint64]:
		if typed.Value > 1<<63-1 {
			return 0, false
		}
		return int64(typed.Value), true
	default:
		if u, ok := AsUint64(v); ok {
			return int64(u), true
		}
		return 0, false
	}
}

// AsFloat64 widens any numeric scalar to a float64.
func AsFloat64(v FieldValue) (float64, bool) {
	switch typed := v.(type) {
	case Scalar[float32]:
		return float64(typed.Value), true
	case Scalar[float64]:
		return typed.Value, true
	case Scalar[uint64]:
		return float64(typed.Value), true
	default:
		if i, ok := AsInt64(v); ok {
			return float64(i), true
		}
		return 0, false
	}
}

func formatPrimitive[T Primitive](v T) string {
	switch typed := any(v).(type) {
	case Char:
		return strconv.QuoteRune(rune(typed))
	case float32:
		return strconv.FormatFloat(float64(typed), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}
