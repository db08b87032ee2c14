// Package model defines the ULog data model shared by the parser and the encoder.
//
// There are two layers. A Schema is the definition of a record type as announced by a format
// message, e.g:
//
//	vehicle_local_position:uint64_t timestamp;float x;float y;float z;uint8_t[4] _padding0;
//
// A Record is one decoded instance of a Schema. Records hold a pointer to the Schema they were
// decoded with. Schemas are owned by the parser session that registered them and are never
// modified once registered, so any number of records may share one.
package model

import (
	"strconv"
	"strings"
)

// Kind is the base type of a field: one of the twelve fixed width primitives, or Other for a
// reference to another schema by name.
type Kind uint8

// The ULog base types. The zero Kind is invalid.
const (
	KindUint8 Kind = iota + 1
	KindUint16
	KindUint32
	KindUint64
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBool
	KindChar
	KindOther
)

var kindNames = map[Kind]string{
	KindUint8:   "uint8_t",
	KindUint16:  "uint16_t",
	KindUint32:  "uint32_t",
	KindUint64:  "uint64_t",
	KindInt8:    "int8_t",
	KindInt16:   "int16_t",
	KindInt32:   "int32_t",
	KindInt64:   "int64_t",
	KindFloat32: "float",
	KindFloat64: "double",
	KindBool:    "bool",
	KindChar:    "char",
}

var kindsByName = func() map[string]Kind {
	ret := make(map[string]Kind, len(kindNames))
	for kind, name := range kindNames {
		ret[name] = kind
	}
	return ret
}()

// String returns the type name used in format definitions, e.g. "uint16_t" or "float".
func (kind Kind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}
	if kind == KindOther {
		return "other"
	}
	return "invalid(" + strconv.Itoa(int(kind)) + ")"
}

// Size returns the encoded size in bytes of one value of a primitive kind. Other has no fixed
// size and returns 0.
func (kind Kind) Size() int {
	switch kind {
	case KindUint8, KindInt8, KindBool, KindChar:
		return 1
	case KindUint16, KindInt16:
		return 2
	case KindUint32, KindInt32, KindFloat32:
		return 4
	case KindUint64, KindInt64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// Primitive reports whether the kind is one of the fixed width types.
func (kind Kind) Primitive() bool {
	return kind >= KindUint8 && kind <= KindChar
}

// BaseType is the element type of a field. When Kind is KindOther, Name holds the referenced
// schema name. The reference is only checked when a record using it is decoded.
type BaseType struct {
	Kind Kind
	Name string
}

// ParseBaseType maps a type name to its BaseType. Unknown names become references to other
// schemas.
func ParseBaseType(name string) BaseType {
	if kind, ok := kindsByName[name]; ok {
		return BaseType{Kind: kind}
	}
	return BaseType{Kind: KindOther, Name: name}
}

// PrimitiveType returns the BaseType for a primitive kind.
func PrimitiveType(kind Kind) BaseType {
	return BaseType{Kind: kind}
}

// OtherType returns a BaseType referencing the schema `name`.
func OtherType(name string) BaseType {
	return BaseType{Kind: KindOther, Name: name}
}

// IsOther reports whether the type references another schema.
func (bt BaseType) IsOther() bool {
	return bt.Kind == KindOther
}

func (bt BaseType) String() string {
	if bt.Kind == KindOther {
		return bt.Name
	}
	return bt.Kind.String()
}

// TypeExpr is a base type with an optional fixed array length.
type TypeExpr struct {
	Base    BaseType
	IsArray bool
	// ArraySize is the element count. Only meaningful when IsArray is set.
	ArraySize int
}

// ScalarOf returns the TypeExpr for a single value of `base`.
func ScalarOf(base BaseType) TypeExpr {
	return TypeExpr{Base: base}
}

// ArrayOf returns the TypeExpr for `size` values of `base`.
func ArrayOf(base BaseType, size int) TypeExpr {
	return TypeExpr{Base: base, IsArray: true, ArraySize: size}
}

// String returns the type as written in a format definition, e.g. "float[3]".
func (te TypeExpr) String() string {
	if !te.IsArray {
		return te.Base.String()
	}
	return te.Base.String() + "[" + strconv.Itoa(te.ArraySize) + "]"
}

// PaddingPrefix marks fields that only exist to align the record layout.
const PaddingPrefix = "_padding"

// TimestampField is the name of the field holding a record's timestamp in microseconds.
const TimestampField = "timestamp"

// Field is one named, typed member of a Schema.
type Field struct {
	Name string
	Type TypeExpr
}

// IsPadding reports whether the field is alignment padding.
func (f Field) IsPadding() bool {
	return strings.HasPrefix(f.Name, PaddingPrefix)
}

// IsTimestamp reports whether the field holds the record timestamp: a scalar uint64 named
// "timestamp".
func (f Field) IsTimestamp() bool {
	return f.Name == TimestampField && !f.Type.IsArray && f.Type.Base.Kind == KindUint64
}

// Schema is a named, ordered list of fields.
type Schema struct {
	Name   string
	Fields []Field
}

// Field returns the field called `name`.
func (s *Schema) Field(name string) (Field, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return Field{}, false
}

// References returns the schema names referenced by Other typed fields, in field order.
func (s *Schema) References() []string {
	var ret []string
	for _, field := range s.Fields {
		if field.Type.Base.IsOther() {
			ret = append(ret, field.Type.Base.Name)
		}
	}
	return ret
}

// Definition returns the schema in format message syntax. Every field, including the last, is
// terminated with a semicolon:
//
//	name:type0 field0;type1[n] field1;
func (s *Schema) Definition() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	sb.WriteByte(':')
	for _, field := range s.Fields {
		sb.WriteString(field.Type.String())
		sb.WriteByte(' ')
		sb.WriteString(field.Name)
		sb.WriteByte(';')
	}
	return sb.String()
}

func (s *Schema) String() string {
	return s.Definition()
}
