package model

import (
	"strconv"
	"strings"
)

// RecordField is one decoded field of a Record.
type RecordField struct {
	Name  string
	Type  TypeExpr
	Value FieldValue
}

// Record is one decoded instance of a Schema.
type Record struct {
	// Name is the name of the schema the record was decoded with.
	Name string
	// Timestamp is the record's timestamp in microseconds. Nil for records nested in another
	// record that did not have their own timestamp field.
	Timestamp *uint64
	// MultiID is the instance index of the subscription a top level record was logged under.
	// Only set when the message name is logged by more than one subscription.
	MultiID *uint8
	Fields  []RecordField
	Schema  *Schema
}

// Field returns the decoded field called `name`.
func (r *Record) Field(name string) (RecordField, bool) {
	for _, field := range r.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return RecordField{}, false
}

// Value returns the value of the field called `name`, or nil.
func (r *Record) Value(name string) FieldValue {
	field, ok := r.Field(name)
	if !ok {
		return nil
	}
	return field.Value
}

// FlatField is a primitive leaf of a record, addressed by its dotted path.
type FlatField struct {
	Path  string
	Value FieldValue
}

// Flatten walks the record depth first and returns every primitive field keyed by its path.
// Nested records contribute "parent.child" paths and nested arrays "parent[i].child".
func (r *Record) Flatten() []FlatField {
	var ret []FlatField
	r.flatten("", &ret)
	return ret
}

func (r *Record) flatten(prefix string, out *[]FlatField) {
	for _, field := range r.Fields {
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}
		switch typed := field.Value.(type) {
		case Nested:
			typed.Record.flatten(path, out)
		case NestedArray:
			for idx, rec := range typed {
				rec.flatten(path+"["+strconv.Itoa(idx)+"]", out)
			}
		default:
			*out = append(*out, FlatField{Path: path, Value: field.Value})
		}
	}
}

func (r *Record) String() string {
	var sb strings.Builder
	sb.WriteString(r.Name)
	if r.MultiID != nil {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(int(*r.MultiID)))
		sb.WriteByte(']')
	}
	sb.WriteByte('{')
	first := true
	if r.Timestamp != nil {
		sb.WriteString("timestamp=")
		sb.WriteString(strconv.FormatUint(*r.Timestamp, 10))
		first = false
	}
	for _, field := range r.Fields {
		if field.Name == TimestampField && r.Timestamp != nil {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(field.Name)
		sb.WriteByte('=')
		sb.WriteString(field.Value.String())
	}
	sb.WriteByte('}')
	return sb.String()
}
