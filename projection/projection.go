// Package projection maps decoded records onto Go structs.
//
// A struct field binds to the format field named by its `ulog` tag, or by the snake_case form of
// its Go name when untagged:
//
//	type VehicleLocalPosition struct {
//		Timestamp uint64
//		X, Y      float32
//		Z         *float32 // nil when the format has no "z"
//		Heading   float32  `ulog:"yaw,optional"`
//		Debug     string   `ulog:"-"`
//	}
//
// Format fields holding other formats project into nested structs, arrays into slices or Go
// arrays, and char arrays into strings. Build an Index once per format and reuse it for every
// record of that format.
package projection

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/ulog/model"
)

const tagName = "ulog"

type binding struct {
	name     string
	goIndex  int
	optional bool
	// pos is the position of the field in the format, or -1 if the format lacks it.
	pos int
}

type nestedKey struct {
	target reflect.Type
	schema *model.Schema
}

// Index resolves field names to their positions in one format. An Index built by BuildIndexFor
// also knows how to fill one struct type and may be shared between goroutines.
type Index struct {
	schema    *model.Schema
	positions map[string]int
	target    reflect.Type
	bindings  []binding

	mu     sync.Mutex
	nested map[nestedKey]*Index
}

// BuildIndex indexes the fields `names` of `schema`. With no names, every non padding field is
// indexed. All missing names are reported together in a *MissingFieldsError.
func BuildIndex(schema *model.Schema, names ...string) (*Index, error) {
	positions := schemaPositions(schema)
	if len(names) == 0 {
		return &Index{schema: schema, positions: positions}, nil
	}
	missing := lo.Reject(names, func(name string, _ int) bool {
		_, ok := positions[name]
		return ok
	})
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Schema: schema.Name, Missing: missing}
	}
	return &Index{schema: schema, positions: lo.PickByKeys(positions, names)}, nil
}

// BuildIndexFor indexes the fields of `schema` bound by the struct type of `target`, which may
// be a struct, a pointer to one, or its reflect.Type.
func BuildIndexFor(schema *model.Schema, target interface{}) (*Index, error) {
	typ, err := structType(target)
	if err != nil {
		return nil, err
	}
	return buildFor(schema, typ)
}

// Schema returns the indexed format.
func (idx *Index) Schema() *model.Schema {
	return idx.schema
}

// Position returns the position of field `name` in the format.
func (idx *Index) Position(name string) (int, bool) {
	pos, ok := idx.positions[name]
	return pos, ok
}

// Names returns the indexed field names in format order.
func (idx *Index) Names() []string {
	names := lo.Keys(idx.positions)
	slices.SortFunc(names, func(a, b string) int {
		return idx.positions[a] - idx.positions[b]
	})
	return names
}

// Value returns the value of the indexed field `name` in `rec`.
func (idx *Index) Value(rec *model.Record, name string) (model.FieldValue, bool) {
	pos, ok := idx.positions[name]
	if !ok {
		return nil, false
	}
	return lookup(rec, name, pos)
}

// Project fills the struct pointed to by `target` from `rec`. `idx` must have been built by
// BuildIndexFor for the type of `*target`.
func Project(idx *Index, rec *model.Record, target interface{}) error {
	if idx.target == nil {
		return errors.New("index was built without a target type")
	}
	dst := reflect.ValueOf(target)
	if dst.Kind() != reflect.Ptr || dst.IsNil() {
		return errors.Errorf("projection target must be a non-nil pointer, got %T", target)
	}
	dst = dst.Elem()
	if dst.Type() != idx.target {
		return errors.Errorf("index was built for %s, cannot project into %s", idx.target, dst.Type())
	}
	if rec.Name != idx.schema.Name {
		return errors.Errorf("index was built for format %q, got a record of %q", idx.schema.Name, rec.Name)
	}
	return idx.project(rec, dst)
}

// ProjectAs projects `rec` into a new T.
func ProjectAs[T any](idx *Index, rec *model.Record) (T, error) {
	var ret T
	if err := Project(idx, rec, &ret); err != nil {
		return ret, err
	}
	return ret, nil
}

func structType(target interface{}) (reflect.Type, error) {
	typ, ok := target.(reflect.Type)
	if !ok {
		typ = reflect.TypeOf(target)
	}
	if typ == nil {
		return nil, errors.New("cannot build an index for a nil target")
	}
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, errors.Errorf("target of type %s is not a struct", typ)
	}
	return typ, nil
}

func schemaPositions(schema *model.Schema) map[string]int {
	positions := make(map[string]int, len(schema.Fields))
	for pos, field := range schema.Fields {
		if !field.IsPadding() {
			positions[field.Name] = pos
		}
	}
	return positions
}

func parseTag(sField reflect.StructField) (name string, optional, skip bool) {
	tag := sField.Tag.Get(tagName)
	if tag == "-" {
		return "", false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	if name == "" {
		name = lo.SnakeCase(sField.Name)
	}
	return name, slices.Contains(parts[1:], "optional"), false
}

func buildFor(schema *model.Schema, typ reflect.Type) (*Index, error) {
	positions := schemaPositions(schema)
	idx := &Index{
		schema:    schema,
		positions: make(map[string]int),
		target:    typ,
		nested:    make(map[nestedKey]*Index),
	}

	var missing []string
	for i := 0; i < typ.NumField(); i++ {
		sField := typ.Field(i)
		if !sField.IsExported() {
			continue
		}
		name, optional, skip := parseTag(sField)
		if skip {
			continue
		}
		optional = optional || sField.Type.Kind() == reflect.Ptr

		pos, ok := positions[name]
		if !ok {
			if !optional {
				missing = append(missing, name)
			}
			idx.bindings = append(idx.bindings, binding{name: name, goIndex: i, optional: true, pos: -1})
			continue
		}
		if field := schema.Fields[pos]; !compatible(field.Type, sField.Type) {
			return nil, &TypeMismatchError{Schema: schema.Name, Field: name, Type: field.Type, GoType: sField.Type}
		}
		idx.positions[name] = pos
		idx.bindings = append(idx.bindings, binding{name: name, goIndex: i, optional: optional, pos: pos})
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Schema: schema.Name, Missing: missing}
	}
	return idx, nil
}

func reflectKind(kind model.Kind) reflect.Kind {
	switch kind {
	case model.KindUint8, model.KindChar:
		return reflect.Uint8
	case model.KindUint16:
		return reflect.Uint16
	case model.KindUint32:
		return reflect.Uint32
	case model.KindUint64:
		return reflect.Uint64
	case model.KindInt8:
		return reflect.Int8
	case model.KindInt16:
		return reflect.Int16
	case model.KindInt32:
		return reflect.Int32
	case model.KindInt64:
		return reflect.Int64
	case model.KindFloat32:
		return reflect.Float32
	case model.KindFloat64:
		return reflect.Float64
	case model.KindBool:
		return reflect.Bool
	default:
		return reflect.Invalid
	}
}

// compatible reports whether values of `te` can be stored in a Go value of `goType`.
func compatible(te model.TypeExpr, goType reflect.Type) bool {
	if goType.Kind() == reflect.Ptr {
		goType = goType.Elem()
	}
	if !te.IsArray {
		if te.Base.IsOther() {
			return goType.Kind() == reflect.Struct
		}
		return goType.Kind() == reflectKind(te.Base.Kind)
	}
	if te.Base.Kind == model.KindChar && goType.Kind() == reflect.String {
		return true
	}
	switch goType.Kind() {
	case reflect.Slice:
	case reflect.Array:
		if goType.Len() != te.ArraySize {
			return false
		}
	default:
		return false
	}
	return compatible(model.ScalarOf(te.Base), goType.Elem())
}

// lookup finds field `name` in `rec`, trying its format position first. Records decoded without
// their timestamp or padding fields are shorter than their format, so the position is a hint.
func lookup(rec *model.Record, name string, pos int) (model.FieldValue, bool) {
	if pos >= 0 && pos < len(rec.Fields) && rec.Fields[pos].Name == name {
		return rec.Fields[pos].Value, true
	}
	if field, ok := rec.Field(name); ok {
		return field.Value, true
	}
	if name == model.TimestampField && rec.Timestamp != nil {
		return model.Scalar[uint64]{Value: *rec.Timestamp}, true
	}
	return nil, false
}

func (idx *Index) project(rec *model.Record, dst reflect.Value) error {
	for _, b := range idx.bindings {
		field := dst.Field(b.goIndex)
		value, ok := lookup(rec, b.name, b.pos)
		if b.pos < 0 || !ok {
			if !b.optional {
				return &MissingFieldsError{Schema: idx.schema.Name, Missing: []string{b.name}}
			}
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		if err := idx.assign(field, value, b.name); err != nil {
			return err
		}
	}
	return nil
}

func (idx *Index) assign(dst reflect.Value, v model.FieldValue, name string) error {
	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := idx.assign(elem.Elem(), v, name); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	mismatch := &TypeMismatchError{Schema: idx.schema.Name, Field: name, Type: model.ValueType(v), GoType: dst.Type()}
	switch typed := v.(type) {
	case model.Nested:
		if dst.Kind() != reflect.Struct {
			return mismatch
		}
		return idx.projectNested(typed.Record, dst)
	case model.NestedArray:
		if err := sizeSequence(dst, len(typed)); err != nil {
			return mismatch
		}
		for i, rec := range typed {
			if err := idx.assign(dst.Index(i), model.Nested{Record: rec}, fmt.Sprintf("%s[%d]", name, i)); err != nil {
				return err
			}
		}
		return nil
	}

	src := reflect.ValueOf(v)
	if !v.IsArray() {
		return setPrimitive(dst, src.Field(0), mismatch)
	}
	if text, ok := model.AsString(v); ok && dst.Kind() == reflect.String {
		dst.SetString(text)
		return nil
	}
	if err := sizeSequence(dst, src.Len()); err != nil {
		return mismatch
	}
	for i := 0; i < src.Len(); i++ {
		if err := setPrimitive(dst.Index(i), src.Index(i), mismatch); err != nil {
			return err
		}
	}
	return nil
}

// sizeSequence makes `dst` a slice of `n` elements, or checks that it is an array of `n`.
func sizeSequence(dst reflect.Value, n int) error {
	switch dst.Kind() {
	case reflect.Slice:
		dst.Set(reflect.MakeSlice(dst.Type(), n, n))
		return nil
	case reflect.Array:
		if dst.Len() != n {
			return errors.Errorf("array of %d cannot hold %d values", dst.Len(), n)
		}
		return nil
	default:
		return errors.Errorf("%s is not a slice or array", dst.Type())
	}
}

func setPrimitive(dst, src reflect.Value, mismatch error) error {
	if dst.Kind() != src.Kind() {
		return mismatch
	}
	dst.Set(src.Convert(dst.Type()))
	return nil
}

func (idx *Index) projectNested(rec *model.Record, dst reflect.Value) error {
	if rec.Schema == nil {
		return errors.Errorf("nested record %q has no format", rec.Name)
	}
	nested, err := idx.nestedIndex(dst.Type(), rec.Schema)
	if err != nil {
		return errors.Wrapf(err, "nested %q", rec.Name)
	}
	return nested.project(rec, dst)
}

func (idx *Index) nestedIndex(typ reflect.Type, schema *model.Schema) (*Index, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	key := nestedKey{target: typ, schema: schema}
	if nested, ok := idx.nested[key]; ok {
		return nested, nil
	}
	nested, err := buildFor(schema, typ)
	if err != nil {
		return nil, err
	}
	idx.nested[key] = nested
	return nested, nil
}
