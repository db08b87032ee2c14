package parser

import (
	"github.com/pkg/errors"

	"go.viam.com/ulog/model"
	"go.viam.com/ulog/wire"
)

// maxNestingDepth bounds how deep formats may embed other formats. A format that references
// itself would otherwise recurse until the payload runs out.
const maxNestingDepth = 32

// decodeRecord decodes the fields of `schema` from `c`. The record's timestamp is set from its
// own "timestamp" field, if it has one.
func (p *Parser) decodeRecord(schema *model.Schema, c *wire.Cursor, depth int) (*model.Record, error) {
	rec := &model.Record{
		Name:   schema.Name,
		Fields: make([]model.RecordField, 0, len(schema.Fields)),
		Schema: schema,
	}
	for _, field := range schema.Fields {
		if field.IsPadding() {
			if padding, ok := p.decodePadding(schema, field, c); ok {
				rec.Fields = append(rec.Fields, padding)
			}
			continue
		}

		value, err := p.decodeValue(field.Type, c, depth)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", field.Name)
		}
		if rec.Timestamp == nil && field.IsTimestamp() {
			ts := value.(model.Scalar[uint64]).Value
			rec.Timestamp = &ts
		}
		rec.Fields = append(rec.Fields, model.RecordField{Name: field.Name, Type: field.Type, Value: value})
	}
	return rec, nil
}

// decodePadding consumes a padding field. It returns the padding bytes as a field when padding
// is included. Padding that does not fit is tolerated: the logger may cut the last padding field
// of a record short.
func (p *Parser) decodePadding(schema *model.Schema, field model.Field, c *wire.Cursor) (model.RecordField, bool) {
	count := 1
	if field.Type.IsArray {
		count = field.Type.ArraySize
	}
	elem := max(field.Type.Base.Kind.Size(), 1)

	if !fits(count, elem, c.Remaining()) {
		if c.Empty() {
			p.log.Debugw("Padding cut off at end of record", "format", schema.Name, "field", field.Name)
		} else {
			p.log.Errorw("Padding larger than remaining record, possible corruption",
				"format", schema.Name, "field", field.Name, "count", count, "remaining", c.Remaining())
		}
		return model.RecordField{}, false
	}

	size := count * elem
	if !p.cfg.IncludePadding {
		if err := c.Skip(size); err != nil {
			p.log.Errorw("Could not skip padding", "format", schema.Name, "error", err)
		}
		return model.RecordField{}, false
	}
	raw, err := c.Bytes(size)
	if err != nil {
		p.log.Errorw("Could not read padding", "format", schema.Name, "error", err)
		return model.RecordField{}, false
	}
	return model.RecordField{Name: field.Name, Type: field.Type, Value: model.Array[uint8](raw)}, true
}

// decodeValue decodes one value of type `te`. Nested formats are looked up by name at decode
// time.
func (p *Parser) decodeValue(te model.TypeExpr, c *wire.Cursor, depth int) (model.FieldValue, error) {
	if te.Base.IsOther() {
		return p.decodeNested(te, c, depth)
	}
	if !te.IsArray {
		return decodeScalar(te.Base.Kind, c)
	}
	if !fits(te.ArraySize, te.Base.Kind.Size(), c.Remaining()) {
		return nil, errors.Wrapf(wire.ErrOutOfBounds, "%s does not fit in %d remaining bytes", te, c.Remaining())
	}
	return decodeArray(te.Base.Kind, te.ArraySize, c)
}

func (p *Parser) decodeNested(te model.TypeExpr, c *wire.Cursor, depth int) (model.FieldValue, error) {
	schema, ok := p.schemas[te.Base.Name]
	if !ok {
		return nil, &UndefinedFormatError{Name: te.Base.Name}
	}
	if depth+1 > maxNestingDepth {
		return nil, errors.Wrapf(ErrNestingTooDeep, "%q nested more than %d levels", te.Base.Name, maxNestingDepth)
	}

	if !te.IsArray {
		rec, err := p.decodeRecord(schema, c, depth+1)
		if err != nil {
			return nil, err
		}
		return model.Nested{Record: rec}, nil
	}
	// Each element must consume at least one byte, so the payload bounds the element count.
	ret := make(model.NestedArray, 0, min(te.ArraySize, c.Remaining()))
	for idx := 0; idx < te.ArraySize; idx++ {
		if c.Empty() {
			return nil, errors.Wrapf(wire.ErrOutOfBounds, "%s: payload ends before element %d", te, idx)
		}
		start := c.Offset()
		rec, err := p.decodeRecord(schema, c, depth+1)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", idx)
		}
		if c.Offset() == start {
			return nil, errors.Wrapf(wire.ErrOutOfBounds, "%s: element %d is empty", te, idx)
		}
		ret = append(ret, rec)
	}
	return ret, nil
}

// fits reports whether `count` elements of `elemSize` bytes fit in `remaining` bytes. The
// product is never formed so counts from a format definition cannot overflow it.
func fits(count, elemSize, remaining int) bool {
	if count < 0 || elemSize < 1 {
		return false
	}
	return count <= remaining/elemSize
}

// firstTimestamp returns the first timestamp of a record nested in `rec`, depth first.
func firstTimestamp(rec *model.Record) *uint64 {
	for _, field := range rec.Fields {
		var nested []*model.Record
		switch typed := field.Value.(type) {
		case model.Nested:
			nested = []*model.Record{typed.Record}
		case model.NestedArray:
			nested = typed
		default:
			continue
		}
		for _, inner := range nested {
			if inner.Timestamp != nil {
				return inner.Timestamp
			}
			if ts := firstTimestamp(inner); ts != nil {
				return ts
			}
		}
	}
	return nil
}

func readChar(c *wire.Cursor) (model.Char, error) {
	v, err := c.Char()
	return model.Char(v), err
}

func scalar[T model.Primitive](c *wire.Cursor, read func(*wire.Cursor) (T, error)) (model.FieldValue, error) {
	v, err := read(c)
	if err != nil {
		return nil, err
	}
	return model.Scalar[T]{Value: v}, nil
}

func array[T model.Primitive](c *wire.Cursor, n int, read func(*wire.Cursor) (T, error)) (model.FieldValue, error) {
	ret := make(model.Array[T], n)
	for idx := range ret {
		v, err := read(c)
		if err != nil {
			return nil, err
		}
		ret[idx] = v
	}
	return ret, nil
}

func decodeScalar(kind model.Kind, c *wire.Cursor) (model.FieldValue, error) {
	switch kind {
	case model.KindUint8:
		return scalar(c, (*wire.Cursor).Uint8)
	case model.KindUint16:
		return scalar(c, (*wire.Cursor).Uint16)
	case model.KindUint32:
		return scalar(c, (*wire.Cursor).Uint32)
	case model.KindUint64:
		return scalar(c, (*wire.Cursor).Uint64)
	case model.KindInt8:
		return scalar(c, (*wire.Cursor).Int8)
	case model.KindInt16:
		return scalar(c, (*wire.Cursor).Int16)
	case model.KindInt32:
		return scalar(c, (*wire.Cursor).Int32)
	case model.KindInt64:
		return scalar(c, (*wire.Cursor).Int64)
	case model.KindFloat32:
		return scalar(c, (*wire.Cursor).Float32)
	case model.KindFloat64:
		return scalar(c, (*wire.Cursor).Float64)
	case model.KindBool:
		return scalar(c, (*wire.Cursor).Bool)
	case model.KindChar:
		return scalar(c, readChar)
	default:
		return nil, errors.Errorf("cannot decode base type %s", kind)
	}
}

func decodeArray(kind model.Kind, n int, c *wire.Cursor) (model.FieldValue, error) {
	switch kind {
	case model.KindUint8:
		raw, err := c.Bytes(n)
		if err != nil {
			return nil, err
		}
		return model.Array[uint8](raw), nil
	case model.KindUint16:
		return array(c, n, (*wire.Cursor).Uint16)
	case model.KindUint32:
		return array(c, n, (*wire.Cursor).Uint32)
	case model.KindUint64:
		return array(c, n, (*wire.Cursor).Uint64)
	case model.KindInt8:
		return array(c, n, (*wire.Cursor).Int8)
	case model.KindInt16:
		return array(c, n, (*wire.Cursor).Int16)
	case model.KindInt32:
		return array(c, n, (*wire.Cursor).Int32)
	case model.KindInt64:
		return array(c, n, (*wire.Cursor).Int64)
	case model.KindFloat32:
		return array(c, n, (*wire.Cursor).Float32)
	case model.KindFloat64:
		return array(c, n, (*wire.Cursor).Float64)
	case model.KindBool:
		return array(c, n, (*wire.Cursor).Bool)
	case model.KindChar:
		return array(c, n, readChar)
	default:
		return nil, errors.Errorf("cannot decode base type %s", kind)
	}
}
