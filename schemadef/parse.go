package schemadef

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/ulog/model"
)

var (
	// ErrSyntax matches every error returned for malformed definitions.
	ErrSyntax = errors.New("invalid format definition")
	// ErrUnexpectedEnd is returned when a definition ends in the middle of a construct.
	ErrUnexpectedEnd = errors.New("unexpected end of definition")
)

// ParseError describes the token that did not match the grammar.
type ParseError struct {
	// What is the construct being parsed, e.g. "format name" or "array size".
	What     string
	Expected TokenKind
	Got      Token
	// End is set when the definition ran out of tokens.
	End bool
}

func (e *ParseError) Error() string {
	if e.End {
		return fmt.Sprintf("%s: invalid %s, expected %s, got end of definition", ErrSyntax, e.What, e.Expected)
	}
	return fmt.Sprintf("%s: invalid %s, expected %s, got %s", ErrSyntax, e.What, e.Expected, e.Got)
}

// Is matches ErrSyntax, and ErrUnexpectedEnd when the definition was cut short.
func (e *ParseError) Is(target error) bool {
	return target == ErrSyntax || (e.End && target == ErrUnexpectedEnd)
}

// Parse parses a full format definition such as "my_format:uint64_t timestamp;float x;".
func Parse(text string) (*model.Schema, error) {
	tokens := NewTokenList(text)

	name, err := tokens.Expect(Identifier, "format name")
	if err != nil {
		return nil, err
	}
	if _, err := tokens.Expect(Colon, "format name"); err != nil {
		return nil, err
	}

	schema := &model.Schema{Name: name.Text}
	for !tokens.Empty() {
		field, err := ParseField(tokens)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d of %q", len(schema.Fields), schema.Name)
		}
		if _, err := tokens.Expect(Semicolon, "field terminator"); err != nil {
			return nil, errors.Wrapf(err, "field %q of %q", field.Name, schema.Name)
		}
		schema.Fields = append(schema.Fields, field)
	}
	return schema, nil
}

// ParseField consumes one `type[N] name` field from `tokens`. The terminating semicolon is
// left for the caller.
func ParseField(tokens *TokenList) (model.Field, error) {
	typeName, err := tokens.Expect(Identifier, "field type")
	if err != nil {
		return model.Field{}, err
	}
	te := model.ScalarOf(model.ParseBaseType(typeName.Text))

	if next, ok := tokens.Peek(); ok && next.Kind == LBrace {
		if _, err := tokens.Next(); err != nil {
			return model.Field{}, err
		}
		size, err := tokens.Expect(Number, "array size")
		if err != nil {
			return model.Field{}, err
		}
		if _, err := tokens.Expect(RBrace, "array size"); err != nil {
			return model.Field{}, err
		}
		te = model.ArrayOf(te.Base, size.Value)
	}

	name, err := tokens.Expect(Identifier, "field name")
	if err != nil {
		return model.Field{}, err
	}
	return model.Field{Name: name.Text, Type: te}, nil
}

// ParseKey parses the `type[N] name` key of info and parameter records.
func ParseKey(text string) (model.Field, error) {
	tokens := NewTokenList(text)
	field, err := ParseField(tokens)
	if err != nil {
		return model.Field{}, errors.Wrapf(err, "key %q", text)
	}
	if next, ok := tokens.Peek(); ok {
		return model.Field{}, errors.Wrapf(ErrSyntax, "key %q has trailing %s", text, next)
	}
	return field, nil
}
