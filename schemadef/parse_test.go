package schemadef

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/ulog/model"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("message1: int field0; float[5] field1;")
	test.That(t, tokens, test.ShouldResemble, []Token{
		{Kind: Identifier, Text: "message1"},
		{Kind: Colon},
		{Kind: Identifier, Text: "int"},
		{Kind: Identifier, Text: "field0"},
		{Kind: Semicolon},
		{Kind: Identifier, Text: "float"},
		{Kind: LBrace},
		{Kind: Number, Value: 5},
		{Kind: RBrace},
		{Kind: Identifier, Text: "field1"},
		{Kind: Semicolon},
	})
}

func TestTokenizeUnknown(t *testing.T) {
	tokens := Tokenize("message1: ? int field0;")
	test.That(t, tokens, test.ShouldResemble, []Token{
		{Kind: Identifier, Text: "message1"},
		{Kind: Colon},
		{Kind: Unknown, Char: '?'},
		{Kind: Identifier, Text: "int"},
		{Kind: Identifier, Text: "field0"},
		{Kind: Semicolon},
	})
	test.That(t, tokens[2].String(), test.ShouldEqual, "Unknown('?')")
}

func TestTokenizeNumberThenIdentifier(t *testing.T) {
	test.That(t, Tokenize("12ab_3"), test.ShouldResemble, []Token{
		{Kind: Number, Value: 12},
		{Kind: Identifier, Text: "ab_3"},
	})
	test.That(t, Tokenize(" \t\n"), test.ShouldBeEmpty)
}

func TestParse(t *testing.T) {
	schema, err := Parse("my_format:uint64_t timestamp; bool is_happy; uint8_t[8] pet_ids;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, schema, test.ShouldResemble, &model.Schema{
		Name: "my_format",
		Fields: []model.Field{
			{Name: "timestamp", Type: model.ScalarOf(model.PrimitiveType(model.KindUint64))},
			{Name: "is_happy", Type: model.ScalarOf(model.PrimitiveType(model.KindBool))},
			{Name: "pet_ids", Type: model.ArrayOf(model.PrimitiveType(model.KindUint8), 8)},
		},
	})
}

func TestGrammarRoundTrip(t *testing.T) {
	for _, text := range []string{
		"my_format:uint64_t timestamp;custom_type custom_field;bool is_happy;custom_type2[4] custom_field;uint8_t[8] pet_ids;",
		"demo:uint64_t timestamp;float x;",
		"all:int8_t a;int16_t b;int32_t c;int64_t d;uint8_t e;uint16_t f;uint32_t g;uint64_t h;" +
			"float i;double j;bool k;char[10] l;uint8_t[3] _padding0;",
		"empty:",
	} {
		schema, err := Parse(text)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, schema.Definition(), test.ShouldEqual, text)

		again, err := Parse(schema.Definition())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, again, test.ShouldResemble, schema)
	}

	schema := &model.Schema{
		Name: "built",
		Fields: []model.Field{
			{Name: "nested", Type: model.ArrayOf(model.OtherType("other_thing"), 2)},
			{Name: "c", Type: model.ScalarOf(model.PrimitiveType(model.KindChar))},
		},
	}
	parsed, err := Parse(schema.Definition())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed, test.ShouldResemble, schema)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		text  string
		isEnd bool
	}{
		{text: "no_colon uint8_t x;"},
		{text: ":uint8_t x;"},
		{text: "f:uint8_t x", isEnd: true},
		{text: "f:uint8_t[ x;"},
		{text: "f:uint8_t[4 x;"},
		{text: "f:uint8_t[4] ;"},
		{text: "f:uint8_t x; ? y;"},
		{text: "f:uint8_t x,"},
		{text: "f", isEnd: true},
		{text: "f:uint8_t", isEnd: true},
	} {
		_, err := Parse(tc.text)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, errors.Is(err, ErrSyntax), test.ShouldBeTrue)
		test.That(t, errors.Is(err, ErrUnexpectedEnd), test.ShouldEqual, tc.isEnd)
	}

	_, err := Parse("f:uint8_t[4 x;")
	var perr *ParseError
	test.That(t, errors.As(err, &perr), test.ShouldBeTrue)
	test.That(t, perr.Expected, test.ShouldEqual, RBrace)
	test.That(t, perr.Got, test.ShouldResemble, Token{Kind: Identifier, Text: "x"})
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected RBrace, got Identifier(\"x\")")
}

func TestParseKey(t *testing.T) {
	field, err := ParseKey("char[12] sys_name")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, field, test.ShouldResemble, model.Field{
		Name: "sys_name",
		Type: model.ArrayOf(model.PrimitiveType(model.KindChar), 12),
	})

	field, err = ParseKey("int32_t SYS_AUTOSTART")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, field.Type, test.ShouldResemble, model.ScalarOf(model.PrimitiveType(model.KindInt32)))

	_, err = ParseKey("int32_t")
	test.That(t, errors.Is(err, ErrUnexpectedEnd), test.ShouldBeTrue)

	_, err = ParseKey("int32_t a b")
	test.That(t, errors.Is(err, ErrSyntax), test.ShouldBeTrue)
}
