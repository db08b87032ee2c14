// Package schemadef parses the text of ULog format definitions and info keys.
//
// A format definition names a record type and lists its fields, each terminated by a
// semicolon:
//
//	schema := Identifier ':' ( field ';' )+
//	field  := Identifier ( '[' Number ']' )? Identifier
//
// The first identifier of a field is its type, the second its name.
package schemadef

import (
	"fmt"
	"strconv"
)

// TokenKind identifies the class of a Token.
type TokenKind int

// The token kinds. Whitespace is skipped and never produces a token.
const (
	Identifier TokenKind = iota
	Number
	Colon
	Semicolon
	LBrace
	RBrace
	Unknown
)

var tokenKindNames = map[TokenKind]string{
	Identifier: "Identifier",
	Number:     "Number",
	Colon:      "Colon",
	Semicolon:  "Semicolon",
	LBrace:     "LBrace",
	RBrace:     "RBrace",
	Unknown:    "Unknown",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "TokenKind(" + strconv.Itoa(int(k)) + ")"
}

// Token is one lexeme. Text is set for identifiers, Value for numbers and Char for unknown
// characters.
type Token struct {
	Kind  TokenKind
	Text  string
	Value int
	Char  rune
}

func (t Token) String() string {
	switch t.Kind {
	case Identifier:
		return fmt.Sprintf("Identifier(%q)", t.Text)
	case Number:
		return fmt.Sprintf("Number(%d)", t.Value)
	case Unknown:
		return fmt.Sprintf("Unknown(%q)", t.Char)
	default:
		return t.Kind.String()
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	default:
		return false
	}
}

// Tokenize splits `text` into tokens. It never fails: characters outside the grammar become
// Unknown tokens and are rejected by the parser.
func Tokenize(text string) []Token {
	var tokens []Token
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case isSpace(r):
			i++
		case isIdentStart(r):
			start := i
			for i < len(runes) && (isIdentStart(runes[i]) || isDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, Token{Kind: Identifier, Text: string(runes[start:i])})
		case isDigit(r):
			start := i
			for i < len(runes) && isDigit(runes[i]) {
				i++
			}
			value, err := strconv.Atoi(string(runes[start:i]))
			if err != nil {
				// Only overflow can fail here. The number can never be a valid array size.
				tokens = append(tokens, Token{Kind: Unknown, Char: runes[start]})
				continue
			}
			tokens = append(tokens, Token{Kind: Number, Value: value})
		case r == ':':
			tokens = append(tokens, Token{Kind: Colon})
			i++
		case r == ';':
			tokens = append(tokens, Token{Kind: Semicolon})
			i++
		case r == '[':
			tokens = append(tokens, Token{Kind: LBrace})
			i++
		case r == ']':
			tokens = append(tokens, Token{Kind: RBrace})
			i++
		default:
			tokens = append(tokens, Token{Kind: Unknown, Char: r})
			i++
		}
	}
	return tokens
}

// TokenList is a consumable sequence of tokens.
type TokenList struct {
	tokens []Token
}

// NewTokenList tokenizes `text`.
func NewTokenList(text string) *TokenList {
	return &TokenList{tokens: Tokenize(text)}
}

// Len returns the number of unconsumed tokens.
func (tl *TokenList) Len() int {
	return len(tl.tokens)
}

// Empty reports whether every token was consumed.
func (tl *TokenList) Empty() bool {
	return len(tl.tokens) == 0
}

// Peek returns the next token without consuming it.
func (tl *TokenList) Peek() (Token, bool) {
	if len(tl.tokens) == 0 {
		return Token{}, false
	}
	return tl.tokens[0], true
}

// Next consumes the next token. It fails at the end of the list.
func (tl *TokenList) Next() (Token, error) {
	if len(tl.tokens) == 0 {
		return Token{}, ErrUnexpectedEnd
	}
	ret := tl.tokens[0]
	tl.tokens = tl.tokens[1:]
	return ret, nil
}

// Expect consumes the next token and fails unless it is of kind `kind`. `what` describes the
// construct being parsed for the error message.
func (tl *TokenList) Expect(kind TokenKind, what string) (Token, error) {
	token, err := tl.Next()
	if err != nil {
		return Token{}, &ParseError{What: what, Expected: kind, End: true}
	}
	if token.Kind != kind {
		return Token{}, &ParseError{What: what, Expected: kind, Got: token}
	}
	return token, nil
}
