// Package kicadsexp tokenizes KiCad S-expression text and provides a cursor
// for recursive-descent consumers of the resulting token stream.
package kicadsexp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// TokenType represents the type of a token
type TokenType int

const (
	TokenOpen   TokenType = iota // (
	TokenClose                   // )
	TokenAtom                    // bare symbol, numbers are left as text
	TokenString                  // quoted string, escape-decoded
)

func (t TokenType) String() string {
	switch t {
	case TokenOpen:
		return "Open"
	case TokenClose:
		return "Close"
	case TokenAtom:
		return "Atom"
	case TokenString:
		return "QuotedString"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Offset int // Byte offset of the token in the input
}

// Lexical structure of KiCad S-expressions.
// Rules are tried in order, so a closed string always wins over the
// unterminated form. A comment is a line whose first non-blank character
// is '#'; the rule consumes the line break before it, so '#' inside a line
// stays part of an atom.
var definition = sync.OnceValue(func() *lexer.StatefulDefinition {
	return lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `\s*\n[ \t]*#[^\n]*`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Open", Pattern: `\(`},
		{Name: "Close", Pattern: `\)`},
		{Name: "String", Pattern: `"(?:[^"\\]|\\[\s\S])*"`},
		{Name: "Unterminated", Pattern: `"(?:[^"\\]|\\[\s\S])*\\?`},
		{Name: "Atom", Pattern: `[^\s()"]+`},
	})
})

type ruleSet struct {
	comment, whitespace, open, close, str, unterminated, atom lexer.TokenType
}

var rules = sync.OnceValue(func() ruleSet {
	syms := definition().Symbols()
	return ruleSet{
		comment:      syms["Comment"],
		whitespace:   syms["Whitespace"],
		open:         syms["Open"],
		close:        syms["Close"],
		str:          syms["String"],
		unterminated: syms["Unterminated"],
		atom:         syms["Atom"],
	}
})

// Tokenize converts text into a flat token stream in a single pass.
// Whitespace and line comments are dropped. Nesting depth is not checked here;
// balancing is the consumer's job. A quote that is never closed fails with
// sexp.ErrUnterminatedString.
func Tokenize(text string) ([]Token, error) {
	// A leading newline lets a comment on the first line match like any
	// other; offsets are shifted back by one below.
	lex, err := definition().LexString("", "\n"+text)
	if err != nil {
		return nil, fmt.Errorf("failed to start lexer: %w", err)
	}
	rs := rules()

	tokens := make([]Token, 0, len(text)/6)
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("lexer error: %w", err)
		}
		if tok.EOF() {
			return tokens, nil
		}

		offset := tok.Pos.Offset - 1
		switch tok.Type {
		case rs.whitespace, rs.comment:
			continue
		case rs.open:
			tokens = append(tokens, Token{Type: TokenOpen, Value: "(", Offset: offset})
		case rs.close:
			tokens = append(tokens, Token{Type: TokenClose, Value: ")", Offset: offset})
		case rs.str:
			body := tok.Value[1 : len(tok.Value)-1]
			tokens = append(tokens, Token{Type: TokenString, Value: sexp.Unquote(body), Offset: offset})
		case rs.unterminated:
			return nil, sexp.NewError(sexp.ErrUnterminatedString, preview(tok.Value), offset)
		case rs.atom:
			tokens = append(tokens, Token{Type: TokenAtom, Value: strings.Clone(tok.Value), Offset: offset})
		default:
			return nil, fmt.Errorf("unexpected token %q at offset %d", tok.Value, offset)
		}
	}
}

// preview shortens a runaway string literal for error messages
func preview(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
