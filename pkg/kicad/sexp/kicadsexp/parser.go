package kicadsexp

import (
	"github.com/OpenTraceLab/kiparse/pkg/kicad/sexp"
)

// Cursor walks a token stream for recursive-descent parsers
type Cursor struct {
	tokens []Token
	pos    int
	end    int // Offset reported once the stream is exhausted
}

// NewCursor creates a cursor over tokens. inputLen is used as the offset of
// errors raised at end of input.
func NewCursor(tokens []Token, inputLen int) *Cursor {
	return &Cursor{tokens: tokens, end: inputLen}
}

// Done reports whether every token has been consumed
func (c *Cursor) Done() bool {
	return c.pos >= len(c.tokens)
}

// Peek returns the current token without consuming it
func (c *Cursor) Peek() (Token, bool) {
	if c.Done() {
		return Token{}, false
	}
	return c.tokens[c.pos], true
}

// Next consumes and returns the current token
func (c *Cursor) Next() (Token, bool) {
	tok, ok := c.Peek()
	if ok {
		c.pos++
	}
	return tok, ok
}

// Offset returns the byte offset of the current token, or the input length
// at end of stream.
func (c *Cursor) Offset() int {
	if tok, ok := c.Peek(); ok {
		return tok.Offset
	}
	return c.end
}

// AtClose reports whether the current token is ')'
func (c *Cursor) AtClose() bool {
	tok, ok := c.Peek()
	return ok && tok.Type == TokenClose
}

// EnterList consumes an Open token and the atom that follows it and returns
// that head. When the current token is not '(' nothing is consumed and ok is
// false. A list whose first element is not an atom yields an empty head.
func (c *Cursor) EnterList() (head string, offset int, ok bool) {
	tok, ok := c.Peek()
	if !ok || tok.Type != TokenOpen {
		return "", 0, false
	}
	c.pos++
	if next, ok := c.Peek(); ok && next.Type == TokenAtom {
		c.pos++
		return next.Value, tok.Offset, true
	}
	return "", tok.Offset, true
}

// Values consumes the atoms and strings up to the next '(' or ')' and
// returns them in order.
func (c *Cursor) Values() []Token {
	start := c.pos
	for c.pos < len(c.tokens) {
		t := c.tokens[c.pos].Type
		if t != TokenAtom && t != TokenString {
			break
		}
		c.pos++
	}
	return c.tokens[start:c.pos]
}

// Close consumes the ')' that ends the current list. Any remaining values or
// nested lists before it are skipped.
func (c *Cursor) Close() error {
	return c.SkipBlock()
}

// SkipBlock consumes tokens through the ')' that balances the list the
// cursor is currently inside. Nested lists are skipped whole. Running out of
// tokens first is an unbalanced-delimiter error.
func (c *Cursor) SkipBlock() error {
	depth := 1
	for c.pos < len(c.tokens) {
		switch c.tokens[c.pos].Type {
		case TokenOpen:
			depth++
		case TokenClose:
			depth--
			if depth == 0 {
				c.pos++
				return nil
			}
		}
		c.pos++
	}
	return sexp.NewError(sexp.ErrUnbalancedDelimiters, "", c.end)
}
