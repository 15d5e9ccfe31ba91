// Package lexer scans Lox source bytes into a stream of [token.Token]
// values, one per call to [Lexer.NextToken].
//
// It operates over an immutable source buffer with a start/current cursor
// pair and a running line counter, recognizing single- and two-character
// operators, string and number literals, identifiers, and keywords.
// Whitespace and `//` line comments are skipped inline. Lexical errors
// (an unterminated string, an unexpected character) are reported as
// [errors.ScanError] values carrying the offending line's text and a
// caret column for diagnostics.
package lexer

import (
	"strings"

	"github.com/dr8co/lox/errors"
	"github.com/dr8co/lox/token"
)

// Lexer scans a single immutable source buffer into tokens.
type Lexer struct {
	source  string
	start   int
	current int
	line    int

	lineStart int // byte offset of the first character of the current line
}

// New creates a Lexer over source.
func New(source string) *Lexer {
	return &Lexer{source: source, line: 1}
}

// NextToken scans and returns the next token in the source, or an
// [errors.ScanError] if the input at the current position cannot be
// scanned into a valid token.
func (l *Lexer) NextToken() (token.Token, error) {
	l.skipWhitespaceAndComments()
	l.start = l.current

	if l.atEnd() {
		return l.make(token.EOF), nil
	}

	c := l.advance()

	switch {
	case isDigit(c):
		return l.number(), nil
	case isAlpha(c):
		return l.identifier(), nil
	}

	switch c {
	case '(':
		return l.make(token.LPAREN), nil
	case ')':
		return l.make(token.RPAREN), nil
	case '{':
		return l.make(token.LBRACE), nil
	case '}':
		return l.make(token.RBRACE), nil
	case ',':
		return l.make(token.COMMA), nil
	case '.':
		return l.make(token.DOT), nil
	case ';':
		return l.make(token.SEMICOLON), nil
	case '+':
		return l.make(token.PLUS), nil
	case '-':
		return l.make(token.MINUS), nil
	case '*':
		return l.make(token.STAR), nil
	case '/':
		return l.make(token.SLASH), nil
	case '!':
		if l.matchNext('=') {
			return l.make(token.BANG_EQUAL), nil
		}
		return l.make(token.BANG), nil
	case '=':
		if l.matchNext('=') {
			return l.make(token.EQUAL_EQUAL), nil
		}
		return l.make(token.ASSIGN), nil
	case '<':
		if l.matchNext('=') {
			return l.make(token.LESS_EQUAL), nil
		}
		return l.make(token.LESS), nil
	case '>':
		if l.matchNext('=') {
			return l.make(token.GREATER_EQUAL), nil
		}
		return l.make(token.GREATER), nil
	case '"':
		return l.string()
	}

	return token.Token{}, l.errorAt(l.start, "unexpected character '"+string(c)+"'")
}

func (l *Lexer) atEnd() bool { return l.current >= len(l.source) }

func (l *Lexer) advance() byte {
	c := l.source[l.current]
	l.current++
	return c
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) matchNext(want byte) bool {
	if l.atEnd() || l.source[l.current] != want {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) newline() {
	l.line++
	l.lineStart = l.current
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEnd() {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.current++
		case '\n':
			l.current++
			l.newline()
		case '/':
			if l.peekNext() == '/' {
				for !l.atEnd() && l.peek() != '\n' {
					l.current++
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) string() (token.Token, error) {
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.current++
			l.newline()
		} else {
			l.current++
		}
	}
	if l.atEnd() {
		return token.Token{}, l.errorAt(l.start, "unterminated string")
	}
	l.current++ // closing quote
	return l.makeLexeme(token.STRING, l.source[l.start+1:l.current-1]), nil
}

func (l *Lexer) number() token.Token {
	for isDigit(l.peek()) {
		l.current++
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.current++
		for isDigit(l.peek()) {
			l.current++
		}
	}
	return l.make(token.NUMBER)
}

func (l *Lexer) identifier() token.Token {
	for isAlphaNumeric(l.peek()) {
		l.current++
	}
	lexeme := l.source[l.start:l.current]
	return l.makeLexeme(token.LookupIdent(lexeme), lexeme)
}

func (l *Lexer) make(t token.Type) token.Token {
	return l.makeLexeme(t, l.source[l.start:l.current])
}

func (l *Lexer) makeLexeme(t token.Type, lexeme string) token.Token {
	return token.Token{Type: t, Lexeme: lexeme, Line: l.line, Column: l.start - l.lineStart}
}

// LineText returns the full text of the line currently being scanned,
// for use in caret diagnostics.
func (l *Lexer) LineText() string {
	end := strings.IndexByte(l.source[l.lineStart:], '\n')
	if end == -1 {
		return l.source[l.lineStart:]
	}
	return l.source[l.lineStart : l.lineStart+end]
}

func (l *Lexer) errorAt(offset int, message string) error {
	return &errors.ScanError{
		Position: errors.Position{
			Line:   l.line,
			Source: l.LineText(),
			Column: offset - l.lineStart,
		},
		Message: message,
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c byte) bool { return isAlpha(c) || isDigit(c) }
