package lexer

import (
	"testing"

	"github.com/dr8co/lox/token"
)

// TestNextToken checks that NextToken identifies every token kind across
// operators, keywords, literals, and comments.
func TestNextToken(t *testing.T) {
	input := `var five = 5;
const ten = 10;
fun add(x, y) {
  return x + y;
}
class Pair < Base {
  sum() { return this.x + this.y; }
}
// a line comment, skipped entirely
!-/*5;
5 < 10 > 5;
5 <= 10 >= 5;

if (5 < 10) {
  print true;
} else {
  print false;
}

10 == 10;
10 != 9;
nil;
super.sum();

"foobar"
"multi
line"
`
	tests := []struct {
		expectedType   token.Type
		expectedLexeme string
	}{
		{token.VAR, "var"},
		{token.IDENT, "five"},
		{token.ASSIGN, "="},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.CONST, "const"},
		{token.IDENT, "ten"},
		{token.ASSIGN, "="},
		{token.NUMBER, "10"},
		{token.SEMICOLON, ";"},
		{token.FUN, "fun"},
		{token.IDENT, "add"},
		{token.LPAREN, "("},
		{token.IDENT, "x"},
		{token.COMMA, ","},
		{token.IDENT, "y"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.IDENT, "y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.CLASS, "class"},
		{token.IDENT, "Pair"},
		{token.LESS, "<"},
		{token.IDENT, "Base"},
		{token.LBRACE, "{"},
		{token.IDENT, "sum"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RETURN, "return"},
		{token.THIS, "this"},
		{token.DOT, "."},
		{token.IDENT, "x"},
		{token.PLUS, "+"},
		{token.THIS, "this"},
		{token.DOT, "."},
		{token.IDENT, "y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.RBRACE, "}"},
		{token.BANG, "!"},
		{token.MINUS, "-"},
		{token.SLASH, "/"},
		{token.STAR, "*"},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.NUMBER, "5"},
		{token.LESS, "<"},
		{token.NUMBER, "10"},
		{token.GREATER, ">"},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.NUMBER, "5"},
		{token.LESS_EQUAL, "<="},
		{token.NUMBER, "10"},
		{token.GREATER_EQUAL, ">="},
		{token.NUMBER, "5"},
		{token.SEMICOLON, ";"},
		{token.IF, "if"},
		{token.LPAREN, "("},
		{token.NUMBER, "5"},
		{token.LESS, "<"},
		{token.NUMBER, "10"},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.PRINT, "print"},
		{token.TRUE, "true"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.ELSE, "else"},
		{token.LBRACE, "{"},
		{token.PRINT, "print"},
		{token.FALSE, "false"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.NUMBER, "10"},
		{token.EQUAL_EQUAL, "=="},
		{token.NUMBER, "10"},
		{token.SEMICOLON, ";"},
		{token.NUMBER, "10"},
		{token.BANG_EQUAL, "!="},
		{token.NUMBER, "9"},
		{token.SEMICOLON, ";"},
		{token.NIL, "nil"},
		{token.SEMICOLON, ";"},
		{token.SUPER, "super"},
		{token.DOT, "."},
		{token.IDENT, "sum"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.SEMICOLON, ";"},
		{token.STRING, "foobar"},
		{token.STRING, "multi\nline"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("test[%d]: unexpected error: %v", i, err)
		}
		if tok.Type != tt.expectedType {
			t.Fatalf("test[%d]: expected type %q, got %q (lexeme %q)", i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("test[%d]: expected lexeme %q, got %q", i, tt.expectedLexeme, tok.Lexeme)
		}
	}
}

// TestUnterminatedString checks that an unterminated string literal is
// reported as a scan error rather than panicking or looping forever.
func TestUnterminatedString(t *testing.T) {
	l := New(`"no closing quote`)
	if _, err := l.NextToken(); err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
}

// TestUnexpectedCharacter checks that a byte outside the token grammar is
// reported as a scan error.
func TestUnexpectedCharacter(t *testing.T) {
	l := New("@")
	if _, err := l.NextToken(); err == nil {
		t.Fatal("expected an error for an unexpected character")
	}
}
