package compiler

import "github.com/dr8co/lox/token"

// precedence orders the binding power of operators, ascending, per §4.3.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

// prefixFn and infixFn are handler functions driven by the Pratt loop in
// [Compiler.parsePrecedence]. canAssign is threaded through explicitly
// (never read off compiler state) so that chained invalid assignments
// are rejected at the point the outer handler observes an unconsumed
// `=`, per the Design Notes.
type prefixFn func(c *Compiler, canAssign bool)
type infixFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix prefixFn
	infix  infixFn
	prec   precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPAREN:        {(*Compiler).grouping, (*Compiler).call, precCall},
		token.DOT:           {nil, (*Compiler).dot, precCall},
		token.MINUS:         {(*Compiler).unary, (*Compiler).binary, precTerm},
		token.PLUS:          {nil, (*Compiler).binary, precTerm},
		token.SLASH:         {nil, (*Compiler).binary, precFactor},
		token.STAR:          {nil, (*Compiler).binary, precFactor},
		token.BANG:          {(*Compiler).unary, nil, precNone},
		token.BANG_EQUAL:    {nil, (*Compiler).binary, precEquality},
		token.EQUAL_EQUAL:   {nil, (*Compiler).binary, precEquality},
		token.GREATER:       {nil, (*Compiler).binary, precComparison},
		token.GREATER_EQUAL: {nil, (*Compiler).binary, precComparison},
		token.LESS:          {nil, (*Compiler).binary, precComparison},
		token.LESS_EQUAL:    {nil, (*Compiler).binary, precComparison},
		token.IDENT:         {(*Compiler).variable, nil, precNone},
		token.STRING:        {(*Compiler).string_, nil, precNone},
		token.NUMBER:        {(*Compiler).number, nil, precNone},
		token.AND:           {nil, (*Compiler).and_, precAnd},
		token.OR:            {nil, (*Compiler).or_, precOr},
		token.TRUE:          {(*Compiler).literal, nil, precNone},
		token.FALSE:         {(*Compiler).literal, nil, precNone},
		token.NIL:           {(*Compiler).literal, nil, precNone},
		token.THIS:          {(*Compiler).this_, nil, precNone},
		token.SUPER:         {(*Compiler).super_, nil, precNone},
		token.EOF:           {},
	}
}

func (c *Compiler) rule(t token.Type) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{}
}
