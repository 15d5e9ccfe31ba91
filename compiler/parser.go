// Package compiler implements the single-pass Pratt parser/compiler: it
// scans source through a [lexer.Lexer] and emits [code.Instruction]
// values directly, with no intervening AST. Lexical scoping, locals, and
// upvalue capture are tracked per function by a [FunctionScope]; the
// globals table itself is not materialized at compile time — only the
// *names* known to be global (those declared at depth 0 so far, plus the
// natives) are tracked, so that a forward reference to an undeclared
// global is still caught before bytecode ever runs.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/josharian/intern"

	"github.com/dr8co/lox/code"
	"github.com/dr8co/lox/errors"
	"github.com/dr8co/lox/lexer"
	"github.com/dr8co/lox/natives"
	"github.com/dr8co/lox/object"
	"github.com/dr8co/lox/token"
)

// classState tracks the class body currently being compiled, so that
// `this`/`super` can be validated and `super` resolution knows whether a
// superclass is in scope.
type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Compiler drives the scanner and emits bytecode for one top-level
// program in a single pass. Errors accumulate in errs rather than
// aborting immediately, so that a single Compile call can report every
// syntax error found, panic-mode recovery (synchronize) resuming parsing
// at the next statement boundary.
type Compiler struct {
	lex *lexer.Lexer

	prev, curr token.Token

	current *FunctionScope
	class   *classState

	// knownGlobals mirrors the resolver's "globals table seeded with Nil"
	// described in §4.2: a name is in this set once a depth-0 declaration
	// for it has been parsed, which is what lets resolve(name) report
	// Global instead of "undefined variable" for references that follow
	// the declaration within the same compile.
	knownGlobals map[string]bool
	constGlobals map[string]bool

	errs      *multierror.Error
	panicMode bool
}

// Compile compiles source into a top-level [object.Function] (the
// implicit `script` function), or a non-nil error aggregating every
// syntax error encountered.
func Compile(source string) (*object.Function, error) {
	c := &Compiler{
		lex:          lexer.New(source),
		knownGlobals: make(map[string]bool),
		constGlobals: make(map[string]bool),
	}
	c.current = newFunctionScope(nil, "script", false)

	c.advance()
	for !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.EOF, "expected end of expression")

	fn := c.endFunction()
	if c.errs != nil {
		return nil, c.errs.ErrorOrNil()
	}
	return fn, nil
}

// --- token stream -----------------------------------------------------

func (c *Compiler) advance() {
	c.prev = c.curr
	for {
		tok, err := c.lex.NextToken()
		if err == nil {
			c.curr = tok
			return
		}
		c.reportError(err)
		// keep scanning: a single bad byte shouldn't stop compilation.
	}
}

func (c *Compiler) check(t token.Type) bool { return c.curr.Type == t }

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, message string) {
	if c.curr.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

// --- error reporting ----------------------------------------------------

func (c *Compiler) reportError(err error) {
	c.errs = multierror.Append(c.errs, err)
}

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.reportError(&errors.ParseError{
		Position: errors.Position{Line: tok.Line, Source: tok.Lexeme, Column: tok.Column},
		Message:  fmt.Sprintf("at %q: %s", tokenDesc(tok), message),
	})
}

func tokenDesc(tok token.Token) string {
	if tok.Type == token.EOF {
		return "end"
	}
	return tok.Lexeme
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.curr, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.prev, message) }

// synchronize discards tokens until it finds one that plausibly starts a
// new statement, so one error doesn't cascade into a wall of spurious
// follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.curr.Type != token.EOF {
		if c.prev.Type == token.SEMICOLON {
			return
		}
		switch c.curr.Type {
		case token.CLASS, token.FUN, token.VAR, token.CONST, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---------------------------------------------------

func (c *Compiler) chunk() *code.Chunk { return c.current.Chunk }

func (c *Compiler) emit(instr code.Instruction) int {
	return c.chunk().Write(instr, c.prev.Line)
}

func (c *Compiler) emitOp(op code.Opcode) int { return c.emit(code.Instruction{Op: op}) }

// emitPlaceholder writes a Nop to be back-patched later via swapIn, per §4.5.
func (c *Compiler) emitPlaceholder() int { return c.emitOp(code.OpNop) }

// swapIn emits a fresh instruction and swaps it into placeholder's slot,
// so the jump lands exactly where the placeholder was reserved.
func (c *Compiler) swapIn(placeholder int, instr code.Instruction) {
	pos := c.emit(instr)
	if !c.chunk().Swap(placeholder, pos) {
		c.reportError(&errors.ChunkError{Message: "back-patch swap index out of range"})
	}
	// drop the now-duplicated trailing instruction the swap left behind
	c.chunk().Code = c.chunk().Code[:pos]
	c.chunk().Lines = c.chunk().Lines[:pos]
}

func (c *Compiler) emitReturn() {
	if c.current.IsMethod && c.current.Name == "init" {
		c.emit(code.Instruction{Op: code.OpThis, Operand: 0})
	} else {
		c.emit(code.Instruction{Op: code.OpConst, Value: object.NilValue})
	}
	c.emitOp(code.OpReturn)
}

func (c *Compiler) endFunction() *object.Function {
	c.emitReturn()
	fn := &object.Function{
		Name:     c.current.Name,
		Arity:    c.current.Arity,
		Chunk:    c.current.Chunk,
		Captures: c.current.Captures,
		IsMethod: c.current.IsMethod,
	}
	c.current = c.current.Enclosing
	return fn
}

// --- variable declaration & resolution -----------------------------------

// declareVariable registers name in the current scope: as a local if
// inside a function/block (depth > 0 for the script, or always for a
// nested function since every nested FunctionScope begins at depth 1),
// or as a known global otherwise. It reports a redeclaration error for a
// duplicate name in the same block.
func (c *Compiler) declareVariable(name string, isConst bool) (scope code.Scope, index int) {
	if c.current.depth == 0 {
		c.knownGlobals[name] = true
		if isConst {
			c.constGlobals[name] = true
		}
		return code.ScopeGlobal, 0
	}
	if c.current.resolveInCurrentScope(name) {
		c.error("redeclaration of '" + name + "' in this scope")
	}
	idx := c.current.addLocal(name, isConst)
	return code.ScopeLocal, idx
}

func (c *Compiler) defineVariable(scope code.Scope, name string) {
	if scope == code.ScopeGlobal {
		c.emit(code.Instruction{Op: code.OpDefine, Scope: code.ScopeGlobal, Name: name})
	} else {
		c.current.markLatestInitialized()
		// Local/Upvalue Define is a no-op: the value already sits in the
		// local's permanent stack slot.
	}
}

// resolveName walks from the current function scope outward, returning
// the scope kind to emit a Resolve/Override against. Local lookups that
// land in an enclosing function are threaded back as upvalue captures
// through every function scope in between.
func (c *Compiler) resolveName(name string) (scope code.Scope, index int, isConst bool, ok bool) {
	if idx, found, constFlag, uninitialized := c.current.resolveLocal(name); found {
		if uninitialized {
			c.error("cannot read local '" + name + "' in its own initializer")
		}
		return code.ScopeLocal, idx, constFlag, true
	}
	if idx, found := c.resolveUpvalue(c.current, name); found {
		return code.ScopeUpvalue, idx, false, true
	}
	if c.knownGlobals[name] {
		return code.ScopeGlobal, 0, c.constGlobals[name], true
	}
	// Natives are pre-bound in every VM's globals table.
	if _, isNative := natives.ByName(name); isNative {
		return code.ScopeGlobal, 0, false, true
	}
	return code.ScopeGlobal, 0, false, false
}

// resolveUpvalue recursively resolves name against fs.Enclosing, adding
// an upvalue capture at every level of the chain it passes through.
func (c *Compiler) resolveUpvalue(fs *FunctionScope, name string) (int, bool) {
	if fs.Enclosing == nil {
		return 0, false
	}
	if idx, found, _, _ := fs.Enclosing.resolveLocal(name); found {
		return fs.addUpvalue(true, idx), true
	}
	if idx, found := c.resolveUpvalue(fs.Enclosing, name); found {
		return fs.addUpvalue(false, idx), true
	}
	return 0, false
}

// parseVariableName consumes an identifier and declares it, returning
// its scope/index/name for the caller to emit Define with once its
// initializer (if any) has been compiled.
func (c *Compiler) parseVariableName(isConst bool) (scope code.Scope, index int, name string) {
	c.consume(token.IDENT, "expected a name")
	name = intern.String(c.prev.Lexeme)
	scope, index = c.declareVariable(name, isConst)
	return
}

// --- scopes --------------------------------------------------------------

func (c *Compiler) beginScope() { c.current.beginScope() }

func (c *Compiler) endScope() {
	popped := c.current.endScope()
	if popped > 0 {
		c.emit(code.Instruction{Op: code.OpPopN, Operand: popped})
	}
}

// --- declarations ----------------------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.match(token.VAR):
		c.varDeclaration(false)
	case c.match(token.CONST):
		c.varDeclaration(true)
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.CLASS):
		c.classDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration(isConst bool) {
	scope, _, name := c.parseVariableName(isConst)
	if isConst {
		c.consume(token.ASSIGN, "const '"+name+"' requires an initializer")
		c.expression()
	} else if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emit(code.Instruction{Op: code.OpConst, Value: object.NilValue})
	}
	c.consume(token.SEMICOLON, "expected ';' after variable declaration")
	c.defineVariable(scope, name)
}

func (c *Compiler) funDeclaration() {
	scope, _, name := c.parseVariableName(false)
	c.current.markLatestInitialized() // a function may reference its own name (recursion)
	fn := c.function(name, false)
	c.emit(code.Instruction{Op: code.OpConst, Value: fn})
	c.defineVariable(scope, name)
}

// function compiles a nested `(params) { body }` against a fresh
// FunctionScope, sharing this Compiler's scanner position, and returns
// the compiled template. isMethod reserves local slot 0 for the
// receiver instead of a user parameter.
func (c *Compiler) function(name string, isMethod bool) *object.Function {
	enclosing := c.current
	c.current = newFunctionScope(enclosing, name, isMethod)
	c.current.beginScope()

	if isMethod {
		c.current.addLocal("this", false)
	}
	c.current.markLatestInitialized()

	c.consume(token.LPAREN, "expected '(' after function name")
	if !c.check(token.RPAREN) {
		for {
			c.current.Arity++
			_, _, pname := c.parseVariableName(false)
			c.defineVariable(code.ScopeLocal, pname)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after parameters")
	c.consume(token.LBRACE, "expected '{' before function body")
	c.block()

	return c.endFunction()
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "expected a class name")
	name := intern.String(c.prev.Lexeme)
	scope, _ := c.declareVariable(name, false)
	c.emit(code.Instruction{Op: code.OpConst, Value: &object.Class{Name: name, Methods: map[string]*object.Function{}}})
	c.defineVariable(scope, name)

	cls := &classState{enclosing: c.class}
	c.class = cls

	var parentScope code.Scope
	var parentIdx int
	var parentName string
	if c.match(token.LESS) {
		c.consume(token.IDENT, "expected superclass name")
		parentName = intern.String(c.prev.Lexeme)
		if parentName == name {
			c.error("a class cannot inherit from itself")
		}
		var ok bool
		parentScope, parentIdx, _, ok = c.resolveName(parentName)
		if !ok {
			c.error("undefined variable '" + parentName + "'")
		}
		cls.hasSuperclass = true
	}

	classScope, classIdx, _, ok := c.resolveName(name)
	_ = ok

	// A class with a superclass wraps its whole body in a block scope that
	// declares a local named "super" bound to the superclass value; every
	// method compiled inside captures it as an ordinary upvalue, exactly
	// as it would any other enclosing local, so super.method() needs no
	// resolver special-casing.
	if cls.hasSuperclass {
		c.beginScope()
		c.emit(code.Instruction{Op: code.OpResolve, Scope: parentScope, Operand: parentIdx, Name: parentName})
		c.current.addLocal("super", true)
		c.current.markLatestInitialized()

		superScope, superIdx, _, _ := c.resolveName("super")
		c.emit(code.Instruction{Op: code.OpResolve, Scope: superScope, Operand: superIdx, Name: "super"})
		c.emit(code.Instruction{
			Op: code.OpInherit, Scope: classScope, Operand: classIdx,
			Name: parentName, ClassName: name,
		})
	}

	c.consume(token.LBRACE, "expected '{' before class body")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.consume(token.IDENT, "expected a method name")
		methodName := intern.String(c.prev.Lexeme)
		fn := c.function(methodName, true)
		c.emit(code.Instruction{Op: code.OpConst, Value: fn})
		c.emit(code.Instruction{
			Op: code.OpMethod, Scope: classScope, Operand: classIdx,
			Name: methodName, ClassName: name,
		})
	}
	c.consume(token.RBRACE, "expected '}' after class body")

	if cls.hasSuperclass {
		c.endScope()
	}
	c.class = cls.enclosing
}

// --- statements --------------------------------------------------------

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "expected '}' after block")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after value")
	c.emitOp(code.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after expression")
	c.emitOp(code.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.current.Enclosing == nil {
		c.error("cannot return from top-level code")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.current.IsMethod && c.current.Name == "init" {
		c.error("cannot return a value from an initializer")
	}
	c.expression()
	c.consume(token.SEMICOLON, "expected ';' after return value")
	c.emitOp(code.OpReturn)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "expected '(' after 'if'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	thenPlaceholder := c.emitPlaceholder()
	c.statement()

	elsePlaceholder := c.emitPlaceholder()
	c.swapIn(thenPlaceholder, code.Instruction{Op: code.OpJump, Operand: c.chunk().Len(), JumpOnTrue: true})

	if c.match(token.ELSE) {
		c.statement()
	}
	c.swapIn(elsePlaceholder, code.Instruction{Op: code.OpForceJump, Operand: c.chunk().Len()})
	// Both the then-path's force-jump and the else-path's natural
	// fallthrough converge here, so a single Pop drops the condition
	// value exactly once regardless of which branch ran.
	c.emitOp(code.OpPop)
}

func (c *Compiler) whileStatement() {
	loopStart := c.chunk().Len()
	c.consume(token.LPAREN, "expected '(' after 'while'")
	c.expression()
	c.consume(token.RPAREN, "expected ')' after condition")

	exitPlaceholder := c.emitPlaceholder()
	c.emitOp(code.OpPop)
	c.statement()
	c.emit(code.Instruction{Op: code.OpForceJump, Operand: loopStart})

	c.swapIn(exitPlaceholder, code.Instruction{Op: code.OpJump, Operand: c.chunk().Len(), JumpOnTrue: true})
	c.emitOp(code.OpPop)
}

func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "expected '(' after 'for'")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration(false)
	default:
		c.expressionStatement()
	}

	loopStart := c.chunk().Len()
	exitPlaceholder := -1
	if !c.check(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "expected ';' after loop condition")
		exitPlaceholder = c.emitPlaceholder()
		c.emitOp(code.OpPop)
	} else {
		c.advance() // consume ';'
	}

	if !c.check(token.RPAREN) {
		bodyPlaceholder := c.emitPlaceholder()
		incrStart := c.chunk().Len()
		c.expression()
		c.emitOp(code.OpPop)
		c.consume(token.RPAREN, "expected ')' after for clauses")
		c.emit(code.Instruction{Op: code.OpForceJump, Operand: loopStart})
		bodyStart := c.chunk().Len()
		c.swapIn(bodyPlaceholder, code.Instruction{Op: code.OpForceJump, Operand: bodyStart})
		loopStart = incrStart
		c.statement()
		c.emit(code.Instruction{Op: code.OpForceJump, Operand: loopStart})
	} else {
		c.consume(token.RPAREN, "expected ')' after for clauses")
		c.statement()
		c.emit(code.Instruction{Op: code.OpForceJump, Operand: loopStart})
	}

	if exitPlaceholder != -1 {
		c.swapIn(exitPlaceholder, code.Instruction{Op: code.OpJump, Operand: c.chunk().Len(), JumpOnTrue: true})
		c.emitOp(code.OpPop)
	}

	c.endScope()
}

// --- expressions ---------------------------------------------------------

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	rule := c.rule(c.prev.Type)
	if rule.prefix == nil {
		c.error("expected an expression")
		return
	}
	canAssign := prec <= precAssignment
	rule.prefix(c, canAssign)

	for prec <= c.rule(c.curr.Type).prec {
		c.advance()
		infix := c.rule(c.prev.Type).infix
		if infix == nil {
			c.error("expected an expression")
			return
		}
		infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error("invalid assignment target")
	}
}

func (c *Compiler) number(_ bool) {
	v, err := strconv.ParseFloat(c.prev.Lexeme, 64)
	if err != nil {
		c.error("invalid number literal '" + c.prev.Lexeme + "'")
		return
	}
	c.emit(code.Instruction{Op: code.OpConst, Value: &object.Number{Value: v}})
}

func (c *Compiler) string_(_ bool) {
	c.emit(code.Instruction{Op: code.OpConst, Value: &object.String{Value: c.prev.Lexeme}})
}

func (c *Compiler) literal(_ bool) {
	switch c.prev.Type {
	case token.TRUE:
		c.emit(code.Instruction{Op: code.OpConst, Value: object.True})
	case token.FALSE:
		c.emit(code.Instruction{Op: code.OpConst, Value: object.False})
	case token.NIL:
		c.emit(code.Instruction{Op: code.OpConst, Value: object.NilValue})
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPAREN, "expected ')' after expression")
}

func (c *Compiler) unary(_ bool) {
	op := c.prev.Type
	c.parsePrecedence(precUnary)
	switch op {
	case token.MINUS:
		c.emit(code.Instruction{Op: code.OpUnary, Unary: code.UnaryNegate})
	case token.BANG:
		c.emit(code.Instruction{Op: code.OpUnary, Unary: code.UnaryNot})
	}
}

func (c *Compiler) binary(_ bool) {
	op := c.prev.Type
	rule := c.rule(op)
	c.parsePrecedence(rule.prec + 1)

	switch op {
	case token.PLUS:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryAdd})
	case token.MINUS:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinarySub})
	case token.STAR:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryMul})
	case token.SLASH:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryDiv})
	case token.EQUAL_EQUAL:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryEqual})
	case token.BANG_EQUAL:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryEqual})
		c.emit(code.Instruction{Op: code.OpUnary, Unary: code.UnaryNot})
	case token.LESS:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryLess})
	case token.GREATER:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryGreater})
	case token.LESS_EQUAL:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryGreater})
		c.emit(code.Instruction{Op: code.OpUnary, Unary: code.UnaryNot})
	case token.GREATER_EQUAL:
		c.emit(code.Instruction{Op: code.OpBinary, Binary: code.BinaryLess})
		c.emit(code.Instruction{Op: code.OpUnary, Unary: code.UnaryNot})
	}
}

func (c *Compiler) and_(_ bool) {
	placeholder := c.emitPlaceholder()
	c.emitOp(code.OpPop)
	c.parsePrecedence(precAnd)
	c.swapIn(placeholder, code.Instruction{Op: code.OpJump, Operand: c.chunk().Len(), JumpOnTrue: true})
}

func (c *Compiler) or_(_ bool) {
	placeholder := c.emitPlaceholder()
	c.emitOp(code.OpPop)
	c.parsePrecedence(precOr)
	c.swapIn(placeholder, code.Instruction{Op: code.OpJump, Operand: c.chunk().Len(), JumpOnTrue: false})
}

func (c *Compiler) variable(canAssign bool) {
	name := intern.String(c.prev.Lexeme)
	scope, idx, isConst, ok := c.resolveName(name)
	if !ok {
		c.error("undefined variable '" + name + "'")
	}

	if canAssign && c.match(token.ASSIGN) {
		if isConst {
			c.error("cannot assign to const '" + name + "'")
		}
		c.expression()
		c.emit(code.Instruction{Op: code.OpOverride, Scope: scope, Operand: idx, Name: name})
		return
	}
	c.emit(code.Instruction{Op: code.OpResolve, Scope: scope, Operand: idx, Name: name})
}

func (c *Compiler) call(_ bool) {
	argc := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			argc++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "expected ')' after arguments")
	c.emit(code.Instruction{Op: code.OpCall, Operand: argc})
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "expected a property name after '.'")
	name := intern.String(c.prev.Lexeme)

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emit(code.Instruction{Op: code.OpSet, Name: name})
		return
	}
	c.emit(code.Instruction{Op: code.OpGet, Name: name})
}

// pushThis emits the receiver onto the stack: a direct OpThis when `this`
// resolves to the current frame's own slot 0 (the common case, every
// method's own body), or a plain OpResolve through the upvalue array when
// it resolves as a capture of an enclosing method (a closure created
// inside a method that references `this`) — same fallback `super` relies
// on, since both are ordinary locals under the resolver's hood.
func (c *Compiler) pushThis() {
	if c.class == nil {
		c.error("'this' may only be used inside a method")
		return
	}
	scope, idx, _, ok := c.resolveName("this")
	if !ok {
		c.error("'this' is not bound here")
		return
	}
	if scope == code.ScopeLocal {
		c.emit(code.Instruction{Op: code.OpThis, Operand: idx})
	} else {
		c.emit(code.Instruction{Op: code.OpResolve, Scope: scope, Operand: idx, Name: "this"})
	}
}

func (c *Compiler) this_(_ bool) { c.pushThis() }

func (c *Compiler) super_(_ bool) {
	if c.class == nil {
		c.error("'super' may only be used inside a method")
	} else if !c.class.hasSuperclass {
		c.error("'super' may only be used in a class with a superclass")
	}
	c.consume(token.DOT, "expected '.' after 'super'")
	c.consume(token.IDENT, "expected a superclass method name")
	name := intern.String(c.prev.Lexeme)

	c.pushThis()
	superScope, superIdx, _, _ := c.resolveName("super")
	c.emit(code.Instruction{Op: code.OpGetSuper, Name: name, Scope: superScope, Operand: superIdx})
}
