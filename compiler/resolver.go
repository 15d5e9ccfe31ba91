package compiler

import "github.com/dr8co/lox/code"

// uninitialized marks a [local] that has been declared but whose
// initializer has not finished executing yet; [FunctionScope.resolveLocal]
// reports such a local as uninitialized (this is what makes `var x = x;` a
// compile error rather than reading an undefined stack slot).
const uninitialized = -1

// local is one entry of a [FunctionScope]'s locals stack: a name, the
// scope depth it was declared at, and whether it was declared `const`.
type local struct {
	name  string
	depth int
	isConst bool
}

// FunctionScope is the per-function compile-time resolver state
// described in §4.2: a locals stack, the current scope depth, a pointer
// to the enclosing function's scope (nil for the top-level script), and
// the function object being built, including the upvalue capture
// descriptors accumulated as nested functions resolve free variables
// against it.
type FunctionScope struct {
	Enclosing *FunctionScope

	locals []local
	depth  int

	Name     string
	Arity    int
	Chunk    *code.Chunk
	Captures []code.UpvalueCapture

	IsMethod bool
}

func newFunctionScope(enclosing *FunctionScope, name string, isMethod bool) *FunctionScope {
	return &FunctionScope{
		Enclosing: enclosing,
		Chunk:     &code.Chunk{},
		Name:      name,
		IsMethod:  isMethod,
	}
}

// beginScope enters a new lexical block within this function.
func (fs *FunctionScope) beginScope() { fs.depth++ }

// endScope leaves the innermost lexical block, drops the locals that were
// declared in it from the locals stack, and returns how many it dropped so
// the caller can emit a PopN for them.
func (fs *FunctionScope) endScope() int {
	fs.depth--
	popped := 0
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.depth {
		fs.locals = fs.locals[:len(fs.locals)-1]
		popped++
	}
	return popped
}

// addLocal appends an uninitialized local at the current depth. Callers
// must not call this at depth 0 (the top-level script scope) — depth-0
// declarations are tracked as globals instead; see [Compiler.declareVariable].
func (fs *FunctionScope) addLocal(name string, isConst bool) int {
	fs.locals = append(fs.locals, local{name: name, depth: uninitialized, isConst: isConst})
	return len(fs.locals) - 1
}

// markLatestInitialized flips the most recently added local to
// initialized, making it visible to resolution.
func (fs *FunctionScope) markLatestInitialized() {
	if len(fs.locals) == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.depth
}

// resolveLocal searches this function's own locals, most-recently added
// first, so that shadowing in a deeper scope wins. It reports found=false
// without searching enclosing scopes.
func (fs *FunctionScope) resolveLocal(name string) (idx int, found, isConst, isUninitialized bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true, fs.locals[i].isConst, fs.locals[i].depth == uninitialized
		}
	}
	return 0, false, false, false
}

// resolveInCurrentScope reports whether name is already declared at this
// function's *current* depth — used to reject redeclaration within one
// block while still permitting shadowing of an outer block's local.
func (fs *FunctionScope) resolveInCurrentScope(name string) bool {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != uninitialized && l.depth < fs.depth {
			break
		}
		if l.name == name {
			return true
		}
	}
	return false
}

// addUpvalue records that this function captures a variable from its
// enclosing function, either one of the enclosing function's own locals
// (isLocal true) or one of the enclosing function's already-resolved
// upvalues (isLocal false, flattening a transitive capture). Capturing
// the same source twice returns the existing slot instead of a
// duplicate.
func (fs *FunctionScope) addUpvalue(isLocal bool, index int) int {
	for i, c := range fs.Captures {
		if c.IsLocal == isLocal && c.Index == index {
			return i
		}
	}
	fs.Captures = append(fs.Captures, code.UpvalueCapture{IsLocal: isLocal, Index: index})
	return len(fs.Captures) - 1
}
