// Package object defines the runtime value system for the Lox language.
//
// This package implements the tagged-variant values the VM operates on:
// numbers, strings, booleans, nil, functions (with their closed-over
// upvalues), natives, classes, instances, and bound methods.
//
// Key components:
//   - [Object] interface: the base interface for all runtime values
//   - Concrete value types ([Number], [String], [Bool], [Function], [Class], [Instance], ...)
//   - [Upvalue]: the open/closed capture cell shared between a closure and
//     the enclosing frame it was created from
//
// The compiler and VM packages use this package to represent and
// manipulate values during compilation and execution.
package object

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dr8co/lox/code"
)

//nolint:revive
const (
	NUMBER_OBJ      = "NUMBER"
	STRING_OBJ      = "STRING"
	BOOL_OBJ        = "BOOL"
	NIL_OBJ         = "NIL"
	FUNCTION_OBJ    = "FUNCTION"
	NATIVE_OBJ      = "NATIVE"
	CLASS_OBJ       = "CLASS"
	INSTANCE_OBJ    = "INSTANCE"
	BOUND_METHOD_OBJ = "BOUND_METHOD"
)

// Type represents the type of an [Object].
type Type string

// Object is the interface every Lox runtime value implements.
type Object interface {
	// Type returns the type tag of the object.
	Type() Type

	// Inspect returns a string representation of the object, used by
	// `print` and by the REPL's result rendering.
	Inspect() string
}

// Truthy projects an Object to a boolean per the language's truthiness
// rule: Nil is false, Bool is itself, Number is true unless exactly 0,
// String is always true. Any other kind cannot be coerced and reports an
// error.
func Truthy(o Object) (bool, error) {
	switch v := o.(type) {
	case *Nil:
		return false, nil
	case *Bool:
		return v.Value, nil
	case *Number:
		return v.Value != 0, nil
	case *String:
		return true, nil
	default:
		return false, fmt.Errorf("cannot coerce %s to a boolean", o.Type())
	}
}

// Equal reports structural equality between two values, per the
// language's `==` semantics: values of different types are never equal.
func Equal(a, b Object) bool {
	switch av := a.(type) {
	case *Number:
		bv, ok := b.(*Number)
		return ok && av.Value == bv.Value
	case *String:
		bv, ok := b.(*String)
		return ok && av.Value == bv.Value
	case *Bool:
		bv, ok := b.(*Bool)
		return ok && av.Value == bv.Value
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	default:
		return a == b // shared-identity equality for functions/classes/instances/natives
	}
}

// Number is a Lox number: a 64-bit float.
type Number struct{ Value float64 }

func (n *Number) Type() Type { return NUMBER_OBJ }
func (n *Number) Inspect() string {
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// String is a Lox string.
type String struct{ Value string }

func (s *String) Type() Type      { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

// Bool is a Lox boolean.
type Bool struct{ Value bool }

func (b *Bool) Type() Type      { return BOOL_OBJ }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.Value) }

// Nil is the Lox nil value. There is exactly one meaningful instance,
// [NilValue].
type Nil struct{}

func (n *Nil) Type() Type      { return NIL_OBJ }
func (n *Nil) Inspect() string { return "nil" }

// NilValue is the shared nil singleton.
var NilValue = &Nil{}

// True and False are the shared boolean singletons.
var (
	True  = &Bool{Value: true}
	False = &Bool{Value: false}
)

// Bool1 returns the shared True/False singleton for a Go bool.
func Bool1(b bool) *Bool {
	if b {
		return True
	}
	return False
}

// Upvalue is a capture cell shared between a closure and the enclosing
// call it was created from. While Location points into the enclosing
// frame's stack window, the upvalue is open: reads and writes go through
// to the live local. When the enclosing frame returns, the VM closes the
// upvalue by copying the current value into Closed and repointing
// Location at it, so the capture keeps working after the local's stack
// slot is gone.
type Upvalue struct {
	Location *Object
	Closed   Object
}

// Close snapshots the upvalue's current value into itself and detaches
// it from the stack slot it was pointing at.
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// Function is a Lox function or method: a name, its parameter count, its
// compiled chunk, the compile-time description of what each of its
// upvalue slots captures, and — once instantiated as a closure at
// runtime — the concrete [Upvalue] cells it closed over.
//
// The same struct is used both as the compile-time template produced by
// the compiler (Upvalues nil) and as the runtime closure instantiated
// from it each time its enclosing `Const` instruction runs (Upvalues
// populated, one cell per entry in Captures).
type Function struct {
	Name     string
	Arity    int
	Chunk    *code.Chunk
	Captures []code.UpvalueCapture

	Upvalues []*Upvalue

	// IsMethod marks a function compiled as a class method, whose slot 0
	// is implicitly bound to the receiver rather than a user parameter.
	IsMethod bool
}

func (f *Function) Type() Type { return FUNCTION_OBJ }
func (f *Function) Inspect() string {
	if f.Name == "" {
		return "<fn>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

// Instantiate returns a fresh closure over template, with one [Upvalue]
// cell per entry in template.Captures, populated from the currently
// executing enclosing frame by resolveCapture. A template with no
// captures is returned as is.
func (f *Function) Instantiate(resolveCapture func(code.UpvalueCapture) *Upvalue) *Function {
	if len(f.Captures) == 0 {
		return f
	}
	clone := *f
	clone.Upvalues = make([]*Upvalue, len(f.Captures))
	for i, cap := range f.Captures {
		clone.Upvalues[i] = resolveCapture(cap)
	}
	return &clone
}

// Native is a host-implemented callable seeded into the globals table by
// [github.com/dr8co/lox/natives.Load]. Arity is checked by the VM before
// Fn runs, the same as a compiled [Function]'s arity — Fn itself can
// assume len(args) == Arity.
type Native struct {
	Name  string
	Arity int
	Fn    func(args []Object) (Object, error)
}

func (n *Native) Type() Type      { return NATIVE_OBJ }
func (n *Native) Inspect() string { return fmt.Sprintf("<native %s>", n.Name) }

// Class is a Lox class: a name and its method table. [Class.Inherit]
// copies a parent's methods into a child, skipping any the child already
// overrides.
type Class struct {
	Name    string
	Methods map[string]*Function
}

func (c *Class) Type() Type      { return CLASS_OBJ }
func (c *Class) Inspect() string { return fmt.Sprintf("<class %s>", c.Name) }

// Inherit copies every method of parent not already defined on c.
func (c *Class) Inherit(parent *Class) {
	for name, fn := range parent.Methods {
		if _, overridden := c.Methods[name]; !overridden {
			c.Methods[name] = fn
		}
	}
}

// FindMethod looks up name on the class's own method table only (no
// superclass chain — inheritance is flattened into Methods at
// [Class.Inherit] time).
func (c *Class) FindMethod(name string) (*Function, bool) {
	fn, ok := c.Methods[name]
	return fn, ok
}

// Instance is a Lox object instantiated from a [Class]. Field lookup
// through [Instance.Get] falls through to the class's methods,
// materializing a [BoundMethod] on a hit.
type Instance struct {
	Class  *Class
	Fields map[string]Object
}

func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Object)}
}

func (i *Instance) Type() Type { return INSTANCE_OBJ }
func (i *Instance) Inspect() string {
	var b strings.Builder
	b.WriteString(i.Class.Name)
	b.WriteString(" instance")
	return b.String()
}

// Get resolves name as a field first, then as a bound method.
func (i *Instance) Get(name string) (Object, bool) {
	if v, ok := i.Fields[name]; ok {
		return v, true
	}
	if fn, ok := i.Class.FindMethod(name); ok {
		return &BoundMethod{Receiver: i, Method: fn}, true
	}
	return nil, false
}

// BoundMethod pairs a class method with the specific instance it should
// receive as `this` when called.
type BoundMethod struct {
	Receiver *Instance
	Method   *Function
}

func (b *BoundMethod) Type() Type { return BOUND_METHOD_OBJ }
func (b *BoundMethod) Inspect() string {
	return fmt.Sprintf("<bound method %s.%s>", b.Receiver.Class.Name, b.Method.Name)
}
