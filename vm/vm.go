// Package vm executes compiled Lox bytecode: a single fixed-size operand
// stack threaded through a chain of recursive [VM.invoke] invocations (one
// Go call per active Lox call, bounded by maxCallDepth), a globals table
// backed by a Swiss-table map, and an open-upvalue index keyed by
// absolute stack slot so sibling closures created from the same
// enclosing call observe the same captured variable.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/dolthub/swiss"
	"github.com/sirupsen/logrus"

	"github.com/dr8co/lox/code"
	"github.com/dr8co/lox/errors"
	"github.com/dr8co/lox/natives"
	"github.com/dr8co/lox/object"
)

// stackMax is the fixed capacity of the operand stack, mirroring the
// reference implementation's fixed STACK_MAX array: because the backing
// array never reallocates, an open [object.Upvalue] can point directly
// at a stack slot's address for as long as it stays open.
const stackMax = 1 << 16

// VM is a single-threaded bytecode interpreter. The zero value is not
// usable; construct one with [New].
type VM struct {
	stack [stackMax]object.Object
	sp    int

	globals *swiss.Map[string, object.Object]

	// frames names every currently active call, innermost last, purely
	// for maxCallDepth enforcement and RuntimeError stack traces — locals
	// themselves live on the shared stack, not here.
	frames []frame

	// openUpvalues indexes still-open capture cells by the absolute stack
	// slot they point at, so that two closures capturing the same local
	// from the same still-live call share one cell.
	openUpvalues map[int]*object.Upvalue

	// Stdout receives `print` output; defaults to os.Stdout. Tests set
	// this to a buffer to assert on program output.
	Stdout io.Writer

	log *logrus.Logger
}

// New constructs a VM whose globals table holds only the natives. When
// debug is true, [VM.Run] disassembles the script's chunk to the logger
// at debug level before it runs; the chunks of the functions and methods
// the script defines are not disassembled.
func New(debug bool) *VM {
	log := logrus.New()
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	vm := &VM{
		globals:      swiss.NewMap[string, object.Object](64),
		openUpvalues: make(map[int]*object.Upvalue),
		Stdout:       os.Stdout,
		log:          log,
	}
	natives.Load(vm.globals)
	return vm
}

// Globals exposes the globals table for native-function registration; see
// [github.com/dr8co/lox/natives.Load].
func (vm *VM) Globals() *swiss.Map[string, object.Object] { return vm.globals }

// Run executes script, the implicit top-level function produced by
// [github.com/dr8co/lox/compiler.Compile], and returns the last value
// `return`ed from it (Nil for a script that falls off the end, which is
// every script — scripts have no explicit return).
func (vm *VM) Run(script *object.Function) (object.Object, error) {
	if vm.log.IsLevelEnabled(logrus.DebugLevel) {
		vm.log.Debug(script.Chunk.Disassemble(script.Name))
	}
	return vm.invoke(script, 0, 0)
}

func (vm *VM) push(v object.Object) error {
	if vm.sp >= stackMax {
		return &errors.RuntimeError{Message: "stack overflow"}
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return nil
}

func (vm *VM) pop() object.Object {
	vm.sp--
	v := vm.stack[vm.sp]
	vm.stack[vm.sp] = nil
	return v
}

func (vm *VM) peek(distance int) object.Object { return vm.stack[vm.sp-1-distance] }

func (vm *VM) truncate(to int) {
	for i := to; i < vm.sp; i++ {
		vm.stack[i] = nil
	}
	vm.sp = to
}

// --- upvalues -------------------------------------------------------------

func (vm *VM) captureUpvalue(absoluteIndex int) *object.Upvalue {
	if uv, ok := vm.openUpvalues[absoluteIndex]; ok {
		return uv
	}
	uv := &object.Upvalue{Location: &vm.stack[absoluteIndex]}
	vm.openUpvalues[absoluteIndex] = uv
	return uv
}

// closeUpvalues closes every open upvalue pointing at or above from,
// called whenever the stack slots they reference are about to be
// reclaimed by a returning call or by a block's PopN.
func (vm *VM) closeUpvalues(from int) {
	for idx, uv := range vm.openUpvalues {
		if idx >= from {
			uv.Close()
			delete(vm.openUpvalues, idx)
		}
	}
}

// instantiate turns a compile-time function template into a closure bound
// to the upvalues described by its Captures, resolved against the
// currently executing frame.
func (vm *VM) instantiate(template *object.Function, fr *frame) *object.Function {
	return template.Instantiate(func(cap code.UpvalueCapture) *object.Upvalue {
		if cap.IsLocal {
			return vm.captureUpvalue(fr.stackOffset + cap.Index)
		}
		return fr.fn.Upvalues[cap.Index]
	})
}

// --- bindings (Resolve/Override share this with Inherit/Method lookups) ---

func (vm *VM) readBinding(scope code.Scope, idx int, name string, fr *frame) (object.Object, error) {
	switch scope {
	case code.ScopeGlobal:
		v, ok := vm.globals.Get(name)
		if !ok {
			return nil, vm.runtimeErrorf(fr, "undefined variable '%s'", name)
		}
		return v, nil
	case code.ScopeLocal:
		return vm.stack[fr.stackOffset+idx], nil
	case code.ScopeUpvalue:
		return *fr.fn.Upvalues[idx].Location, nil
	default:
		return nil, vm.runtimeErrorf(fr, "invalid scope")
	}
}

func (vm *VM) writeBinding(scope code.Scope, idx int, name string, fr *frame, val object.Object) error {
	switch scope {
	case code.ScopeGlobal:
		if _, ok := vm.globals.Get(name); !ok {
			return vm.runtimeErrorf(fr, "undefined variable '%s'", name)
		}
		vm.globals.Put(name, val)
	case code.ScopeLocal:
		vm.stack[fr.stackOffset+idx] = val
	case code.ScopeUpvalue:
		*fr.fn.Upvalues[idx].Location = val
	}
	return nil
}

// --- errors -----------------------------------------------------------

func (vm *VM) runtimeErrorf(fr *frame, format string, args ...any) error {
	line := 0
	if fr != nil {
		line = fr.fn.Chunk.Lines[fr.ip]
	}
	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		trace = append(trace, vm.frames[i].fn.Name)
	}
	return &errors.RuntimeError{Message: fmt.Sprintf(format, args...), Line: line, StackTrace: trace}
}

// --- calling ------------------------------------------------------------

// invoke runs fn's chunk to completion with argc arguments already sitting
// on the stack, returning its result. For a plain function the arguments
// occupy [stackOffset, stackOffset+argc); for a method the receiver sits
// at stackOffset and the arguments follow it. Locals beyond the arguments
// are pushed by the chunk itself as it declares them.
func (vm *VM) invoke(fn *object.Function, stackOffset, argc int) (object.Object, error) {
	if argc != fn.Arity {
		return nil, vm.runtimeErrorf(nil, "expected %d arguments but got %d", fn.Arity, argc)
	}
	if len(vm.frames) >= maxCallDepth {
		return nil, vm.runtimeErrorf(nil, "call stack overflow")
	}

	fr := &frame{fn: fn, stackOffset: stackOffset}
	vm.frames = append(vm.frames, *fr)
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()

	chunk := fn.Chunk
	for {
		instr := chunk.Code[fr.ip]

		switch instr.Op {
		case code.OpNop:

		case code.OpConst:
			v := instr.Value
			if template, ok := v.(*object.Function); ok {
				v = vm.instantiate(template, fr)
			}
			if err := vm.push(v.(object.Object)); err != nil {
				return nil, err
			}

		case code.OpPop:
			vm.pop()

		case code.OpPopN:
			vm.closeUpvalues(vm.sp - instr.Operand)
			vm.truncate(vm.sp - instr.Operand)

		case code.OpUnary:
			v := vm.pop()
			switch instr.Unary {
			case code.UnaryNegate:
				n, ok := v.(*object.Number)
				if !ok {
					return nil, vm.runtimeErrorf(fr, "operand must be a number")
				}
				if err := vm.push(&object.Number{Value: -n.Value}); err != nil {
					return nil, err
				}
			case code.UnaryNot:
				t, err := object.Truthy(v)
				if err != nil {
					return nil, vm.runtimeErrorf(fr, "%s", err)
				}
				if err := vm.push(object.Bool1(!t)); err != nil {
					return nil, err
				}
			}

		case code.OpBinary:
			r := vm.pop()
			l := vm.pop()
			result, err := vm.binaryOp(instr.Binary, l, r)
			if err != nil {
				return nil, vm.runtimeErrorf(fr, "%s", err)
			}
			if err := vm.push(result); err != nil {
				return nil, err
			}

		case code.OpPrint:
			v := vm.pop()
			fmt.Fprintln(vm.Stdout, v.Inspect())

		case code.OpDefine:
			if instr.Scope == code.ScopeGlobal {
				vm.globals.Put(instr.Name, vm.pop())
			}
			// Local/Upvalue: value already sits in its permanent slot.

		case code.OpResolve:
			v, err := vm.readBinding(instr.Scope, instr.Operand, instr.Name, fr)
			if err != nil {
				return nil, err
			}
			if err := vm.push(v); err != nil {
				return nil, err
			}

		case code.OpOverride:
			if err := vm.writeBinding(instr.Scope, instr.Operand, instr.Name, fr, vm.peek(0)); err != nil {
				return nil, err
			}

		case code.OpThis:
			if err := vm.push(vm.stack[fr.stackOffset+instr.Operand]); err != nil {
				return nil, err
			}

		case code.OpJump:
			t, err := object.Truthy(vm.peek(0))
			if err != nil {
				return nil, vm.runtimeErrorf(fr, "%s", err)
			}
			if t == instr.JumpOnTrue {
				fr.ip++
				continue
			}
			fr.ip = instr.Operand
			continue

		case code.OpForceJump:
			fr.ip = instr.Operand
			continue

		case code.OpCall:
			result, err := vm.dispatchCall(fr, instr.Operand)
			if err != nil {
				return nil, err
			}
			if err := vm.push(result); err != nil {
				return nil, err
			}

		case code.OpSet:
			val := vm.pop()
			target := vm.pop()
			inst, ok := target.(*object.Instance)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "only instances have fields")
			}
			inst.Fields[instr.Name] = val
			if err := vm.push(val); err != nil {
				return nil, err
			}

		case code.OpGet:
			target := vm.pop()
			v, err := vm.getProperty(fr, target, instr.Name)
			if err != nil {
				return nil, err
			}
			if err := vm.push(v); err != nil {
				return nil, err
			}

		case code.OpGetSuper:
			instanceVal := vm.pop()
			inst, ok := instanceVal.(*object.Instance)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "'super' is only valid inside a method")
			}
			superVal, err := vm.readBinding(instr.Scope, instr.Operand, "super", fr)
			if err != nil {
				return nil, err
			}
			super, ok := superVal.(*object.Class)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "superclass binding is not a class")
			}
			method, ok := super.FindMethod(instr.Name)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "undefined property '%s'", instr.Name)
			}
			if err := vm.push(&object.BoundMethod{Receiver: inst, Method: method}); err != nil {
				return nil, err
			}

		case code.OpInherit:
			parentVal := vm.pop()
			parent, ok := parentVal.(*object.Class)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "superclass must be a class")
			}
			childVal, err := vm.readBinding(instr.Scope, instr.Operand, instr.ClassName, fr)
			if err != nil {
				return nil, err
			}
			child, ok := childVal.(*object.Class)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "'%s' is not a class", instr.ClassName)
			}
			child.Inherit(parent)

		case code.OpMethod:
			methodVal := vm.pop()
			method, ok := methodVal.(*object.Function)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "method body did not compile to a function")
			}
			classVal, err := vm.readBinding(instr.Scope, instr.Operand, instr.ClassName, fr)
			if err != nil {
				return nil, err
			}
			class, ok := classVal.(*object.Class)
			if !ok {
				return nil, vm.runtimeErrorf(fr, "'%s' is not a class", instr.ClassName)
			}
			class.Methods[instr.Name] = method

		case code.OpReturn:
			retVal := vm.pop()
			vm.closeUpvalues(fr.stackOffset)
			return retVal, nil

		default:
			return nil, vm.runtimeErrorf(fr, "unknown opcode %s", instr.Op)
		}

		fr.ip++
	}
}

// dispatchCall implements the Call instruction's callee-kind dispatch. It
// consumes the callee and its argc arguments from the stack and returns
// the call's result; the caller (the OpCall case above) pushes it.
func (vm *VM) dispatchCall(fr *frame, argc int) (object.Object, error) {
	calleeIdx := vm.sp - argc - 1
	callee := vm.stack[calleeIdx]

	switch c := callee.(type) {
	case *object.Function:
		result, err := vm.invoke(c, calleeIdx+1, argc)
		if err != nil {
			return nil, err
		}
		vm.truncate(calleeIdx)
		return result, nil

	case *object.Native:
		if argc != c.Arity {
			return nil, vm.runtimeErrorf(fr, "expected %d arguments but got %d", c.Arity, argc)
		}
		args := make([]object.Object, argc)
		copy(args, vm.stack[calleeIdx+1:calleeIdx+1+argc])
		result, err := c.Fn(args)
		if err != nil {
			return nil, vm.runtimeErrorf(fr, "%s", err)
		}
		vm.truncate(calleeIdx)
		return result, nil

	case *object.BoundMethod:
		vm.stack[calleeIdx] = c.Receiver
		result, err := vm.invoke(c.Method, calleeIdx, argc)
		if err != nil {
			return nil, err
		}
		vm.truncate(calleeIdx)
		return result, nil

	case *object.Class:
		inst := object.NewInstance(c)
		if initFn, ok := c.FindMethod("init"); ok {
			vm.stack[calleeIdx] = inst
			if _, err := vm.invoke(initFn, calleeIdx, argc); err != nil {
				return nil, err
			}
		} else if argc != 0 {
			return nil, vm.runtimeErrorf(fr, "expected 0 arguments but got %d", argc)
		}
		vm.truncate(calleeIdx)
		return inst, nil

	default:
		return nil, vm.runtimeErrorf(fr, "can only call functions and classes")
	}
}

func (vm *VM) getProperty(fr *frame, target object.Object, name string) (object.Object, error) {
	switch t := target.(type) {
	case *object.Instance:
		if v, ok := t.Get(name); ok {
			return v, nil
		}
		return nil, vm.runtimeErrorf(fr, "undefined property '%s'", name)
	case *object.Class:
		if fn, ok := t.FindMethod(name); ok {
			return fn, nil
		}
		return nil, vm.runtimeErrorf(fr, "undefined property '%s'", name)
	default:
		return nil, vm.runtimeErrorf(fr, "only instances and classes have properties")
	}
}

func (vm *VM) binaryOp(op code.BinaryKind, l, r object.Object) (object.Object, error) {
	switch op {
	case code.BinaryAdd:
		if ln, ok := l.(*object.Number); ok {
			if rn, ok := r.(*object.Number); ok {
				return &object.Number{Value: ln.Value + rn.Value}, nil
			}
		}
		_, lStr := l.(*object.String)
		_, rStr := r.(*object.String)
		if lStr || rStr {
			return &object.String{Value: l.Inspect() + r.Inspect()}, nil
		}
		return nil, fmt.Errorf("operands must be two numbers or two strings")
	case code.BinarySub, code.BinaryMul, code.BinaryDiv:
		ln, lok := l.(*object.Number)
		rn, rok := r.(*object.Number)
		if !lok || !rok {
			return nil, fmt.Errorf("operands must be numbers")
		}
		switch op {
		case code.BinarySub:
			return &object.Number{Value: ln.Value - rn.Value}, nil
		case code.BinaryMul:
			return &object.Number{Value: ln.Value * rn.Value}, nil
		default:
			return &object.Number{Value: ln.Value / rn.Value}, nil
		}
	case code.BinaryEqual:
		return object.Bool1(object.Equal(l, r)), nil
	case code.BinaryLess, code.BinaryGreater:
		ln, lok := l.(*object.Number)
		rn, rok := r.(*object.Number)
		if !lok || !rok {
			return nil, fmt.Errorf("operands must be numbers")
		}
		if op == code.BinaryLess {
			return object.Bool1(ln.Value < rn.Value), nil
		}
		return object.Bool1(ln.Value > rn.Value), nil
	default:
		return nil, fmt.Errorf("unknown binary operator")
	}
}
