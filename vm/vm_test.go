package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dr8co/lox/compiler"
)

// run compiles and executes source, returning everything printed to
// stdout with its trailing newline trimmed.
func run(t *testing.T, source string) string {
	t.Helper()
	fn, err := compiler.Compile(source)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	var out bytes.Buffer
	m := New(false)
	m.Stdout = &out
	if _, err := m.Run(fn); err != nil {
		t.Fatalf("runtime error: %v", err)
	}
	return strings.TrimRight(out.String(), "\n")
}

// TestEndToEndScenarios exercises the concrete source-to-stdout
// scenarios: arithmetic precedence, block scoping/shadowing, loops,
// closures that each capture their own value, single inheritance, and
// super dispatch.
func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"arithmetic precedence",
			`print 1 + 2 * 3;`,
			"7",
		},
		{
			"block shadowing",
			`var a = 1; { var a = 2; print a; } print a;`,
			"2\n1",
		},
		{
			"while loop",
			`var i = 0; while (i < 3) { print i; i = i + 1; }`,
			"0\n1\n2",
		},
		{
			"closures over distinct captures",
			`fun make(x) { fun get() { return x; } return get; }
			 var f = make(42); var g = make(7); print f(); print g();`,
			"42\n7",
		},
		{
			"inherited method",
			`class A { hi() { print "A"; } }
			 class B < A { }
			 B().hi();`,
			"A",
		},
		{
			"super dispatches to the superclass method",
			`class A { hi() { print "A"; } }
			 class B < A { hi() { super.hi(); print "B"; } }
			 B().hi();`,
			"A\nB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(t, tt.source); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConstAssignmentIsACompileError(t *testing.T) {
	_, err := compiler.Compile(`const x = 1; x = 2;`)
	if err == nil {
		t.Fatal("expected a compile error assigning to a const, got nil")
	}
	if !strings.Contains(err.Error(), "const") {
		t.Errorf("error %q does not mention const", err.Error())
	}
}

func TestShortCircuitAnd(t *testing.T) {
	out := run(t, `fun boom() { print "boom"; return true; } print false and boom();`)
	if out != "false" {
		t.Errorf("and short-circuit: got %q, want %q (boom must not print)", out, "false")
	}
}

func TestShortCircuitOr(t *testing.T) {
	out := run(t, `fun boom() { print "boom"; return true; } print true or boom();`)
	if out != "true" {
		t.Errorf("or short-circuit: got %q, want %q (boom must not print)", out, "true")
	}
}

func TestArityMismatchIsARuntimeError(t *testing.T) {
	fn, err := compiler.Compile(`fun add(a, b) { return a + b; } add(1);`)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	m := New(false)
	m.Stdout = &bytes.Buffer{}
	_, err = m.Run(fn)
	if err == nil {
		t.Fatal("expected an arity-mismatch runtime error, got nil")
	}
	if !strings.Contains(err.Error(), "expected") || !strings.Contains(err.Error(), "got") {
		t.Errorf("error %q does not mention expected/received argument counts", err.Error())
	}
}

func TestUpvalueMutationIsSharedAcrossClosures(t *testing.T) {
	out := run(t, `
		fun counter() {
			var n = 0;
			fun inc() { n = n + 1; return n; }
			fun read() { return n; }
			print inc();
			print inc();
			print read();
		}
		counter();`)
	if out != "1\n2\n2" {
		t.Errorf("got %q, want %q", out, "1\n2\n2")
	}
}

func TestMethodBindingCapturesReceiver(t *testing.T) {
	out := run(t, `
		class Box { init(v) { this.v = v; } get() { return this.v; } }
		var b = Box(10);
		var bound = b.get;
		print bound();`)
	if out != "10" {
		t.Errorf("got %q, want %q", out, "10")
	}
}

func TestOverriddenMethodWins(t *testing.T) {
	out := run(t, `
		class A { hi() { print "A"; } }
		class B < A { hi() { print "B"; } }
		B().hi();`)
	if out != "B" {
		t.Errorf("got %q, want %q", out, "B")
	}
}

func TestClockNativeReturnsANumber(t *testing.T) {
	out := run(t, `print clock() > 0;`)
	if out != "true" {
		t.Errorf("got %q, want %q", out, "true")
	}
}
