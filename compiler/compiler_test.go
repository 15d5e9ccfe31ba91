package compiler

import (
	"strings"
	"testing"

	"github.com/dr8co/lox/object"
)

func TestCompileValidPrograms(t *testing.T) {
	tests := []struct {
		name          string
		source        string
		wantContains  []string
		wantAbsent    []string
	}{
		{
			name:         "arithmetic emits a single binary add and mul",
			source:       `print 1 + 2 * 3;`,
			wantContains: []string{"OpBinary", "OpPrint"},
		},
		{
			name:         "block scope emits a PopN on exit",
			source:       `{ var a = 1; var b = 2; }`,
			wantContains: []string{"OpPopN 2"},
		},
		{
			name:         "if-else converges on a single trailing Pop",
			source:       `if (true) { print 1; } else { print 2; }`,
			wantContains: []string{"OpJump", "OpForceJump", "OpPop"},
		},
		{
			name:         "class with superclass emits Inherit",
			source:       `class A {} class B < A {}`,
			wantContains: []string{"OpInherit"},
		},
		{
			name:         "method referencing this emits OpThis",
			source:       `class A { hi() { return this; } }`,
			wantContains: []string{"OpThis"},
		},
		{
			name:         "super call emits GetSuper",
			source:       `class A { hi() {} } class B < A { hi() { super.hi(); } }`,
			wantContains: []string{"OpGetSuper"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := Compile(tt.source)
			if err != nil {
				t.Fatalf("unexpected compile error: %v", err)
			}
			// Functions and methods are compiled into their own chunks,
			// carried as OpConst values of the script chunk.
			dis := fn.Chunk.Disassemble(fn.Name)
			for _, in := range fn.Chunk.Code {
				if nested, ok := in.Value.(*object.Function); ok {
					dis += nested.Chunk.Disassemble(nested.Name)
				}
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(dis, want) {
					t.Errorf("disassembly missing %q:\n%s", want, dis)
				}
			}
			for _, absent := range tt.wantAbsent {
				if strings.Contains(dis, absent) {
					t.Errorf("disassembly unexpectedly contains %q:\n%s", absent, dis)
				}
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantSubstr string
	}{
		{
			name:       "assigning to a const global",
			source:     `const x = 1; x = 2;`,
			wantSubstr: "const",
		},
		{
			name:       "redeclaration in the same block",
			source:     `{ var a = 1; var a = 2; }`,
			wantSubstr: "redeclaration",
		},
		{
			name:       "reading a local in its own initializer",
			source:     `{ var a = a; }`,
			wantSubstr: "own initializer",
		},
		{
			name:       "self-inheriting class",
			source:     `class A < A {}`,
			wantSubstr: "itself",
		},
		{
			name:       "this outside a method",
			source:     `print this;`,
			wantSubstr: "'this'",
		},
		{
			name:       "super outside a subclass",
			source:     `class A { hi() { super.hi(); } }`,
			wantSubstr: "'super'",
		},
		{
			name:       "invalid assignment target",
			source:     `1 + 2 = 3;`,
			wantSubstr: "invalid assignment target",
		},
		{
			name:       "return a value from init",
			source:     `class A { init() { return 1; } }`,
			wantSubstr: "initializer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.source)
			if err == nil {
				t.Fatal("expected a compile error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSubstr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantSubstr)
			}
		})
	}
}

func TestForwardReferenceToGlobalIsACompileError(t *testing.T) {
	// A global becomes known to the compiler only once its depth-0
	// declaration has been parsed, so a function body compiled before
	// that declaration cannot refer to it.
	_, err := Compile(`fun useLater() { return later; } var later = 1;`)
	if err == nil {
		t.Fatal("expected a compile error for a forward global reference, got nil")
	}
	if !strings.Contains(err.Error(), "undefined variable 'later'") {
		t.Errorf("error %q does not report 'later' as undefined", err.Error())
	}
}
