package natives

import (
	"testing"

	"github.com/dolthub/swiss"

	"github.com/dr8co/lox/object"
)

func TestLoadSeedsClock(t *testing.T) {
	globals := swiss.NewMap[string, object.Object](8)
	Load(globals)

	v, ok := globals.Get("clock")
	if !ok {
		t.Fatal("expected clock to be seeded into globals")
	}
	if _, ok := v.(*object.Native); !ok {
		t.Fatalf("clock is a %T, want *object.Native", v)
	}
}

func TestClockReturnsAPositiveNumber(t *testing.T) {
	n, ok := ByName("clock")
	if !ok {
		t.Fatal("expected a clock native")
	}
	result, err := n.Fn(nil)
	if err != nil {
		t.Fatalf("clock() returned an error: %v", err)
	}
	num, ok := result.(*object.Number)
	if !ok {
		t.Fatalf("clock() returned a %T, want *object.Number", result)
	}
	if num.Value <= 0 {
		t.Errorf("clock() = %v, want a positive timestamp", num.Value)
	}
}

func TestByNameUnknownNative(t *testing.T) {
	if _, ok := ByName("does-not-exist"); ok {
		t.Fatal("expected ByName to report false for an unregistered native")
	}
}
