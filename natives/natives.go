// Package natives holds the host-implemented callables seeded into a
// fresh VM's globals table, mirroring the table-of-builtins pattern the
// donor's tree-walking evaluator used for its own built-ins, adapted to
// the bytecode VM's [object.Native] callable shape.
package natives

import (
	"time"

	"github.com/dolthub/swiss"

	"github.com/dr8co/lox/object"
)

// entry pairs a native's name and arity with its implementation, the
// same table shape the evaluator used for its own builtins.
var entries = []struct {
	Name  string
	Arity int
	Fn    func(args []object.Object) (object.Object, error)
}{
	{"clock", 0, clock},
}

// clock is the one native the language guarantees: a zero-arity callable
// returning the current time as a Number of milliseconds since the Unix
// epoch.
func clock(args []object.Object) (object.Object, error) {
	return &object.Number{Value: float64(time.Now().UnixMilli())}, nil
}

// Load seeds every entry in this package's native table into globals,
// implementing the "load_natives(globals_table)" hook: a fresh
// [github.com/dr8co/lox/vm.VM] calls this once at construction so every
// script sees `clock` (and any natives added here later) pre-bound
// before its first instruction runs.
func Load(globals *swiss.Map[string, object.Object]) {
	for _, e := range entries {
		globals.Put(e.Name, &object.Native{Name: e.Name, Arity: e.Arity, Fn: e.Fn})
	}
}

// ByName looks up a native by name directly, for callers (tests, the
// compiler's resolution of global names) that want one without going
// through a globals table.
func ByName(name string) (*object.Native, bool) {
	for _, e := range entries {
		if e.Name == name {
			return &object.Native{Name: e.Name, Arity: e.Arity, Fn: e.Fn}, true
		}
	}
	return nil, false
}
