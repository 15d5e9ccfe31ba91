package vm

import "github.com/dr8co/lox/object"

// maxCallDepth bounds Go-recursion-based call nesting the same way the
// reference implementation bounds its explicit call-frame name list.
const maxCallDepth = 255

// frame is the bookkeeping the VM keeps for one in-flight call, pushed by
// [VM.invoke] and popped when its chunk's instruction loop exits. Unlike a
// tree-walking frame it owns no storage for locals — those live in the
// shared operand stack starting at stackOffset — it exists so
// [VM.invoke] can name the currently active calls for a [errors.RuntimeError]
// stack trace, enforce maxCallDepth, and track this call's own instruction
// pointer into fn.Chunk.Code.
type frame struct {
	fn          *object.Function
	stackOffset int
	ip          int
}
