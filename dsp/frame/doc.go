// Package frame adapts a block-oriented audio callback to a per-frame
// processing contract.
//
// A host calls [Adapter.Process] once per block with an input bus, an output
// bus and one automation array per parameter. The adapter walks the block one
// frame at a time, keeps [Context] current for that frame and asks the
// implementation for exactly one [Output] per frame, which it then shapes into
// the output bus.
//
// Implementations come in three shapes, selected by constructor:
//
//   - [Pure]: a memoryless function of the frame context. A single function
//     value may back any number of nodes.
//   - [Stateful]: a constructor producing one instance per node; the instance
//     must implement [Advancer].
//   - [Coroutine] and [Generator]: a suspendable computation resumed once per
//     frame. Its first frame is always silence, because the first resume only
//     runs up to the first suspension point; the output of every coroutine is
//     therefore delayed by one frame.
//
// The shape is resolved once, on the very first frame, and the resulting
// callable is reused for the lifetime of the node.
//
// # Allocation
//
// Context, its Params map and its Input slice are allocated once when the
// adapter is constructed. Steady-state blocks allocate nothing.
//
// # Termination
//
// A node terminates either when its implementation returns an Output with
// Done set, or when the string "stop" (any letter case) arrives on the control
// channel via [Adapter.HandleMessage]. Termination releases coroutine state,
// posts "done" on the node's [Port] exactly once, and makes every later
// Process call fail with [ErrContractViolation].
package frame
