// Package tamed is a structured concurrency runtime for functions that need
// to behave correctly whether they are called synchronously, awaited from
// async code, or scheduled onto a scope.
//
// A Func[T] wraps an ordinary func(context.Context) (T, error). Call it
// directly (Call) and it blocks to completion like any Go function. Wrap it
// in a scope (Schedule) and it starts immediately, handing back a Result[T]
// the caller can consume whenever convenient. Or defer starting it at all
// until someone asks for the value (Async) — nothing runs until the
// returned Result is awaited or blocked on.
//
// AsyncScope owns the tasks scheduled onto it and guarantees they reach a
// terminal state before the scope is considered closed. Its ExitMode
// decides whether closing waits for stragglers or cancels them, and its
// ErrorMode decides whether a failing task cancels its siblings.
package tamed
