package tamed

import "context"

// ReservedScopeParam is the spelling a declarative Registry reserves for
// the implicit scope argument. A Func built from a named-parameter source
// (for example a CLI/config-driven registration rather than a literal Go
// signature, see Registry) must not declare a parameter under this name —
// doing so is a ConfigError, not a runtime surprise.
const ReservedScopeParam = "_async_scope"

// FuncOptions configures a Func at construction time.
type FuncOptions struct {
	Name string
}

// FuncOption configures a Func at construction time.
type FuncOption func(*FuncOptions)

// WithFuncName attaches a diagnostic name to a Func, returned by Name and
// by the AnyFunc that Erase builds from it.
func WithFuncName(name string) FuncOption { return func(o *FuncOptions) { o.Name = name } }

// Func wraps an asynchronous function so a single definition can be
// invoked from a synchronous caller (Call), an asynchronous caller
// (Async), or a lexically-scoped concurrency region (Schedule), adapting
// how it runs and how its result is delivered in each case. The three
// call shapes are three distinct methods/functions rather than one
// polymorphic entry point: Go's static typing cannot return three
// different shapes (value, lazy handle, eager handle) from one call, and
// papering over that distinction is exactly what the source material
// warns against.
type Func[T any] struct {
	fn   func(context.Context) (T, error)
	opts FuncOptions
}

// New wraps fn into a Func. fn is never invoked by New: nothing runs
// until Call, Async's returned Result is awaited/blocked, or Schedule
// hands it to a scope.
func New[T any](fn func(context.Context) (T, error), opts ...FuncOption) *Func[T] {
	if fn == nil {
		panic(misuse("New called with a nil function"))
	}
	var o FuncOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Func[T]{fn: fn, opts: o}
}

// Name returns the Func's diagnostic name, or "" if none was given.
func (f *Func[T]) Name() string { return f.opts.Name }

// Call is the sync-context, scope-absent dispatch: it acquires no scope,
// runs the wrapped function to completion on the calling goroutine, and
// returns its value or error immediately. It blocks the caller exactly as
// an ordinary Go function call would.
func (f *Func[T]) Call(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return f.fn(ctx)
}

// Async is the async-context, scope-absent dispatch: it returns a Result
// that has not started yet. Nothing runs until the caller calls Await or
// Block on it — ownership of the work's lifetime transfers to whichever
// of those the caller uses. The Result cannot be handed to a scope
// afterwards: Schedule takes a Func, not a Result, and starts a separate
// run of it. The work runs in its own goroutine once started, so
// that an async caller holding several such Results can make progress on
// all of them concurrently, the same way multiple awaited coroutines
// interleave in the source material.
func (f *Func[T]) Async(ctx context.Context) *Result[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	res := newResult[T]()
	runCtx := withLoopMarker(ctx)
	res.starter = func() {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					res.fail(panicErrorf(r), false, false)
				}
			}()
			v, err := f.fn(runCtx)
			if err != nil {
				// Async has no owning scope to later suppress cancellation
				// noise, so a ctx-cancellation failure here is never
				// auto-consumed: the caller must still observe it.
				res.fail(err, runCtx.Err() != nil, false)
			} else {
				res.fulfill(v)
			}
		}()
	}
	return res
}

func panicErrorf(r any) error {
	return &panicError{recovered: r}
}

type panicError struct{ recovered any }

func (p *panicError) Error() string { return "tamed: panic: " + errString(p.recovered) }

func errString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "non-error panic value"
}
