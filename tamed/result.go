package tamed

import (
	"context"
	"sync"

	"github.com/rs/xid"
)

type resultState int32

const (
	statePending resultState = iota
	stateFulfilled
	stateFailed
)

// Result is a single-assignment mailbox decoupling a task's producer from
// its possibly-multiple consumers and from its owning scope's drain. It is
// generalized over the teacher's scope package (which has no result type
// to adapt) in the shape of CAFxX/async's Future[T]: a once-resolved
// value/error pair behind a done channel.
//
// A Result is a value, not a running computation: it cannot be cancelled
// through the handle and exposes no listeners or intermediate state.
type Result[T any] struct {
	mu       sync.Mutex
	state    resultState
	value    T
	err      error
	consumed bool
	isCancel bool
	done     chan struct{}

	resultID xid.ID
	obs      Observer
	scopeID  string

	startOnce sync.Once
	starter   func()
}

func newResult[T any]() *Result[T] {
	return &Result[T]{done: make(chan struct{}), resultID: xid.New()}
}

// ensureStarted triggers a lazily-created Result's backing work exactly
// once. Results created by Schedule have no starter (their task is
// already running eagerly) and ensureStarted is then a no-op beyond the
// sync.Once check — it exists so Await/Block can call it unconditionally
// regardless of how the Result was produced.
func (r *Result[T]) ensureStarted() {
	r.startOnce.Do(func() {
		if r.starter != nil {
			r.starter()
		}
	})
}

// attachObserver associates the Result with the scope that scheduled it,
// so the first consumption of a failure can be reported through the same
// Observer the scope itself uses.
func (r *Result[T]) attachObserver(obs Observer, scopeID string) {
	r.obs = obs
	r.scopeID = scopeID
}

func (r *Result[T]) reportConsumed() {
	if r.obs != nil {
		r.obs.ResultConsumed(context.Background(), r.scopeID, r.resultID.String())
	}
}

// ID is a short sortable identifier surfaced to observers and logs.
func (r *Result[T]) ID() string { return r.resultID.String() }

// Cancelled reports whether the result failed via cooperative
// cancellation rather than a task-raised error.
func (r *Result[T]) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == stateFailed && r.isCancel
}

// fulfill is called exactly once by the backing task. A second call is a
// contract violation and panics, matching the spec's "assert" language for
// idempotence violations.
func (r *Result[T]) fulfill(v T) {
	r.mu.Lock()
	if r.state != statePending {
		r.mu.Unlock()
		panic(misuse("fulfill called on a Result that is no longer pending"))
	}
	r.state = stateFulfilled
	r.value = v
	r.mu.Unlock()
	close(r.done)
}

// fail is called exactly once by the backing task. cancelled marks the
// failure as cooperative cancellation (ctx.Err() was non-nil when the task
// returned), independent of who caused that cancellation. autoConsume
// additionally marks the failure pre-consumed, so it never reaches
// end-of-scope aggregation as noise — this is only correct when the scope
// itself caused the cancellation as part of its own error_mode/exit_mode
// mechanics; a cancellation inherited from an external or parent source
// must still surface at Close like any other unconsumed failure.
func (r *Result[T]) fail(err error, cancelled, autoConsume bool) {
	if err == nil {
		panic(misuse("fail called with a nil error"))
	}
	r.mu.Lock()
	if r.state != statePending {
		r.mu.Unlock()
		panic(misuse("fail called on a Result that is no longer pending"))
	}
	r.state = stateFailed
	r.err = err
	r.isCancel = cancelled
	r.consumed = autoConsume
	r.mu.Unlock()
	close(r.done)
}

// Await suspends the calling goroutine until the result is no longer
// pending. On fulfillment it returns the value; on failure it raises the
// stored error and marks it consumed. This is the async-context
// observation point: it never checks for re-entrant blocking drives,
// because suspending here is exactly what async callers are expected to
// do.
func (r *Result[T]) Await(ctx context.Context) (T, error) {
	r.ensureStarted()
	select {
	case <-r.done:
		return r.observe()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Block is the sync-context equivalent of Await: it drives a blocking wait
// rather than a cooperative suspension. Calling Block with a ctx that is
// already being driven asynchronously (a scheduled task's context, a
// scope's Context(), or an Async runner's context) is a contract violation
// — use Await there instead — and returns a MisuseError rather than risk
// masking a deadlock. Only ctx is checked: a call that passes a context
// without the runtime's marker is not detected.
// A nil ctx is treated as context.Background().
func (r *Result[T]) Block(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if hasLoopMarker(ctx) {
		var zero T
		return zero, misuse("Block called from within an already-driven async context; use Await instead")
	}
	r.ensureStarted()
	select {
	case <-r.done:
		return r.observe()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Value performs the only non-waiting observation: if fulfilled it returns
// the value; if failed it raises the stored error (marking it consumed);
// if still pending it fails with a distinct NotAvailableError.
func (r *Result[T]) Value() (T, error) {
	r.mu.Lock()
	switch r.state {
	case stateFulfilled:
		r.mu.Unlock()
		return r.value, nil
	case stateFailed:
		first := !r.consumed
		r.consumed = true
		err := r.err
		r.mu.Unlock()
		if first {
			r.reportConsumed()
		}
		var zero T
		return zero, err
	default:
		r.mu.Unlock()
		var zero T
		return zero, &NotAvailableError{}
	}
}

func (r *Result[T]) observe() (T, error) {
	r.mu.Lock()
	switch r.state {
	case stateFulfilled:
		r.mu.Unlock()
		return r.value, nil
	case stateFailed:
		first := !r.consumed
		r.consumed = true
		err := r.err
		r.mu.Unlock()
		if first {
			r.reportConsumed()
		}
		var zero T
		return zero, err
	default:
		// unreachable: observe is only called once r.done has closed.
		r.mu.Unlock()
		var zero T
		return zero, &NotAvailableError{}
	}
}

// resultHandle type-erases Result[T] so an AsyncScope — which is not
// itself generic, since it owns heterogeneously-typed children — can keep
// a single child list and drain it uniformly.
type resultHandle interface {
	handleID() string
	unconsumedFailure() error
}

func (r *Result[T]) handleID() string { return r.resultID.String() }

// unconsumedFailure returns the stored error if the result is in a failed,
// unconsumed state, or nil otherwise. It does not itself mark the error
// consumed — scope draining reads, rather than consumes, so a waiter that
// later calls Await/Block/Value still sees the original state up to that
// point, but once the scope has collected it for aggregation the error has
// already been raised once and further reads are informational only.
func (r *Result[T]) unconsumedFailure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == stateFailed && !r.consumed {
		return r.err
	}
	return nil
}

var _ resultHandle = (*Result[struct{}])(nil)
