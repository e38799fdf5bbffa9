package tamed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
)

// ExitMode controls what AsyncScope.Close does with still-running tasks at
// scope exit.
type ExitMode int

const (
	// ExitWait waits for every owned task to finish naturally.
	ExitWait ExitMode = iota
	// ExitCancel signals cancellation to every still-running owned task
	// before waiting for them to observe it.
	ExitCancel
)

func (m ExitMode) String() string {
	if m == ExitCancel {
		return "cancel"
	}
	return "wait"
}

// ErrorMode controls whether a failing task disturbs its siblings.
type ErrorMode int

const (
	// ErrorCancel cancels every other not-yet-terminal sibling the first
	// time any owned task fails with an unconsumed error.
	ErrorCancel ErrorMode = iota
	// ErrorIgnore lets siblings run to completion regardless of a
	// sibling's failure; the error is simply carried to scope exit.
	ErrorIgnore
)

func (m ErrorMode) String() string {
	if m == ErrorIgnore {
		return "ignore"
	}
	return "cancel"
}

// Phase is an AsyncScope's position in its open -> draining -> closed
// lifecycle.
type Phase int32

const (
	PhaseOpen Phase = iota
	PhaseDraining
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseDraining:
		return "draining"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Observer receives AsyncScope lifecycle events for metrics/tracing,
// kept from the teacher's scope.Observer and extended with the two hooks
// (TaskCancelled, ResultConsumed) this module's richer error semantics
// need to stay observable rather than implicit.
type Observer interface {
	ScopeCreated(ctx context.Context, scopeID string)
	ScopeCancelled(ctx context.Context, scopeID string, cause error)
	ScopeClosed(ctx context.Context, scopeID string, drainWait time.Duration)
	TaskStarted(ctx context.Context, scopeID string)
	TaskFinished(ctx context.Context, scopeID string, dur time.Duration, err error, panicked bool)
	TaskCancelled(ctx context.Context, scopeID string)
	ResultConsumed(ctx context.Context, scopeID, resultID string)
}

// Options configures an AsyncScope at construction.
type Options struct {
	ExitMode       ExitMode
	ErrorMode      ErrorMode
	PanicAsError   bool
	Observer       Observer
	MaxConcurrency int
	Timeout        time.Duration
	Deadline       time.Time
	Limiter        Limiter
}

func defaultOptions() Options {
	return Options{ExitMode: ExitWait, ErrorMode: ErrorCancel, PanicAsError: true}
}

// Option configures an AsyncScope at construction time.
type Option func(*Options)

// WithExitMode sets the scope's exit_mode.
func WithExitMode(m ExitMode) Option { return func(o *Options) { o.ExitMode = m } }

// WithErrorMode sets the scope's error_mode.
func WithErrorMode(m ErrorMode) Option { return func(o *Options) { o.ErrorMode = m } }

// WithPanicAsError toggles converting task panics into errors.
func WithPanicAsError(v bool) Option { return func(o *Options) { o.PanicAsError = v } }

// WithObserver attaches an observer for metrics/tracing hooks (nil = disabled).
func WithObserver(obs Observer) Option { return func(o *Options) { o.Observer = obs } }

// WithMaxConcurrency limits the number of concurrent tasks in a scope (n>0).
func WithMaxConcurrency(n int) Option { return func(o *Options) { o.MaxConcurrency = n } }

// WithLimiter installs a custom Limiter, overriding WithMaxConcurrency's
// default golang.org/x/sync/semaphore-backed limiter.
func WithLimiter(l Limiter) Option { return func(o *Options) { o.Limiter = l } }

// WithTimeout applies a relative deadline to the scope (ignored if WithDeadline is also set).
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// WithDeadline applies an absolute deadline to the scope.
func WithDeadline(t time.Time) Option { return func(o *Options) { o.Deadline = t } }

// AsyncScope is a lexically delimited region owning a set of in-flight
// tasks. It guarantees every task it schedules reaches a terminal state
// before it is considered closed, and applies ExitMode/ErrorMode to decide
// how cancellation and errors travel between siblings and to the caller.
type AsyncScope struct {
	ctx       context.Context
	cancel    context.CancelFunc
	exitMode  ExitMode
	errorMode ErrorMode
	opts      Options
	obs       Observer
	lim       Limiter
	parent    *AsyncScope // weak: used only for error propagation
	id        xid.ID

	mu            sync.Mutex
	phase         Phase
	children      []resultHandle
	childScopes   []*AsyncScope // weak: used only by diagnostics/tree rendering
	canceled      bool
	autoCancelled bool // cancellation caused by this scope's own error_mode/exit_mode mechanics, not by Cancel() or an inherited parent/deadline cancellation
	wg            sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
	closeDone chan struct{}
}

// Enter opens a new AsyncScope. If ctx already carries an ambient scope
// (because Enter is being called from inside a task owned by another
// scope), the new scope records it as its parent for error-propagation
// purposes only — the parent does not own the child's tasks.
func Enter(ctx context.Context, optFns ...Option) *AsyncScope {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	parent := ambientScope(ctx)

	base := ctx
	cctx, cancel := context.WithCancel(base)
	if !opts.Deadline.IsZero() {
		cctx, cancel = context.WithDeadline(base, opts.Deadline)
	} else if opts.Timeout > 0 {
		cctx, cancel = context.WithTimeout(base, opts.Timeout)
	}

	s := &AsyncScope{
		cancel:    cancel,
		exitMode:  opts.ExitMode,
		errorMode: opts.ErrorMode,
		opts:      opts,
		obs:       opts.Observer,
		parent:    parent,
		id:        xid.New(),
		closeDone: make(chan struct{}),
	}
	s.lim = opts.Limiter
	if s.lim == nil && opts.MaxConcurrency > 0 {
		s.lim = newWeightedLimiter(int64(opts.MaxConcurrency))
	}
	s.ctx = withScopeMarker(withLoopMarker(cctx), s)

	if s.obs != nil {
		s.obs.ScopeCreated(s.ctx, s.id.String())
	}
	if parent != nil {
		parent.mu.Lock()
		parent.childScopes = append(parent.childScopes, s)
		parent.mu.Unlock()
	}
	return s
}

// ChildScopes returns the scopes opened with s as their ambient parent, for
// diagnostics and tree rendering. The returned slice is a snapshot; scopes
// opened afterward are not retroactively added to it.
func (s *AsyncScope) ChildScopes() []*AsyncScope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*AsyncScope, len(s.childScopes))
	copy(out, s.childScopes)
	return out
}

// Child opens a nested scope whose context derives from s's, so parent
// cancellation cancels the child and the child's aggregate failure (if
// any) folds into s's own drain when the child closes.
func (s *AsyncScope) Child(optFns ...Option) *AsyncScope {
	return Enter(s.ctx, optFns...)
}

// Context returns the scope's context. Tasks scheduled onto the scope
// receive a context derived from this one.
func (s *AsyncScope) Context() context.Context { return s.ctx }

// ID is a short sortable identifier surfaced to observers and logs.
func (s *AsyncScope) ID() string { return s.id.String() }

// Phase returns the scope's current lifecycle phase.
func (s *AsyncScope) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Cancel cancels the scope directly, independent of any task failure. This
// is an externally-initiated cancellation: a task failing as a result of it
// is not the same as a failure caused by the scope's own error_mode/
// exit_mode mechanics, and still surfaces as a genuine unconsumed error at
// Close. Idempotent: only the first call has effect.
func (s *AsyncScope) Cancel() { s.cancelWithCause(nil, false) }

// cancelWithCause cancels the scope's context. auto marks the cancellation
// as caused by the scope's own drain mechanics (error_mode=cancel reacting
// to a sibling's genuine failure, or exit_mode=cancel at Close) rather than
// an external Cancel() call — only auto cancellation causes a task's
// resulting ctx-cancellation failure to be treated as already-consumed
// noise instead of a real error.
func (s *AsyncScope) cancelWithCause(cause error, auto bool) {
	s.mu.Lock()
	already := s.canceled
	s.canceled = true
	if auto && !already {
		s.autoCancelled = true
	}
	s.mu.Unlock()
	if already {
		return
	}
	s.cancel()
	if s.obs != nil {
		s.obs.ScopeCancelled(s.ctx, s.id.String(), cause)
	}
}

// isAutoCancelled reports whether this scope's own error_mode/exit_mode
// mechanics caused its cancellation, as opposed to an explicit Cancel()
// call or a cancellation inherited from a parent context or deadline.
func (s *AsyncScope) isAutoCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoCancelled
}

// Schedule starts fn as a task owned by s and returns its Result
// immediately — scheduling never blocks. The task starts eagerly, because
// s guarantees it will run to completion (or cancellation) before s
// closes. ctx supplies values for the task (e.g. request-scoped data); its
// values are merged into the task's context, but its cancellation tree is
// not what gates the task — s's own context is, and the task's ctx.Done()/
// ctx.Err() always reflect s, regardless of what ctx carries. A nil ctx
// defaults to s.Context(), in which case no merging is needed.
//
// Schedule is a free function, not a method on AsyncScope, because scopes
// own heterogeneously-typed children and Go does not allow generic
// methods: AsyncScope itself cannot be parameterized by the T of any one
// task it owns.
func Schedule[T any](s *AsyncScope, fn *Func[T], ctx context.Context) *Result[T] {
	if s == nil {
		panic(misuse("Schedule called with a nil scope"))
	}
	if fn == nil {
		panic(misuse("Schedule called with a nil Func"))
	}

	s.mu.Lock()
	if s.phase == PhaseClosed {
		s.mu.Unlock()
		panic(misuse("Schedule called on a closed scope"))
	}
	res := newResult[T]()
	res.attachObserver(s.obs, s.id.String())
	s.children = append(s.children, res)
	s.mu.Unlock()

	s.wg.Add(1)
	taskCtx := withScopeMarker(withLoopMarker(s.ctx), s)
	if ctx != nil && ctx != s.ctx {
		taskCtx = &valuesFromContext{values: ctx, cancelFrom: taskCtx}
	}

	if s.obs != nil {
		s.obs.TaskStarted(s.ctx, s.id.String())
	}

	go func() {
		defer s.wg.Done()

		if s.lim != nil {
			if err := s.lim.Acquire(s.ctx); err != nil {
				cerr := &CancelledError{Cause: err}
				res.fail(cerr, true, s.isAutoCancelled())
				if s.obs != nil {
					s.obs.TaskCancelled(s.ctx, s.id.String())
					s.obs.TaskFinished(s.ctx, s.id.String(), 0, cerr, false)
				}
				return
			}
			defer s.lim.Release()
		}

		start := time.Now()
		var (
			value    T
			err      error
			panicked bool
		)

		func() {
			defer func() {
				if r := recover(); r != nil {
					panicked = true
					if s.opts.PanicAsError {
						err = fmt.Errorf("tamed: panic: %v", r)
						return
					}
					if s.obs != nil {
						s.obs.TaskFinished(s.ctx, s.id.String(), time.Since(start), nil, true)
					}
					panic(r)
				}
			}()
			value, err = fn.fn(taskCtx)
		}()

		if err != nil {
			cancelled := taskCtx.Err() != nil
			if cancelled {
				err = &CancelledError{Cause: err}
			}
			res.fail(err, cancelled, cancelled && s.isAutoCancelled())
			if cancelled {
				if s.obs != nil {
					s.obs.TaskCancelled(s.ctx, s.id.String())
				}
			} else if s.errorMode == ErrorCancel {
				s.cancelWithCause(err, true)
			}
		} else {
			res.fulfill(value)
		}

		if s.obs != nil {
			s.obs.TaskFinished(s.ctx, s.id.String(), time.Since(start), err, panicked)
		}
	}()

	return res
}

// valuesFromContext serves values out of one context while deferring
// Deadline/Done/Err entirely to another, so a task can read a caller's
// request-scoped values without that caller's own context tree being able
// to cancel or time out the task — only the owning scope can.
type valuesFromContext struct {
	values     context.Context
	cancelFrom context.Context
}

func (c *valuesFromContext) Deadline() (time.Time, bool) { return c.cancelFrom.Deadline() }
func (c *valuesFromContext) Done() <-chan struct{}       { return c.cancelFrom.Done() }
func (c *valuesFromContext) Err() error                  { return c.cancelFrom.Err() }
func (c *valuesFromContext) Value(key any) any {
	if v := c.values.Value(key); v != nil {
		return v
	}
	return c.cancelFrom.Value(key)
}

var _ context.Context = (*valuesFromContext)(nil)

// Close performs the drain: switches phase open -> draining, applies
// ExitMode, waits for every owned task to reach a terminal state,
// collects every unconsumed failure, and raises it (singly, or as an
// AggregateError for two or more) before transitioning phase -> closed.
// Close is idempotent and safe to call from multiple goroutines or
// multiple times; later calls simply observe the same result.
//
// Close works identically whether the calling goroutine is itself "sync"
// or "async" — unlike the source material's asyncio loop, Go's goroutines
// do not require two different drain code paths for blocking versus
// cooperative callers.
func (s *AsyncScope) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.phase = PhaseDraining
		s.mu.Unlock()

		start := time.Now()
		if s.exitMode == ExitCancel {
			s.cancelWithCause(nil, true)
		}

		s.wg.Wait()

		s.mu.Lock()
		var unconsumed []error
		for _, child := range s.children {
			if err := child.unconsumedFailure(); err != nil {
				unconsumed = append(unconsumed, err)
			}
		}
		s.phase = PhaseClosed
		s.mu.Unlock()

		if s.obs != nil {
			s.obs.ScopeClosed(s.ctx, s.id.String(), time.Since(start))
		}

		switch len(unconsumed) {
		case 0:
			s.closeErr = nil
		case 1:
			s.closeErr = unconsumed[0]
		default:
			s.closeErr = &AggregateError{Errors: unconsumed}
		}

		if s.closeErr != nil && s.parent != nil {
			s.parent.recordChildFailure(s.id.String(), s.closeErr)
		}

		close(s.closeDone)
	})

	select {
	case <-s.closeDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.closeErr
}

func (s *AsyncScope) recordChildFailure(id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, &staticFailure{id: id, err: err})
}

// staticFailure folds an already-terminal, unconsumed failure (a closed
// child scope's aggregate error) into a parent scope's own drain without
// requiring a real backing task.
type staticFailure struct {
	id  string
	err error
}

func (f *staticFailure) handleID() string         { return f.id }
func (f *staticFailure) unconsumedFailure() error { return f.err }

var _ resultHandle = (*staticFailure)(nil)
