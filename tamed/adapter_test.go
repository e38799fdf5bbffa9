package tamed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPanicsOnNilFunc(t *testing.T) {
	t.Parallel()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic constructing a Func from a nil body")
		}
		if _, ok := r.(*MisuseError); !ok {
			t.Fatalf("expected *MisuseError, got %T", r)
		}
	}()
	New[int](nil)
}

func TestFuncNameRoundTrips(t *testing.T) {
	t.Parallel()
	f := New(func(context.Context) (int, error) { return 1, nil }, WithFuncName("answer"))
	if f.Name() != "answer" {
		t.Fatalf("expected name %q, got %q", "answer", f.Name())
	}
}

// TestValueIdentityAcrossCallShapes exercises the property that a function
// producing v behaves identically in value terms whether invoked via a
// blocking Call, an awaited Async Result, or a scheduled-then-awaited
// Result.
func TestValueIdentityAcrossCallShapes(t *testing.T) {
	t.Parallel()
	const want = 99
	body := func(context.Context) (int, error) { return want, nil }
	f := New(body)

	syncVal, err := f.Call(context.Background())
	if err != nil || syncVal != want {
		t.Fatalf("Call: got (%d, %v), want (%d, nil)", syncVal, err, want)
	}

	asyncVal, err := f.Async(context.Background()).Await(context.Background())
	if err != nil || asyncVal != want {
		t.Fatalf("Async+Await: got (%d, %v), want (%d, nil)", asyncVal, err, want)
	}

	s := Enter(context.Background())
	scopedRes := Schedule(s, f, nil)
	scopedVal, err := scopedRes.Await(context.Background())
	if err != nil || scopedVal != want {
		t.Fatalf("Schedule+Await: got (%d, %v), want (%d, nil)", scopedVal, err, want)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error closing scope: %v", err)
	}
}

func TestCallPropagatesErrorDirectly(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	f := New(func(context.Context) (int, error) { return 0, boom })
	_, err := f.Call(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestAsyncDoesNotRunUntilAwaited(t *testing.T) {
	t.Parallel()
	var started atomic.Bool
	f := New(func(context.Context) (int, error) {
		started.Store(true)
		return 1, nil
	})
	res := f.Async(context.Background())
	time.Sleep(30 * time.Millisecond)
	if started.Load() {
		t.Fatal("expected Async to defer running the body until awaited")
	}
	if _, err := res.Await(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !started.Load() {
		t.Fatal("expected the body to have run after Await")
	}
}

func TestAsyncPanicConvertsToError(t *testing.T) {
	t.Parallel()
	f := New(func(context.Context) (int, error) { panic("kaboom") })
	res := f.Async(context.Background())
	_, err := res.Await(context.Background())
	if err == nil {
		t.Fatal("expected a converted panic error")
	}
	var pe *panicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *panicError, got %T: %v", err, err)
	}
}

func TestAsyncCancelledWhenCallerContextIsAlreadyCancelled(t *testing.T) {
	t.Parallel()
	f := New(func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	res := f.Async(ctx)
	cancel()
	_, err := res.Await(context.Background())
	if err == nil {
		t.Fatal("expected an error once the driving context is cancelled")
	}
	if !res.Cancelled() {
		t.Fatal("expected the result to be marked cancelled")
	}
}

func TestRegistryRejectsReservedParamName(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	err := r.Register(ReservedScopeParam, Erase(New(func(context.Context) (int, error) { return 0, nil })))
	var cfg *ConfigError
	if !errors.As(err, &cfg) {
		t.Fatalf("expected *ConfigError, got %T: %v", err, err)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	fn := Erase(New(func(context.Context) (int, error) { return 0, nil }))
	if err := r.Register("task", fn); err != nil {
		t.Fatalf("unexpected error on first registration: %v", err)
	}
	if err := r.Register("task", fn); err == nil {
		t.Fatal("expected an error registering a duplicate name")
	}
}

func TestRegistryLookupAndCallAny(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	fn := Erase(New(func(context.Context) (string, error) { return "hi", nil }))
	if err := r.Register("greet", fn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := r.Lookup("greet")
	if !ok {
		t.Fatal("expected lookup to find the registered function")
	}
	v, err := got.CallAny(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "hi" {
		t.Fatalf("expected %q, got %v", "hi", v)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "greet" {
		t.Fatalf("expected Names() to report [greet], got %v", names)
	}
}

func TestProbeReportsCallContext(t *testing.T) {
	t.Parallel()
	if got := Probe(context.Background(), nil); got != Sync {
		t.Fatalf("expected Sync, got %v", got)
	}
	if got := Probe(withLoopMarker(context.Background()), nil); got != Async {
		t.Fatalf("expected Async, got %v", got)
	}
	s := Enter(context.Background())
	defer s.Close(context.Background())
	if got := Probe(context.Background(), s); got != Scoped {
		t.Fatalf("expected Scoped, got %v", got)
	}
}
