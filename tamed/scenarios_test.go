package tamed

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestSiblingTasksInterleaveRegardlessOfScheduleOrder demonstrates that
// Schedule starts work eagerly and concurrently: a sibling scheduled second
// can still reach a terminal state before the sibling scheduled first, since
// nothing about scheduling order constrains completion order.
func TestSiblingTasksInterleaveRegardlessOfScheduleOrder(t *testing.T) {
	t.Parallel()
	s := Enter(context.Background())
	var finishOrder []string
	order := make(chan string, 2)

	slow := voidFunc(func(context.Context) (struct{}, error) {
		time.Sleep(60 * time.Millisecond)
		order <- "A"
		return struct{}{}, nil
	})
	fast := voidFunc(func(context.Context) (struct{}, error) {
		order <- "B"
		return struct{}{}, nil
	})

	Schedule(s, slow, nil) // scheduled first
	Schedule(s, fast, nil) // scheduled second, finishes first

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(order)
	for v := range order {
		finishOrder = append(finishOrder, v)
	}
	if len(finishOrder) != 2 || finishOrder[0] != "B" || finishOrder[1] != "A" {
		t.Fatalf("expected the faster sibling to finish first, got %v", finishOrder)
	}
}

// TestNestedScopeChildDrainCompletesBeforeParentObservesFailure verifies
// that a child scope's own Close() fully resolves (including its aggregate
// of its own children's failures) before the parent's drain can see the
// child's folded-in failure, relying on ordinary happens-before ordering
// rather than any explicit cross-scope synchronization.
func TestNestedScopeChildDrainCompletesBeforeParentObservesFailure(t *testing.T) {
	t.Parallel()
	parent := Enter(context.Background())
	childClosed := make(chan struct{})

	outer := voidFunc(func(ctx context.Context) (struct{}, error) {
		child := Enter(ctx)
		failing := voidFunc(func(context.Context) (struct{}, error) {
			return struct{}{}, errors.New("inner failure")
		})
		Schedule(child, failing, nil)
		err := child.Close(context.Background())
		close(childClosed)
		return struct{}{}, err
	})
	Schedule(parent, outer, nil)

	parentErr := parent.Close(context.Background())
	select {
	case <-childClosed:
	default:
		t.Fatal("expected the child scope to have closed before the parent's drain returned")
	}
	if parentErr == nil {
		t.Fatal("expected the parent to observe the nested failure")
	}
}

// TestTwoUnconsumedFailuresAggregateAtClose checks that two or more
// unconsumed failures in the same scope are raised together as a single
// AggregateError rather than only the first being reported.
func TestTwoUnconsumedFailuresAggregateAtClose(t *testing.T) {
	t.Parallel()
	s := Enter(context.Background(), WithErrorMode(ErrorIgnore))
	first := voidFunc(func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("first failure")
	})
	second := voidFunc(func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("second failure")
	})
	Schedule(s, first, nil)
	Schedule(s, second, nil)

	err := s.Close(context.Background())
	var agg *AggregateError
	if !errors.As(err, &agg) {
		t.Fatalf("expected *AggregateError, got %T: %v", err, err)
	}
	if len(agg.Errors) != 2 {
		t.Fatalf("expected 2 aggregated errors, got %d: %v", len(agg.Errors), agg.Errors)
	}
}

// TestErrorModeCancelSurfacesOriginatingFailureNotCancellationNoise checks
// that when one task's genuine failure cancels a long-running sibling, the
// scope's aggregate error at close reflects only the originating failure —
// the sibling's cancellation-induced error is consumed by the cancellation
// mechanism itself and does not also appear in the aggregate.
func TestErrorModeCancelSurfacesOriginatingFailureNotCancellationNoise(t *testing.T) {
	t.Parallel()
	s := Enter(context.Background(), WithErrorMode(ErrorCancel))
	boom := errors.New("originating failure")

	longRunning := voidFunc(func(ctx context.Context) (struct{}, error) {
		select {
		case <-time.After(10 * time.Second):
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	})
	failing := voidFunc(func(context.Context) (struct{}, error) {
		time.Sleep(20 * time.Millisecond)
		return struct{}{}, boom
	})
	Schedule(s, longRunning, nil)
	Schedule(s, failing, nil)

	start := time.Now()
	err := s.Close(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected the long-running sibling to be cancelled promptly, took %v", elapsed)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected the originating failure, got %v", err)
	}
	var agg *AggregateError
	if errors.As(err, &agg) {
		t.Fatalf("expected a single originating error, not an aggregate with cancellation noise: %v", agg.Errors)
	}
}

// TestExitModeWaitLetsRunningTasksFinishNaturally confirms the default
// ExitWait behavior: Close does not cancel still-running siblings just
// because one of them is slow, as long as none has failed.
func TestExitModeWaitLetsRunningTasksFinishNaturally(t *testing.T) {
	t.Parallel()
	s := Enter(context.Background())
	finished := make(chan struct{})
	slow := voidFunc(func(context.Context) (struct{}, error) {
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return struct{}{}, nil
	})
	Schedule(s, slow, nil)
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-finished:
	default:
		t.Fatal("expected the task to have finished naturally before Close returned")
	}
}
