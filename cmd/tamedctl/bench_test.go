package main

import (
	"context"
	"testing"
	"time"
)

func TestRunBenchComputesPercentilesOverIterations(t *testing.T) {
	t.Parallel()
	rep := runBench(context.Background(), "basic", runBasicScenario, ScenarioSettings{ErrorMode: "ignore"}, 5)
	if rep.Iterations != 5 {
		t.Fatalf("expected 5 iterations, got %d", rep.Iterations)
	}
	if rep.Failures != 0 {
		t.Fatalf("expected no failures for the basic scenario, got %d", rep.Failures)
	}
	if rep.P50 <= 0 || rep.P90 <= 0 || rep.Max <= 0 {
		t.Fatalf("expected positive percentile durations, got p50=%s p90=%s max=%s", rep.P50, rep.P90, rep.Max)
	}
	if rep.P90 < rep.P50 {
		t.Fatalf("expected p90 >= p50, got p90=%s p50=%s", rep.P90, rep.P50)
	}
}

func TestRunBenchCountsScenarioFailures(t *testing.T) {
	t.Parallel()
	rep := runBench(context.Background(), "policies", runPoliciesScenario, ScenarioSettings{ErrorMode: "cancel"}, 3)
	if rep.Failures != 3 {
		t.Fatalf("expected all 3 iterations to report a scope failure, got %d", rep.Failures)
	}
}

func TestPercentileSingleElement(t *testing.T) {
	t.Parallel()
	if got := percentile([]time.Duration{7}, 0.9); got != 7 {
		t.Fatalf("expected single-element percentile to return that element, got %s", got)
	}
}
