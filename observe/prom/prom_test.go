package prom

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsRegistersAndCollects(t *testing.T) {
	t.Parallel()
	m := New("tamed", "test")
	reg := prometheus.NewRegistry()
	if err := reg.Register(m); err != nil {
		t.Fatalf("unexpected error registering collector: %v", err)
	}

	m.ScopeCreated(context.Background(), "scope-1")
	m.TaskStarted(context.Background(), "scope-1")
	m.TaskFinished(context.Background(), "scope-1", 10*time.Millisecond, nil, false)
	m.ScopeClosed(context.Background(), "scope-1", 5*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("unexpected error gathering metrics: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one metric family to be gathered")
	}
}

func TestMetricsCountersAccumulate(t *testing.T) {
	t.Parallel()
	m := New("", "")
	m.TaskStarted(context.Background(), "s")
	m.TaskStarted(context.Background(), "s")
	m.TaskFinished(context.Background(), "s", time.Millisecond, nil, false)
	if got := m.tasksStarted.Load(); got != 2 {
		t.Fatalf("expected 2 started tasks, got %d", got)
	}
	if got := m.activeTasks.Load(); got != 1 {
		t.Fatalf("expected 1 still-active task, got %d", got)
	}
}
