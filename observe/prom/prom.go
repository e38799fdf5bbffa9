// Package prom exposes tamed scope/task activity as Prometheus metrics. It
// replaces the teacher's private in-memory snapshot struct with a real
// prometheus.Collector, exercising the client_golang dependency the teacher
// declared but never wired into working code.
package prom

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tamed-go/tamed"
)

// Metrics is a tamed.Observer that also implements prometheus.Collector, so
// it can be registered directly with a prometheus.Registry.
type Metrics struct {
	activeTasks   atomic.Int64
	tasksStarted  atomic.Int64
	tasksFinished atomic.Int64
	tasksErrored  atomic.Int64
	tasksPanicked atomic.Int64
	tasksCancelled atomic.Int64
	taskDurSumSec  atomic.Uint64 // bits of a float64 accumulator

	scopesCreated   atomic.Int64
	scopesCancelled atomic.Int64
	scopesClosed    atomic.Int64
	drainWaitSumSec atomic.Uint64

	resultsConsumed atomic.Int64

	activeTasksDesc    *prometheus.Desc
	tasksStartedDesc   *prometheus.Desc
	tasksFinishedDesc  *prometheus.Desc
	tasksErroredDesc   *prometheus.Desc
	tasksPanickedDesc  *prometheus.Desc
	tasksCancelledDesc *prometheus.Desc
	taskDurSumDesc     *prometheus.Desc

	scopesCreatedDesc   *prometheus.Desc
	scopesCancelledDesc *prometheus.Desc
	scopesClosedDesc    *prometheus.Desc
	drainWaitSumDesc    *prometheus.Desc

	resultsConsumedDesc *prometheus.Desc
}

// New returns a Metrics observer/collector. namespace and subsystem follow
// the usual prometheus.Opts convention and may both be empty.
func New(namespace, subsystem string) *Metrics {
	label := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name), help, nil, nil,
		)
	}
	return &Metrics{
		activeTasksDesc:     label("tasks_active", "Tasks currently running across all scopes."),
		tasksStartedDesc:    label("tasks_started_total", "Tasks started across all scopes."),
		tasksFinishedDesc:   label("tasks_finished_total", "Tasks that reached a terminal state."),
		tasksErroredDesc:    label("tasks_errored_total", "Tasks that finished with a non-nil error."),
		tasksPanickedDesc:   label("tasks_panicked_total", "Tasks that recovered from a panic."),
		tasksCancelledDesc:  label("tasks_cancelled_total", "Tasks that terminated via cancellation."),
		taskDurSumDesc:      label("task_duration_seconds_sum", "Sum of task durations in seconds."),
		scopesCreatedDesc:   label("scopes_created_total", "Scopes entered."),
		scopesCancelledDesc: label("scopes_cancelled_total", "Scopes cancelled."),
		scopesClosedDesc:    label("scopes_closed_total", "Scopes that finished draining."),
		drainWaitSumDesc:    label("scope_drain_wait_seconds_sum", "Sum of scope drain wait durations in seconds."),
		resultsConsumedDesc: label("results_consumed_total", "Results whose failure was observed by a caller."),
	}
}

// ScopeCreated implements tamed.Observer.
func (m *Metrics) ScopeCreated(context.Context, string) { m.scopesCreated.Add(1) }

// ScopeCancelled implements tamed.Observer.
func (m *Metrics) ScopeCancelled(context.Context, string, error) { m.scopesCancelled.Add(1) }

// ScopeClosed implements tamed.Observer.
func (m *Metrics) ScopeClosed(_ context.Context, _ string, wait time.Duration) {
	m.scopesClosed.Add(1)
	addDuration(&m.drainWaitSumSec, wait)
}

// TaskStarted implements tamed.Observer.
func (m *Metrics) TaskStarted(context.Context, string) {
	m.activeTasks.Add(1)
	m.tasksStarted.Add(1)
}

// TaskFinished implements tamed.Observer.
func (m *Metrics) TaskFinished(_ context.Context, _ string, dur time.Duration, err error, panicked bool) {
	m.activeTasks.Add(-1)
	m.tasksFinished.Add(1)
	if err != nil {
		m.tasksErrored.Add(1)
	}
	if panicked {
		m.tasksPanicked.Add(1)
	}
	addDuration(&m.taskDurSumSec, dur)
}

// TaskCancelled implements tamed.Observer.
func (m *Metrics) TaskCancelled(context.Context, string) { m.tasksCancelled.Add(1) }

// ResultConsumed implements tamed.Observer.
func (m *Metrics) ResultConsumed(context.Context, string, string) { m.resultsConsumed.Add(1) }

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.activeTasksDesc
	ch <- m.tasksStartedDesc
	ch <- m.tasksFinishedDesc
	ch <- m.tasksErroredDesc
	ch <- m.tasksPanickedDesc
	ch <- m.tasksCancelledDesc
	ch <- m.taskDurSumDesc
	ch <- m.scopesCreatedDesc
	ch <- m.scopesCancelledDesc
	ch <- m.scopesClosedDesc
	ch <- m.drainWaitSumDesc
	ch <- m.resultsConsumedDesc
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(m.activeTasksDesc, prometheus.GaugeValue, float64(m.activeTasks.Load()))
	ch <- prometheus.MustNewConstMetric(m.tasksStartedDesc, prometheus.CounterValue, float64(m.tasksStarted.Load()))
	ch <- prometheus.MustNewConstMetric(m.tasksFinishedDesc, prometheus.CounterValue, float64(m.tasksFinished.Load()))
	ch <- prometheus.MustNewConstMetric(m.tasksErroredDesc, prometheus.CounterValue, float64(m.tasksErrored.Load()))
	ch <- prometheus.MustNewConstMetric(m.tasksPanickedDesc, prometheus.CounterValue, float64(m.tasksPanicked.Load()))
	ch <- prometheus.MustNewConstMetric(m.tasksCancelledDesc, prometheus.CounterValue, float64(m.tasksCancelled.Load()))
	ch <- prometheus.MustNewConstMetric(m.taskDurSumDesc, prometheus.CounterValue, loadDuration(&m.taskDurSumSec))
	ch <- prometheus.MustNewConstMetric(m.scopesCreatedDesc, prometheus.CounterValue, float64(m.scopesCreated.Load()))
	ch <- prometheus.MustNewConstMetric(m.scopesCancelledDesc, prometheus.CounterValue, float64(m.scopesCancelled.Load()))
	ch <- prometheus.MustNewConstMetric(m.scopesClosedDesc, prometheus.CounterValue, float64(m.scopesClosed.Load()))
	ch <- prometheus.MustNewConstMetric(m.drainWaitSumDesc, prometheus.CounterValue, loadDuration(&m.drainWaitSumSec))
	ch <- prometheus.MustNewConstMetric(m.resultsConsumedDesc, prometheus.CounterValue, float64(m.resultsConsumed.Load()))
}

// addDuration and loadDuration store a running seconds total as the bit
// pattern of a float64 in an atomic.Uint64, since the stdlib has no
// atomic.Float64 and the collector must stay lock-free on the hot path.
func addDuration(acc *atomic.Uint64, d time.Duration) {
	for {
		old := acc.Load()
		next := math.Float64bits(math.Float64frombits(old) + d.Seconds())
		if acc.CompareAndSwap(old, next) {
			return
		}
	}
}

func loadDuration(acc *atomic.Uint64) float64 { return math.Float64frombits(acc.Load()) }

var _ tamed.Observer = (*Metrics)(nil)
var _ prometheus.Collector = (*Metrics)(nil)
