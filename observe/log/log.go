// Package log is a slog-based tamed.Observer, printing scope and task
// lifecycle events to the console via github.com/lmittmann/tint in the
// style johanjanssens/frankenasync configures its own logger.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/tamed-go/tamed"
)

// Observer logs every tamed.Observer hook through a *slog.Logger.
type Observer struct {
	log *slog.Logger
}

// Options configures the console handler.
type Options struct {
	Writer     io.Writer
	Level      slog.Level
	TimeFormat string
}

func defaultOptions() Options {
	return Options{Writer: os.Stderr, Level: slog.LevelInfo, TimeFormat: time.Kitchen}
}

// WithWriter redirects log output, mainly useful for tests.
func WithWriter(w io.Writer) func(*Options) { return func(o *Options) { o.Writer = w } }

// WithLevel sets the minimum logged level.
func WithLevel(l slog.Level) func(*Options) { return func(o *Options) { o.Level = l } }

// New returns an Observer backed by a tint console handler.
func New(opts ...func(*Options)) *Observer {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	handler := tint.NewHandler(o.Writer, &tint.Options{
		Level:      o.Level,
		TimeFormat: o.TimeFormat,
	})
	return &Observer{log: slog.New(handler)}
}

// ScopeCreated implements tamed.Observer.
func (o *Observer) ScopeCreated(_ context.Context, scopeID string) {
	o.log.Info("scope created", "scope", scopeID)
}

// ScopeCancelled implements tamed.Observer.
func (o *Observer) ScopeCancelled(_ context.Context, scopeID string, cause error) {
	o.log.Warn("scope cancelled", "scope", scopeID, "cause", cause)
}

// ScopeClosed implements tamed.Observer.
func (o *Observer) ScopeClosed(_ context.Context, scopeID string, drainWait time.Duration) {
	o.log.Info("scope closed", "scope", scopeID, "drain_wait", drainWait)
}

// TaskStarted implements tamed.Observer.
func (o *Observer) TaskStarted(_ context.Context, scopeID string) {
	o.log.Debug("task started", "scope", scopeID)
}

// TaskFinished implements tamed.Observer.
func (o *Observer) TaskFinished(_ context.Context, scopeID string, dur time.Duration, err error, panicked bool) {
	if panicked {
		o.log.Error("task panicked", "scope", scopeID, "duration", dur, "error", err)
		return
	}
	if err != nil {
		o.log.Warn("task failed", "scope", scopeID, "duration", dur, "error", err)
		return
	}
	o.log.Debug("task finished", "scope", scopeID, "duration", dur)
}

// TaskCancelled implements tamed.Observer.
func (o *Observer) TaskCancelled(_ context.Context, scopeID string) {
	o.log.Debug("task cancelled", "scope", scopeID)
}

// ResultConsumed implements tamed.Observer.
func (o *Observer) ResultConsumed(_ context.Context, scopeID, resultID string) {
	o.log.Debug("result consumed", "scope", scopeID, "result", resultID)
}

var _ tamed.Observer = (*Observer)(nil)
