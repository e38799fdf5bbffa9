package otel

import (
	"context"
	"time"

	"github.com/tamed-go/tamed"
)

// Nop is a no-op tamed.Observer. It is a placeholder for an
// OpenTelemetry-backed observer without adding the tracing SDK as a hard
// dependency of the core module.
type Nop struct{}

// NewNop returns a no-op observer.
func NewNop() *Nop { return &Nop{} }

func (*Nop) ScopeCreated(context.Context, string)                        {}
func (*Nop) ScopeCancelled(context.Context, string, error)               {}
func (*Nop) ScopeClosed(context.Context, string, time.Duration)          {}
func (*Nop) TaskStarted(context.Context, string)                         {}
func (*Nop) TaskFinished(context.Context, string, time.Duration, error, bool) {}
func (*Nop) TaskCancelled(context.Context, string)                       {}
func (*Nop) ResultConsumed(context.Context, string, string)              {}

var _ tamed.Observer = (*Nop)(nil)
