// Package errgroup adapts tamed.AsyncScope to the familiar
// golang.org/x/sync/errgroup.Group shape, so call sites that only need
// fire-and-wait-with-error semantics can drop in a Group without
// taking on Result handles or the scope's richer error_mode/exit_mode
// configuration.
package errgroup

import (
	"context"

	"github.com/tamed-go/tamed"
)

// Group wraps a tamed.AsyncScope configured for FailFast-equivalent
// semantics: error_mode=cancel, exit_mode=wait.
type Group struct {
	s   *tamed.AsyncScope
	ctx context.Context
}

// WithContext creates a Group bound to ctx. The returned context is
// cancelled as soon as any function passed to Go returns a non-nil error.
func WithContext(ctx context.Context) (*Group, context.Context) {
	s := tamed.Enter(ctx, tamed.WithErrorMode(tamed.ErrorCancel))
	g := &Group{s: s, ctx: s.Context()}
	return g, g.ctx
}

// Go starts f as a scope-owned task. A nil f is ignored, matching
// errgroup.Group's own tolerance for that case.
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	fn := tamed.New(func(context.Context) (struct{}, error) {
		return struct{}{}, f()
	})
	tamed.Schedule(g.s, fn, nil)
}

// Wait blocks until every started function has returned, then returns the
// scope's unconsumed failures: nil on success, the error itself when there
// is one, or a *tamed.AggregateError when there are two or more.
func (g *Group) Wait() error {
	return g.s.Close(context.Background())
}
