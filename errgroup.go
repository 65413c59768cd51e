package parkio

import (
	"context"
	"sync"
)

// ErrGroup manages a group of tasks and collects the first error that
// occurs. It provides methods to start new tasks and wait for all
// tasks to complete.
type ErrGroup interface {
	// Go starts a new task with the group's context.
	Go(func(context.Context) error)
	// Wait parks until all tasks have completed and returns the first
	// error encountered.
	Wait(*Task) error
}

// errGroup implements the ErrGroup interface. It tracks tasks,
// manages their lifecycles, and collects errors.
type errGroup struct {
	task   *Task
	ctx    context.Context
	cancel func(error)
	wg     WaitGroup
	mu     sync.Mutex
	err    error
}

// Group creates a new error group associated with the task. The group
// shares a cancellable child context: the first error cancels it,
// which in turn cancels the tokens of the remaining group tasks and
// wakes any park they are suspended in.
func (t *Task) Group() ErrGroup {
	ctx, cancel := context.WithCancelCause(t.Context())
	return &errGroup{task: t, ctx: ctx, cancel: cancel}
}

// Go starts a new task that runs the given function with the group's
// context. If the function returns an error, the group's context will
// be cancelled.
func (g *errGroup) Go(f func(context.Context) error) {
	g.wg.Add(1)
	g.task.sched.Spawn(g.ctx, func(ctx context.Context, _ *Task) {
		defer g.wg.Done()
		if err := f(ctx); err != nil {
			g.mu.Lock()
			if g.err == nil {
				g.err = err
				g.cancel(err)
			}
			g.mu.Unlock()
		}
	})
}

// Wait parks until all tasks in the group have completed. It returns
// the first error encountered by any task, or nil if no errors
// occurred.
func (g *errGroup) Wait(t *Task) error {
	g.wg.Wait(t)
	g.mu.Lock()
	err := g.err
	g.mu.Unlock()
	g.cancel(err)
	return err
}
