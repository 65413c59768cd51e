package parkio

import (
	"context"
	"fmt"
	"runtime/trace"

	"github.com/webriots/coro"
)

const (
	taskTraceTaskType   = "parkio-task"
	taskTraceRegionType = "parkio-region"
	taskTraceCategory   = "parkio"
)

// EventSource is the suspension capability: the two operations the
// scheduler invokes on anything a coroutine suspends into. Subscribe
// receives the suspended continuation to register, exactly once per
// suspension attempt. YieldBack runs once the coroutine has fully left
// the running state for the round, with its cancellation token.
type EventSource interface {
	Subscribe(*Task)
	YieldBack(*Cancel)
}

// Task is a coroutine-like unit of work backed by a stackful
// coroutine. The value passed to resume is delivered at the suspension
// point as the wake cause: nil for a producer wake, ErrTimeout for
// timer expiry, ErrCanceled for cancellation.
type Task struct {
	ctx     context.Context
	sched   *Scheduler
	cancel  *Cancel
	yield   func(struct{}) error
	suspend func() error
	resume  func(error) (struct{}, bool)
	stop    func()
	source  EventSource
}

func newTask(ctx context.Context, sched *Scheduler, fn func(context.Context, *Task)) *Task {
	task := &Task{
		sched:  sched,
		cancel: newCancel(sched),
	}

	task.ctx = withTaskContext(ctx, task)
	unlink := context.AfterFunc(task.ctx, task.cancel.Cancel)

	resume, stop := coro.New(
		func(yield func(struct{}) error, suspend func() error) (z struct{}) {
			tctx, tracer := trace.NewTask(task.ctx, taskTraceTaskType)
			region := trace.StartRegion(tctx, taskTraceRegionType)

			defer func() {
				unlink()
				region.End()
				tracer.End()
				sched.taskDone()
			}()

			task.yield = yield
			task.suspend = suspend

			fn(tctx, task)

			return
		},
	)

	task.resume = resume
	task.stop = stop
	return task
}

// Context returns the context the task was spawned with, carrying the
// task itself for retrieval via TaskFromContext.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Cancel returns the task's cancellation token.
func (t *Task) Cancel() *Cancel {
	return t.cancel
}

// Go spawns fn as a new coroutine on the same scheduler.
func (t *Task) Go(fn func(context.Context, *Task)) {
	t.sched.Spawn(t.ctx, fn)
}

// YieldNow reschedules the task to the back of the run queue and
// suspends, letting other ready coroutines run a beat.
func (t *Task) YieldNow() {
	t.yieldWith(yieldNow{sched: t.sched})
}

// yieldWith suspends the task into src. The scheduler invokes
// src.Subscribe with the suspended continuation; whichever producer
// wins the wake resumes it with a cause, returned here from suspend.
// src.YieldBack runs before control returns to the caller.
func (t *Task) yieldWith(src EventSource) error {
	t.source = src
	cause := t.suspend()
	src.YieldBack(t.cancel)
	return cause
}

// run resumes the task inline on the current goroutine with the given
// wake cause. If the task suspends again its pending event source is
// subscribed; this may recurse back into run when the wait is already
// satisfied.
func (t *Task) run(cause error) {
	t.Log("RUN")

	if _, alive := t.resume(cause); !alive {
		return
	}

	src := t.source
	if src == nil {
		panic("parkio: task suspended without an event source")
	}
	t.source = nil
	src.Subscribe(t)
}

// yieldNow is the event source behind YieldNow: subscribing simply
// hands the continuation straight back to the run queue.
type yieldNow struct {
	sched *Scheduler
}

func (y yieldNow) Subscribe(t *Task) {
	y.sched.Schedule(t, nil)
}

func (y yieldNow) YieldBack(*Cancel) {}

func (t *Task) Log(msg string) {
	if trace.IsEnabled() {
		trace.Log(t.ctx, taskTraceCategory, fmt.Sprintf("%p| %s", t, msg))
	}
}

func (t *Task) Logf(format string, args ...any) {
	if trace.IsEnabled() {
		trace.Log(t.ctx, taskTraceCategory, fmt.Sprintf("%p| ", t)+fmt.Sprintf(format, args...))
	}
}
