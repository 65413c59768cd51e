package parkio

import (
	"context"
	"runtime"
	"sync"

	"github.com/gammazero/deque"
)

// Scheduler owns the run queue and worker threads that carry
// coroutines, and provides the timer service parks arm per wait cycle.
// Many OS threads run the scheduler concurrently; coroutines may
// migrate between workers across suspensions.
type Scheduler struct {
	mu     sync.Mutex
	cond   *sync.Cond
	runq   deque.Deque[runnable]
	closed bool

	workers sync.WaitGroup
	tasks   sync.WaitGroup
}

// runnable pairs a ready continuation with the cause it resumes with:
// nil for a producer wake, ErrTimeout for timer expiry, ErrCanceled
// for cancellation delivery.
type runnable struct {
	task  *Task
	cause error
}

// NewScheduler starts a scheduler with the given number of worker
// threads; workers <= 0 uses GOMAXPROCS.
func NewScheduler(workers int) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	s := new(Scheduler)
	s.cond = sync.NewCond(&s.mu)

	s.workers.Add(workers)
	for range workers {
		go s.worker()
	}
	return s
}

// Spawn creates a coroutine running fn and enqueues it. The context is
// linked to the task's cancellation token: when ctx is done the token
// is canceled and any park the task is suspended in is woken.
func (s *Scheduler) Spawn(ctx context.Context, fn func(context.Context, *Task)) *Task {
	t := newTask(ctx, s, fn)
	s.tasks.Add(1)
	t.Log("GO")
	s.Schedule(t, nil)
	return t
}

// Schedule enqueues a ready continuation to resume with the given
// cause. Callable from any thread, including reactor and timer
// callbacks; it never blocks the producer.
func (s *Scheduler) Schedule(t *Task, cause error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		panic("parkio: schedule on closed scheduler")
	}
	s.runq.PushBack(runnable{task: t, cause: cause})
	s.mu.Unlock()
	s.cond.Signal()
}

// Wait blocks the calling OS thread until every spawned task has run
// to completion.
func (s *Scheduler) Wait() {
	s.tasks.Wait()
}

// Shutdown drains the run queue and stops the workers. Tasks still
// queued are aborted. Pending Spawn/Schedule calls after Shutdown
// panic.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.closed = true
	for s.runq.Len() > 0 {
		r := s.runq.PopFront()
		r.task.stop()
	}
	s.mu.Unlock()
	s.cond.Broadcast()
	s.workers.Wait()
}

func (s *Scheduler) worker() {
	defer s.workers.Done()

	for {
		s.mu.Lock()
		for s.runq.Len() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.runq.Len() == 0 {
			s.mu.Unlock()
			return
		}
		r := s.runq.PopFront()
		s.mu.Unlock()

		r.task.run(r.cause)
	}
}

func (s *Scheduler) taskDone() {
	s.tasks.Done()
}
