package parkio

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
)

// waiter is one queued coroutine waiting on a synchronization
// primitive. The grant flag distinguishes a real grant from a spurious
// wake (a suppressed cancellation delivery still empties the park's
// wait slot), so a woken waiter re-parks until actually granted.
type waiter struct {
	park    *Park
	granted atomic.Bool
}

func newWaiter() *waiter {
	w := &waiter{park: NewPark()}
	w.park.IgnoreCancel(true)
	return w
}

// await parks until granted, absorbing spurious wakes.
func (w *waiter) await(t *Task) {
	for !w.granted.Load() {
		_ = w.park.ParkTimeout(t, 0)
	}
}

// grant releases the waiter through the ordinary unpark path.
func (w *waiter) grant() {
	w.granted.Store(true)
	w.park.Unpark()
}

// sema implements a semaphore for task synchronization. It manages a
// count of available resources and a queue of parked waiters. The
// queue lock covers only the count and queue, never a suspension: the
// wait itself is a Park.
type sema struct {
	noCopy noCopy
	mu     sync.Mutex
	v      uint32
	w      deque.Deque[*waiter]
}

// acquire takes a resource for the given task. If none is available,
// the task parks until a release grants it one.
func (s *sema) acquire(t *Task) {
	s.mu.Lock()
	if s.v > 0 {
		s.v--
		s.mu.Unlock()
		return
	}

	w := newWaiter()
	s.w.PushBack(w)
	s.mu.Unlock()

	w.await(t)
}

// release returns a resource. If tasks are queued, the front waiter is
// granted directly; otherwise the count is banked.
func (s *sema) release() {
	s.mu.Lock()
	if s.w.Len() == 0 {
		s.v++
		s.mu.Unlock()
		return
	}

	w := s.w.PopFront()
	s.mu.Unlock()

	w.grant()
}

// waitCount returns the number of queued waiters.
func (s *sema) waitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Len()
}
