package parkio

import "sync"

// WaitGroup is used to wait for a collection of tasks to finish.
// Tasks call Add(1) when they start and Done() when they finish.
// Other tasks can call Wait() to park until all tasks have finished.
type WaitGroup struct {
	noCopy  noCopy
	mu      sync.Mutex
	v       int32
	waiters []*waiter
}

// Add adds delta to the WaitGroup counter. If the counter becomes
// zero, every parked waiter is granted. If the counter goes negative,
// Add panics.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	wg.v += int32(delta)

	if wg.v < 0 {
		wg.mu.Unlock()
		panic("parkio: negative WaitGroup counter")
	}

	if wg.v > 0 || len(wg.waiters) == 0 {
		wg.mu.Unlock()
		return
	}

	waiters := wg.waiters
	wg.waiters = nil
	wg.mu.Unlock()

	for _, w := range waiters {
		w.grant()
	}
}

// Done decrements the WaitGroup counter by one. It's a convenience
// method equivalent to Add(-1).
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait parks the calling task until the WaitGroup counter is zero.
// If the counter is already zero, it returns immediately.
func (wg *WaitGroup) Wait(t *Task) {
	wg.mu.Lock()
	if wg.v == 0 {
		wg.mu.Unlock()
		return
	}

	w := newWaiter()
	wg.waiters = append(wg.waiters, w)
	wg.mu.Unlock()

	w.await(t)
}
