package parkio

import "sync/atomic"

// Cancel is a per-task cooperative cancellation token. Producers flag
// it canceled from any thread; the waiting side observes the flag
// before suspending and upon waking, never by interruption of running
// code. A token can be linked to the wait slot of the Park its task is
// currently suspended in, so delivering cancellation can find and wake
// the parked coroutine.
type Cancel struct {
	sched    *Scheduler
	canceled atomic.Bool
	slot     atomic.Pointer[handoff[Task]]
}

func newCancel(sched *Scheduler) *Cancel {
	return &Cancel{sched: sched}
}

// IsCanceled reports whether cancellation has been requested.
func (c *Cancel) IsCanceled() bool {
	return c.canceled.Load()
}

// Cancel flags the token canceled and delivers cancellation to the
// attached wait target, if any: the parked continuation is taken from
// the slot and scheduled with the ErrCanceled cause. Calling Cancel
// more than once is a no-op after the first delivery.
func (c *Cancel) Cancel() {
	c.canceled.Store(true)
	c.deliver()
}

// attach links a wait slot so a later Cancel can reach the coroutine
// parked in it. The latest attached slot wins.
func (c *Cancel) attach(slot *handoff[Task]) {
	c.slot.Store(slot)
}

// deliver wakes the attached wait target with the ErrCanceled cause.
// Harmless no-op when nothing is parked; a genuine wake or timeout
// racing ahead simply empties the slot first.
func (c *Cancel) deliver() {
	slot := c.slot.Load()
	if slot == nil {
		return
	}
	if t := slot.take(); t != nil {
		c.sched.Schedule(t, ErrCanceled)
	}
}
