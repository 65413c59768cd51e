package parkio

import (
	"errors"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
)

// ErrTimeout is returned by ParkTimeout when the deadline elapsed
// before any wake arrived.
var ErrTimeout = errors.New("parkio: park timed out")

// ErrCanceled is returned by ParkTimeout when cancellation was
// observed, either proactively or upon resumption.
var ErrCanceled = errors.New("parkio: park canceled")

const (
	// parkReady is set by Unpark and means a wake is pending and has
	// not yet been consumed. Boolean, not a counter: multiple unparks
	// before a park collapse to one pending wake.
	parkReady uint64 = 1 << 0

	// parkFenceStep advances the fence generation. It is added exactly
	// once by the Subscribe guard and once by YieldBack per suspension
	// round; the low fence bit reads cleared when a round has fully
	// finished. The counter is never guarded against wraparound; at
	// one round per suspension that is unreachable in practice.
	parkFenceStep uint64 = 1 << 1
)

// Park is the suspend/wake rendezvous for a single blocking operation.
// It is owned by the coroutine performing the wait and referenced by
// outside producers for the duration of the wait. Exactly one
// coroutine may be the registered consumer at a time; Unpark may be
// called concurrently by any number of producers. No lock is used
// anywhere: coordination is compare-and-swap loops plus a single-slot
// atomic hand-off, because Park sits on every suspension path in the
// runtime.
type Park struct {
	noCopy noCopy

	// waitCo holds at most one pending continuation: written by the
	// consumer at subscribe time, taken by whichever producer wins the
	// wake race. Shared with the timer service as the timer key.
	waitCo *handoff[Task]

	// state bit 0 is the ready flag, bit 1 the fence parity; higher
	// bits count fence generations.
	state atomic.Uint64

	checkCancel atomic.Bool
	isCanceled  atomic.Bool

	// timeout in milliseconds, 0 means park forever.
	timeoutMs atomic.Uint64

	// timeoutHandle is the armed timer, nil when none.
	timeoutHandle atomic.Pointer[TimerHandle]

	// waitKernel marks that a kernel-visible registration round is
	// currently open, paired with the fence bit.
	waitKernel atomic.Bool
}

// NewPark returns a fresh Park: ready bit and fence cleared, no timer
// armed, cancellation auto-observed.
func NewPark() *Park {
	p := &Park{waitCo: new(handoff[Task])}
	p.checkCancel.Store(true)
	return p
}

// IgnoreCancel toggles whether ParkTimeout auto-fails on cancellation.
// When ignored, the caller is responsible for polling the cancellation
// status through IsCanceled or its token.
func (p *Park) IgnoreCancel(ignore bool) {
	p.checkCancel.Store(!ignore)
}

// IsCanceled reports the last-observed cancellation outcome for this
// wait. It remains queryable when auto-observation is suppressed.
func (p *Park) IsCanceled() bool {
	return p.isCanceled.Load()
}

// setTimeout installs d as the new timeout and returns the previous
// value, detecting overlapping configuration across repeated calls on
// a reused instance. Zero means park forever.
func (p *Park) setTimeout(d time.Duration) time.Duration {
	var ms uint64
	if d > 0 {
		if v, err := safecast.Conv[uint64](d.Milliseconds()); err == nil {
			ms = v
		}
	}

	prev := p.timeoutMs.Swap(ms)
	if prev == 0 {
		return 0
	}
	v, err := safecast.Conv[int64](prev)
	if err != nil {
		return 0
	}
	return time.Duration(v) * time.Millisecond
}

// setTimeoutHandle swaps in the armed timer handle (nil uninstalls)
// and returns the previous one, which the caller must dispose of.
func (p *Park) setTimeoutHandle(h *TimerHandle) *TimerHandle {
	return p.timeoutHandle.Swap(h)
}

// needPark atomically consumes a pending wake. It reports true when
// the caller must actually suspend; false means the ready bit was set
// and has been consumed, so no suspension occurs.
func (p *Park) needPark() bool {
	state := p.state.Load()
	for state&parkReady != 0 {
		if p.state.CompareAndSwap(state, state-parkReady) {
			return false
		}
		state = p.state.Load()
	}
	return true
}

// Unpark signals the park ready. Callable concurrently by any number
// of producers; if the ready bit is already set this is a no-op. On
// the winning transition the registered continuation, if any, is
// handed to the scheduler's run queue.
func (p *Park) Unpark() {
	state := p.state.Load()
	for state&parkReady == 0 {
		if p.state.CompareAndSwap(state, state+parkReady) {
			p.wakeUp(false)
			return
		}
		state = p.state.Load()
	}
}

// wakeUp takes the registered continuation and runs it. The sync form
// is used only for the recursive re-check inside Subscribe, where the
// wait is already satisfied and must not be left parked; every other
// producer goes through the run queue to bound stack growth and stay
// non-blocking.
func (p *Park) wakeUp(sync bool) {
	t := p.waitCo.take()
	if t == nil {
		return
	}
	if sync {
		t.run(nil)
	} else {
		t.sched.Schedule(t, nil)
	}
}

// removeTimeoutHandle uninstalls the armed timer, if any, deleting it
// from the timer service. A timer that already fired was consumed by
// natural expiry and deletion is a no-op.
func (p *Park) removeTimeoutHandle(t *Task) {
	if h := p.setTimeoutHandle(nil); h != nil {
		t.sched.DelTimer(h)
	}
}

// ParkTimeout parks the calling coroutine until a producer wakes it,
// the timeout elapses, or cancellation is observed. d of zero parks
// forever. It returns nil on a wake, ErrTimeout when the deadline
// elapsed first, and ErrCanceled when cancellation was observed with
// auto-observation enabled. Both errors are ordinary control-flow
// outcomes; any other resumption cause is a defect and panics.
func (p *Park) ParkTimeout(t *Task, d time.Duration) error {
	p.setTimeout(d)

	// a wake may already be pending; consume it and skip suspension
	if !p.needPark() {
		return nil
	}

	// before a new round, wait for the previous round's kernel fence
	// to close: a stale completion may still reference the wait slot.
	// The wait yields into the scheduler, never spins a core.
	if p.waitKernel.Swap(false) {
		for p.state.Load()&parkFenceStep == parkFenceStep {
			t.YieldNow()
		}
	} else {
		p.state.And(^parkFenceStep)
	}

	// the ready bit may be set before we suspend; Subscribe re-checks
	cause := t.yieldWith(p)

	// clear any wake that lost the race while we were resuming
	p.needPark()
	p.removeTimeoutHandle(t)

	if p.checkCancel.Load() && p.isCanceled.Load() {
		return ErrCanceled
	}

	switch {
	case cause == nil:
		return nil
	case errors.Is(cause, ErrTimeout):
		return ErrTimeout
	case errors.Is(cause, ErrCanceled):
		if p.checkCancel.Load() {
			return ErrCanceled
		}
		return nil
	default:
		panic("parkio: unexpected park wake cause: " + cause.Error())
	}
}

// Subscribe registers the suspended continuation with the park. It is
// invoked by the scheduler exactly once per suspension attempt.
func (p *Park) Subscribe(t *Task) {
	// arm the timer first, keyed on the wait slot. A stale handle from
	// a previous round on a reused instance is uninstalled so it cannot
	// double-wake.
	var handle *TimerHandle
	if d := p.setTimeout(0); d > 0 {
		handle = t.sched.AddTimer(d, p.waitCo)
	}
	if old := p.setTimeoutHandle(handle); old != nil {
		t.sched.DelTimer(old)
	}

	// open the teardown fence for this round; the guard closes it by
	// exactly one step on every exit path.
	defer p.delayTeardown()()

	p.waitCo.swap(t)

	// a producer may have set the ready bit between the consumer's
	// check and now; the wait must never be left parked once
	// satisfied. This recurses into run on the current stack.
	if p.state.Load()&parkReady == parkReady {
		p.wakeUp(true)
		return
	}

	// link cancellation so an external Cancel can find and wake the
	// slot, and handle a token that was flagged before we got here.
	cancel := t.cancel
	cancel.attach(p.waitCo)
	if cancel.IsCanceled() {
		cancel.deliver()
	}
}

// YieldBack runs once the coroutine has fully left the running state
// for this round. It advances the fence to the next generation and
// snapshots the token's cancellation status for classification by
// ParkTimeout.
func (p *Park) YieldBack(c *Cancel) {
	p.state.Add(parkFenceStep)
	p.isCanceled.Store(c.IsCanceled())
}

// delayTeardown opens a kernel registration round and returns the
// guard that closes it. The fence advances by exactly one step per
// round regardless of which exit path Subscribe takes.
func (p *Park) delayTeardown() func() {
	p.waitKernel.Store(true)
	return func() {
		p.state.Add(parkFenceStep)
	}
}

// Release is the teardown point for a Park whose kernel round may
// still be open: it cooperatively waits, yielding into the scheduler,
// until the in-flight round's fence closes, then uninstalls any armed
// timer. Required before discarding or re-pooling an instance while an
// asynchronous completion may still reference its wait slot.
func (p *Park) Release(t *Task) {
	if !p.waitKernel.Load() {
		return
	}

	for p.state.Load()&parkFenceStep == parkFenceStep {
		t.YieldNow()
	}

	p.removeTimeoutHandle(t)
}
