package parkio

import "time"

// TimerHandle is the owned handle to a single timer registered with
// the scheduler's timer service. Once armed it is either consumed by
// natural expiry or must be deleted before replacement or teardown.
type TimerHandle struct {
	timer *time.Timer
}

// AddTimer arms a one-shot timer keyed on a wait slot. On expiry the
// continuation, if still parked in the slot, is scheduled with the
// ErrTimeout cause — the identical wake path as a genuine producer. A
// real wake racing the expiry is resolved by whoever empties the slot
// first; the loser is a harmless no-op.
func (s *Scheduler) AddTimer(d time.Duration, slot *handoff[Task]) *TimerHandle {
	h := new(TimerHandle)
	h.timer = time.AfterFunc(d, func() {
		if t := slot.take(); t != nil {
			s.Schedule(t, ErrTimeout)
		}
	})
	return h
}

// DelTimer uninstalls a timer handle. Deleting a handle whose timer
// already fired is a no-op.
func (s *Scheduler) DelTimer(h *TimerHandle) {
	if h != nil {
		h.timer.Stop()
	}
}
