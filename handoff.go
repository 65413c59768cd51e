package parkio

import "sync/atomic"

// handoff is a single-slot multi-producer hand-off register. It holds
// at most one item; Take atomically empties it, so under any number of
// concurrent takers an item is delivered exactly once.
type handoff[T any] struct {
	p atomic.Pointer[T]
}

// swap publishes v into the slot and returns whatever occupied it
// before, which may be nil.
func (h *handoff[T]) swap(v *T) *T {
	return h.p.Swap(v)
}

// take empties the slot and returns its occupant, or nil when the slot
// was already empty or another taker won.
func (h *handoff[T]) take() *T {
	if h.p.Load() == nil {
		return nil
	}
	return h.p.Swap(nil)
}
