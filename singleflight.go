package parkio

import "sync"

// singleFlightCall represents an in-flight function call that may be
// shared among multiple callers. It tracks the result of the call and
// the number of duplicated requests.
type singleFlightCall struct {
	wg   WaitGroup
	val  any
	err  error
	dups int
}

// SingleFlight provides a mechanism to deduplicate concurrent
// function calls with the same key. It ensures that only one
// execution happens for concurrent calls with the same key; duplicate
// callers park until the owning call completes.
type SingleFlight struct {
	mu sync.Mutex
	m  map[any]*singleFlightCall
}

// Do executes the given function for the key, deduplicating
// concurrent calls. It returns the result, any error, and whether
// this was a shared result.
func (g *SingleFlight) Do(t *Task, key any, fn func() (any, error)) (v any, err error, shared bool) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[any]*singleFlightCall)
	}

	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		c.wg.Wait(t)
		return c.val, c.err, true
	}

	c := new(singleFlightCall)
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	if g.m[key] == c {
		delete(g.m, key)
	}
	shared = c.dups > 0
	g.mu.Unlock()

	c.wg.Done()
	return c.val, c.err, shared
}
