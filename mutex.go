package parkio

import "sync"

// Mutex provides mutual exclusion for tasks. It allows only one task
// to hold the lock at a time, parking other tasks that attempt to
// acquire the lock until it's released. The zero value is an unlocked
// mutex.
type Mutex struct {
	noCopy noCopy
	once   sync.Once
	sema   sema
}

// Lock acquires the mutex for the given task. If the mutex is already
// locked, the task parks until the mutex is available.
func (m *Mutex) Lock(t *Task) {
	m.once.Do(func() { m.sema.v = 1 })
	m.sema.acquire(t)
}

// Unlock releases the mutex. If there are tasks waiting to acquire
// the mutex, one of them will be granted it.
func (m *Mutex) Unlock() {
	m.sema.release()
}

// WaitCount returns the number of tasks waiting to acquire the mutex.
func (m *Mutex) WaitCount() int {
	return m.sema.waitCount()
}
