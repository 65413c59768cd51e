// Package parkio provides the park/unpark suspension primitive at the
// core of a multicore stackful coroutine runtime, plus the eventfd
// bridge that lets kernel-level I/O completion wake a parked
// coroutine. A coroutine that needs to block never blocks its carrier
// OS thread; it suspends into the scheduler and is re-admitted to the
// run queue when a producer signals it.
//
// Key components:
//
//   - Park: The suspend/wake state machine. Exactly one coroutine may
//     be the registered consumer of a Park at a time; any number of
//     concurrent producers may call Unpark. All coordination uses
//     compare-and-swap loops and a single-slot atomic hand-off, never
//     a lock.
//
//   - Task: A coroutine-like unit of work backed by a stackful
//     coroutine. Tasks suspend by yielding into an EventSource and
//     resume with a wake cause delivered at the suspension point.
//
//   - Scheduler: Multicore run queue plus the timer service Park arms
//     and disarms per wait cycle.
//
//   - Cancel: Per-task cooperative cancellation token. Cancellation is
//     observed before suspending and upon waking, never by interrupting
//     running code.
//
//   - FileIo/Reactor: Per-file eventfd readiness channel registered
//     with an epoll reactor, so asynchronous I/O completion ultimately
//     reaches a waiting Park through the same Unpark path as any other
//     producer.
//
//   - Synchronization primitives: Mutex, WaitGroup, ErrGroup, and
//     SingleFlight built on Park.
package parkio
