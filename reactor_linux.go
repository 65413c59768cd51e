//go:build linux

package parkio

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Reactor converts OS-level readiness notifications into park wakes.
// Descriptors are registered for read readiness; when one becomes
// readable its eventfd counter is drained and the attached Park is
// unparked on the reactor thread, just like any other producer.
type Reactor struct {
	epfd   int
	wakefd int

	mu   sync.Mutex
	regs map[int32]*Registration

	done chan struct{}
}

// Registration is the opaque token produced when a descriptor is
// registered with the reactor.
type Registration struct {
	r    *Reactor
	fd   int32
	park atomic.Pointer[Park]
}

// NewReactor starts a reactor with its own epoll instance and polling
// thread.
func NewReactor() (*Reactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	// internal eventfd used only to interrupt EpollWait on Close
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}

	r := &Reactor{
		epfd:   epfd,
		wakefd: wakefd,
		regs:   make(map[int32]*Registration),
		done:   make(chan struct{}),
	}

	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, err
	}

	go r.run()
	return r, nil
}

// Register adds fd to the epoll watch set for read readiness and
// returns its registration token. Registration failure is surfaced to
// the caller, never swallowed.
func (r *Reactor) Register(fd int) (*Registration, error) {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return nil, err
	}

	reg := &Registration{r: r, fd: int32(fd)}
	r.mu.Lock()
	r.regs[int32(fd)] = reg
	r.mu.Unlock()
	return reg, nil
}

// Close stops the polling thread and releases the reactor's own
// descriptors. Outstanding registrations become inert.
func (r *Reactor) Close() error {
	var one [8]byte
	binary.LittleEndian.PutUint64(one[:], 1)
	unix.Write(r.wakefd, one[:])
	<-r.done

	unix.Close(r.wakefd)
	return unix.Close(r.epfd)
}

func (r *Reactor) run() {
	defer close(r.done)

	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(r.epfd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return
		}

		for i := 0; i < n; i++ {
			fd := events[i].Fd
			if fd == int32(r.wakefd) {
				return
			}

			r.mu.Lock()
			reg := r.regs[fd]
			r.mu.Unlock()
			if reg == nil {
				continue
			}

			reg.drain()
			reg.wake()
		}
	}
}

// SetPark attaches the Park a readiness event should wake. The latest
// attached instance wins; completions arriving with no park attached
// are counted by the eventfd and consumed on the next drain.
func (g *Registration) SetPark(p *Park) {
	g.park.Store(p)
}

// wake unparks the attached target, if any.
func (g *Registration) wake() {
	if p := g.park.Load(); p != nil {
		p.Unpark()
	}
}

// drain consumes the eventfd counter so level-triggered polling does
// not re-report the same completions.
func (g *Registration) drain() {
	var buf [8]byte
	unix.Read(int(g.fd), buf[:])
}

// release removes the registration from the reactor. The watched
// descriptor is expected to be closed already; the epoll delete may
// therefore fail and the failure is irrelevant.
func (g *Registration) release() {
	if g.r == nil {
		return
	}

	g.r.mu.Lock()
	delete(g.r.regs, g.fd)
	g.r.mu.Unlock()

	unix.EpollCtl(g.r.epfd, unix.EPOLL_CTL_DEL, int(g.fd), nil)
}
