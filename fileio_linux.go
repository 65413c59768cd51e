//go:build linux

package parkio

import (
	"os"

	"golang.org/x/sys/unix"
)

// EventFd is an exclusively owned kernel notification descriptor that
// becomes readable exactly when outstanding asynchronous operations on
// the owning file complete.
type EventFd struct {
	fd int32
}

// Raw returns the underlying descriptor, -1 for the inert sentinel.
func (e EventFd) Raw() int {
	return int(e.fd)
}

// FileIo bundles a file's kernel readiness channel with its reactor
// registration token, so asynchronous I/O completion on the file can
// reach a waiting Park via Unpark. One instance per file opened for
// asynchronous use.
type FileIo struct {
	fd  EventFd
	reg *Registration
}

// NewFileIo builds the readiness bridge for f. With a real file it
// allocates a non-blocking close-on-exec eventfd and registers it with
// the reactor; descriptor-creation and registration failures are
// surfaced to the caller. With a nil file it produces an inert
// instance carrying the never-closed sentinel descriptor, for code
// paths that need the type uniformly but have no kernel resource.
func NewFileIo(r *Reactor, f *os.File) (*FileIo, error) {
	if f == nil {
		return &FileIo{fd: EventFd{fd: -1}, reg: new(Registration)}, nil
	}

	fd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, err
	}

	reg, err := r.Register(fd)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &FileIo{fd: EventFd{fd: int32(fd)}, reg: reg}, nil
}

// EventFd returns the notification descriptor.
func (f *FileIo) EventFd() EventFd {
	return f.fd
}

// Registration returns the reactor registration token.
func (f *FileIo) Registration() *Registration {
	return f.reg
}

// Close tears the bridge down. The real descriptor is closed first,
// before the registration token's own cleanup runs: the registration
// subsystem may still reference the descriptor's identity during its
// teardown. The inert sentinel is never closed.
func (f *FileIo) Close() error {
	var err error
	if f.fd.fd >= 0 {
		err = unix.Close(int(f.fd.fd))
	}
	f.reg.release()
	return err
}
