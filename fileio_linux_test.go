//go:build linux

package parkio

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func tempFile(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestFileIoReal(t *testing.T) {
	r := require.New(t)

	reactor, err := NewReactor()
	r.NoError(err)
	defer reactor.Close()

	fio, err := NewFileIo(reactor, tempFile(t))
	r.NoError(err)
	r.GreaterOrEqual(fio.EventFd().Raw(), 0)
	r.NotNil(fio.Registration())

	r.NoError(fio.Close())
}

func TestFileIoInert(t *testing.T) {
	r := require.New(t)

	fio, err := NewFileIo(nil, nil)
	r.NoError(err)
	r.Equal(-1, fio.EventFd().Raw())

	// the sentinel descriptor is never closed
	r.NoError(fio.Close())
	r.NoError(fio.Close())
}

func TestEventFdWakesPark(t *testing.T) {
	r := require.New(t)

	reactor, err := NewReactor()
	r.NoError(err)
	defer reactor.Close()

	fio, err := NewFileIo(reactor, tempFile(t))
	r.NoError(err)
	defer fio.Close()

	p := NewPark()
	fio.Registration().SetPark(p)

	// simulate an async completion: the kernel posts to the eventfd,
	// the reactor drains it and unparks the waiter
	go func() {
		time.Sleep(10 * time.Millisecond)
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], 1)
		unix.Write(fio.EventFd().Raw(), buf[:])
	}()

	var parkErr error
	runTask(func(_ context.Context, task *Task) {
		parkErr = p.ParkTimeout(task, 5*time.Second)
	})

	r.NoError(parkErr)
}

func TestOpenHelpers(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	name := filepath.Join(dir, "file")

	f, err := Create(name)
	r.NoError(err)
	r.NoError(f.Close())

	f, err = Open(name)
	r.NoError(err)
	r.NoError(f.Close())

	f, err = OpenFile(name, os.O_RDWR|os.O_APPEND, 0o644)
	r.NoError(err)
	r.NoError(f.Close())
}
