package parkio

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawn(t *testing.T) {
	r := require.New(t)

	var n atomic.Int64
	s := NewScheduler(0)
	defer s.Shutdown()

	for i := 0; i < 100; i++ {
		s.Spawn(context.Background(), func(_ context.Context, task *Task) {
			task.YieldNow()
			n.Add(1)
		})
	}

	s.Wait()
	r.Equal(int64(100), n.Load())
}

func TestYieldNow(t *testing.T) {
	r := require.New(t)

	n := 0
	runTask(func(_ context.Context, task *Task) {
		for i := 0; i < 10; i++ {
			task.YieldNow()
			n++
		}
	})

	r.Equal(10, n)
}

func TestTaskFromContext(t *testing.T) {
	r := require.New(t)

	var found, same bool
	runTask(func(ctx context.Context, task *Task) {
		got, ok := TaskFromContext(ctx)
		found = ok
		same = got == task
	})

	r.True(found)
	r.True(same)
}

func TestTimerWakesSlot(t *testing.T) {
	r := require.New(t)

	s := NewScheduler(2)
	defer s.Shutdown()

	// a deleted timer must never fire into the slot
	slot := new(handoff[Task])
	h := s.AddTimer(10*time.Millisecond, slot)
	s.DelTimer(h)

	var err error
	s.Spawn(context.Background(), func(_ context.Context, task *Task) {
		p := NewPark()
		err = p.ParkTimeout(task, 30*time.Millisecond)
	})

	s.Wait()
	r.ErrorIs(err, ErrTimeout)
}

func TestMutex(t *testing.T) {
	r := require.New(t)

	var mux Mutex
	var critical atomic.Int32
	var clash atomic.Bool
	var n atomic.Int32

	runTask(func(_ context.Context, task *Task) {
		mux.Lock(task)

		for i := 0; i < 3; i++ {
			task.Go(func(_ context.Context, task *Task) {
				mux.Lock(task)
				defer mux.Unlock()

				if critical.Add(1) != 1 {
					clash.Store(true)
				}
				defer critical.Add(-1)

				task.YieldNow()
				n.Add(1)
			})
		}

		task.YieldNow()
		mux.Unlock()
		n.Add(1)
	})

	r.False(clash.Load())
	r.Equal(int32(4), n.Load())
	r.Equal(0, mux.WaitCount())
}

func TestWaitGroup(t *testing.T) {
	r := require.New(t)

	const expect = 100
	var n atomic.Int32
	var wg WaitGroup

	runTask(func(_ context.Context, task *Task) {
		for i := 0; i < expect-1; i++ {
			wg.Add(1)
			task.Go(func(_ context.Context, task *Task) {
				defer wg.Done()
				task.YieldNow()
				n.Add(1)
			})
		}

		wg.Wait(task)
		n.Add(1)
	})

	r.Equal(int32(expect), n.Load())
}

func TestErrGroup(t *testing.T) {
	r := require.New(t)

	boom := fmt.Errorf("UH OH")
	var got error
	var canceled bool

	runTask(func(_ context.Context, task *Task) {
		group := task.Group()

		group.Go(func(ctx context.Context) error {
			return boom
		})

		group.Go(func(ctx context.Context) error {
			// the sibling's error cancels the group context, which
			// cancels this task's token and wakes its park
			p := NewPark()
			err := p.ParkTimeout(MustTaskFromContext(ctx), time.Second)
			canceled = err == ErrCanceled
			return nil
		})

		got = group.Wait(task)
	})

	r.ErrorIs(got, boom)
	r.True(canceled)
}

func TestSingleFlight(t *testing.T) {
	r := require.New(t)

	var single SingleFlight
	var executions atomic.Int32
	var sharedCount atomic.Int32
	var mismatch atomic.Bool

	runTask(func(_ context.Context, task *Task) {
		var wg WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			task.Go(func(_ context.Context, task *Task) {
				defer wg.Done()
				v, err, shared := single.Do(task, "test-key", func() (any, error) {
					executions.Add(1)
					p := NewPark()
					_ = p.ParkTimeout(task, 100*time.Millisecond)
					return strconv.Itoa(7), nil
				})
				if err != nil || v != "7" {
					mismatch.Store(true)
				}
				if shared {
					sharedCount.Add(1)
				}
			})
		}
		wg.Wait(task)
	})

	r.Equal(int32(1), executions.Load())
	r.False(mismatch.Load())
	r.Equal(int32(50), sharedCount.Load())
}
