package parkio

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestHandoffSingleDelivery(t *testing.T) {
	r := require.New(t)

	const rounds = 1000
	slot := new(handoff[int])

	for i := 0; i < rounds; i++ {
		v := i
		r.Nil(slot.swap(&v))

		var taken atomic.Int32
		var g errgroup.Group
		for w := 0; w < 8; w++ {
			g.Go(func() error {
				if got := slot.take(); got != nil {
					if *got != v {
						t.Error("took wrong value")
					}
					taken.Add(1)
				}
				return nil
			})
		}

		r.NoError(g.Wait())
		r.Equal(int32(1), taken.Load())
	}
}

func TestHandoffEmptyTake(t *testing.T) {
	r := require.New(t)

	slot := new(handoff[int])
	r.Nil(slot.take())

	v := 7
	slot.swap(&v)
	r.Equal(&v, slot.take())
	r.Nil(slot.take())
}
