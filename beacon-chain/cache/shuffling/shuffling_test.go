package shuffling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

func TestCache_GetOrThrow_Missing(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	_, err = c.GetOrThrow(1, primitives.Root{})
	require.Equal(t, ErrNoShufflingFound, err)
}

func TestCache_InsertPromiseThenSet(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	root := primitives.Root{1}
	require.NoError(t, c.InsertPromise(1, root))
	_, ok := c.Get(1, root)
	require.False(t, ok, "a promise with no resolved shuffling is not a hit")

	want := &EpochShuffling{Epoch: 1}
	c.Set(1, root, want)
	got, ok := c.Get(1, root)
	require.True(t, ok)
	require.Equal(t, want, got)
}

func TestCache_InsertPromise_MaxPromisesExceeded(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	for i := 0; i < MaxPromises; i++ {
		root := primitives.Root{byte(i)}
		require.NoError(t, c.InsertPromise(primitives.Epoch(i), root))
	}
	err = c.InsertPromise(primitives.Epoch(MaxPromises), primitives.Root{0xff})
	require.Equal(t, ErrMaxPromisesExceeded, err)
}

func TestCache_GetOrCompute_SingleFlight(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	root := primitives.Root{9}
	calls := 0
	compute := func(context.Context) (*EpochShuffling, error) {
		calls++
		return &EpochShuffling{Epoch: 3}, nil
	}

	s1, err := c.GetOrCompute(context.Background(), 3, root, compute)
	require.NoError(t, err)
	s2, err := c.GetOrCompute(context.Background(), 3, root, compute)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
	require.Equal(t, 1, calls)
}
