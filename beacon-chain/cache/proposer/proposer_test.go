package proposer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addr(b byte) FeeRecipient {
	var a FeeRecipient
	a[0] = b
	return a
}

func TestCache_S1Scenario(t *testing.T) {
	c := New(addr(0xAA))
	c.Add(1, 23, addr(0xBB))
	c.Add(3, 43, addr(0xCC))

	require.Equal(t, addr(0xAA), c.GetOrDefault(32))
	got, ok := c.Get(23)
	require.True(t, ok)
	require.Equal(t, addr(0xBB), got)

	c.Prune(4)
	require.Equal(t, addr(0xAA), c.GetOrDefault(23))
	got, ok = c.Get(43)
	require.True(t, ok)
	require.Equal(t, addr(0xCC), got)
}
