package executionpayloadbid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/operations"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

func TestPool_Insert_HighestValueWins(t *testing.T) {
	p := NewPool()
	slot, parentRoot, parentHash := primitives.Slot(1), primitives.Root{1}, primitives.Root{2}

	require.Equal(t, operations.NewData, p.Insert(&Bid{Slot: slot, ParentRoot: parentRoot, ParentHash: parentHash, Value: 10}))
	require.Equal(t, operations.NotBetterThan, p.Insert(&Bid{Slot: slot, ParentRoot: parentRoot, ParentHash: parentHash, Value: 5}))
	require.Equal(t, operations.AlreadyKnown, p.Insert(&Bid{Slot: slot, ParentRoot: parentRoot, ParentHash: parentHash, Value: 10}))
	require.Equal(t, operations.Aggregated, p.Insert(&Bid{Slot: slot, ParentRoot: parentRoot, ParentHash: parentHash, Value: 20}))

	best, ok := p.BestBid(slot, parentRoot, parentHash)
	require.True(t, ok)
	require.Equal(t, uint64(20), best.Value)
}

func TestPool_PruneBefore(t *testing.T) {
	p := NewPool()
	p.Insert(&Bid{Slot: 1, Value: 1})
	p.Insert(&Bid{Slot: 10, Value: 1})
	p.PruneBefore(5)
	_, ok := p.BestBid(1, primitives.Root{}, primitives.Root{})
	require.False(t, ok)
	_, ok = p.BestBid(10, primitives.Root{}, primitives.Root{})
	require.True(t, ok)
}
