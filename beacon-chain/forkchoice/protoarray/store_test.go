package protoarray

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

func TestStore_InvalidateChainBack_StopsAtLatestValidHash(t *testing.T) {
	s := NewStore(Checkpoint{}, Checkpoint{})
	require.NoError(t, s.arena.Insert(&ProtoBlock{Slot: 0, Root: root(1), ExecutionPayloadHash: [32]byte{0xAA}}))
	require.NoError(t, s.arena.Insert(&ProtoBlock{Slot: 1, Root: root(2), ParentRoot: root(1), ExecutionPayloadHash: [32]byte{0xBB}}))
	require.NoError(t, s.arena.Insert(&ProtoBlock{Slot: 2, Root: root(3), ParentRoot: root(2), ExecutionPayloadHash: [32]byte{0xCC}}))

	require.NoError(t, s.InvalidateChainBack(root(3), [32]byte{0xAA}))

	idx3, _ := s.arena.IndexOf(root(3))
	idx2, _ := s.arena.IndexOf(root(2))
	idx1, _ := s.arena.IndexOf(root(1))
	require.Equal(t, primitives.ExecutionStatusInvalid, s.arena.Nodes[idx3].ExecutionStatus)
	require.Equal(t, primitives.ExecutionStatusInvalid, s.arena.Nodes[idx2].ExecutionStatus)
	require.Equal(t, primitives.ExecutionStatus(0), s.arena.Nodes[idx1].ExecutionStatus)
}

func TestStore_InvalidateChainBack_UnknownRootErrors(t *testing.T) {
	s := NewStore(Checkpoint{}, Checkpoint{})
	err := s.InvalidateChainBack(root(9), [32]byte{})
	require.Error(t, err)
	var fcErr *ForkChoiceError
	require.ErrorAs(t, err, &fcErr)
	require.Equal(t, KindUnknownParent, fcErr.Kind)
}

func TestStore_OnExecutionNewPayloadResult(t *testing.T) {
	s := NewStore(Checkpoint{}, Checkpoint{})
	require.NoError(t, s.arena.Insert(&ProtoBlock{Slot: 0, Root: root(1)}))
	require.NoError(t, s.OnExecutionNewPayloadResult(root(1), primitives.ExecutionStatusSyncing))
	idx, _ := s.arena.IndexOf(root(1))
	require.Equal(t, primitives.ExecutionStatusSyncing, s.arena.Nodes[idx].ExecutionStatus)
}
