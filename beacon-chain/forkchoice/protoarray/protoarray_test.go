package protoarray

import (
	"testing"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
	"github.com/stretchr/testify/require"
)

func root(b byte) primitives.Root {
	var r primitives.Root
	r[0] = b
	return r
}

func TestProtoArray_InsertAndHead(t *testing.T) {
	arr := New(0, 0)
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 0, Root: root(1)}))
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 1, Root: root(2), ParentRoot: root(1)}))
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 2, Root: root(3), ParentRoot: root(2)}))

	head, err := arr.Head(root(1))
	require.NoError(t, err)
	require.Equal(t, root(3), head)
}

func TestProtoArray_InsertUnknownParentErrors(t *testing.T) {
	arr := New(0, 0)
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 0, Root: root(1)}))
	err := arr.Insert(&ProtoBlock{Slot: 5, Root: root(9), ParentRoot: root(200)})
	require.Error(t, err)
	var fcErr *ForkChoiceError
	require.ErrorAs(t, err, &fcErr)
	require.Equal(t, KindUnknownParent, fcErr.Kind)
}

func TestProtoArray_PruneKeepsOnlyDescendants(t *testing.T) {
	arr := New(0, 0)
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 0, Root: root(1)}))
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 1, Root: root(2), ParentRoot: root(1)}))
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 1, Root: root(3), ParentRoot: root(1)}))
	require.NoError(t, arr.Insert(&ProtoBlock{Slot: 2, Root: root(4), ParentRoot: root(2)}))

	require.NoError(t, arr.Prune(root(2)))

	require.Len(t, arr.Nodes, 2)
	_, ok := arr.IndexOf(root(3))
	require.False(t, ok, "sibling branch must be pruned")
	_, ok = arr.IndexOf(root(4))
	require.True(t, ok, "descendant of new finalized root must survive")

	head, err := arr.Head(root(2))
	require.NoError(t, err)
	require.Equal(t, root(4), head)
}

func TestStore_UpdateHeadAppliesProposerBoost(t *testing.T) {
	s := NewStore(Checkpoint{Root: root(1)}, Checkpoint{Root: root(1)})
	require.NoError(t, s.OnBlock(&ProtoBlock{Slot: 0, Root: root(1)}))
	require.NoError(t, s.OnBlock(&ProtoBlock{Slot: 1, Root: root(2), ParentRoot: root(1)}))
	require.NoError(t, s.OnBlock(&ProtoBlock{Slot: 1, Root: root(3), ParentRoot: root(1)}))

	head, err := s.UpdateHead(nil, root(3), 1000)
	require.NoError(t, err)
	require.Equal(t, root(3), head, "proposer-boosted sibling should win despite equal base weight")
}
