package payloadattestation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/operations"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

func TestPool_Insert_AlreadyKnown(t *testing.T) {
	p := NewPool()
	m := &Message{Slot: 1, BlockRoot: primitives.Root{1}, DataRoot: primitives.Root{2}, ValidatorCommitteeIndex: 3}
	require.Equal(t, operations.NewData, p.Insert(m))
	require.Equal(t, operations.AlreadyKnown, p.Insert(m))
}

func TestPool_GetPayloadAttestationsForBlock_RanksByParticipation(t *testing.T) {
	p := NewPool()
	root := primitives.Root{1}
	dataA := primitives.Root{0xa}
	dataB := primitives.Root{0xb}

	p.Insert(&Message{Slot: 5, BlockRoot: root, DataRoot: dataA, ValidatorCommitteeIndex: 0})
	p.Insert(&Message{Slot: 5, BlockRoot: root, DataRoot: dataB, ValidatorCommitteeIndex: 0})
	p.Insert(&Message{Slot: 5, BlockRoot: root, DataRoot: dataB, ValidatorCommitteeIndex: 1})

	top := p.GetPayloadAttestationsForBlock(root, 5, 1)
	require.Equal(t, []primitives.Root{dataB}, top)
}

func TestPool_PruneBefore(t *testing.T) {
	p := NewPool()
	p.Insert(&Message{Slot: 1, BlockRoot: primitives.Root{1}, DataRoot: primitives.Root{2}})
	p.Insert(&Message{Slot: 10, BlockRoot: primitives.Root{1}, DataRoot: primitives.Root{2}})
	p.PruneBefore(5)
	require.Equal(t, 0, len(p.GetPayloadAttestationsForBlock(primitives.Root{1}, 1, 10)))
	require.Equal(t, 1, len(p.GetPayloadAttestationsForBlock(primitives.Root{1}, 10, 10)))
}
