package synccommittee

import (
	"testing"

	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

func TestStore_SaveSyncCommitteeContribution_Nil(t *testing.T) {
	s := NewStore()
	require.Equal(t, errNilContribution, s.SaveSyncCommitteeContribution(nil))
}

func TestStore_SyncCommitteeContributions_RoundTrip(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{Slot: 1, SubcommitteeIndex: 0}))
	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{Slot: 1, SubcommitteeIndex: 1}))
	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{Slot: 2, SubcommitteeIndex: 0}))

	conts, err := s.SyncCommitteeContributions(1)
	require.NoError(t, err)
	require.Equal(t, 2, len(conts))

	conts, err = s.SyncCommitteeContributions(2)
	require.NoError(t, err)
	require.Equal(t, 1, len(conts))
}

func TestStore_GetAggregate_EmptyReturnsZeroAndInfinity(t *testing.T) {
	s := NewStore()
	agg, err := s.GetAggregate(1, primitives.Root{}, nil)
	require.NoError(t, err)
	require.Equal(t, bitfield.NewBitvector512(), agg.SyncCommitteeBits)
	require.Equal(t, byte(0xc0), agg.SyncCommitteeSignature[0])
}

func TestStore_GetAggregate_MergesSubnetOffsets(t *testing.T) {
	s := NewStore()
	root := primitives.Root{1}
	bits := make(bitfield.Bitlist, SyncCommitteeSubnetBytes)
	bits[0] = 0b1

	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{
		Slot: 5, BlockRoot: root, SubcommitteeIndex: 0, AggregationBits: bits,
	}))
	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{
		Slot: 5, BlockRoot: root, SubcommitteeIndex: 1, AggregationBits: bits,
	}))

	var calledWith [][96]byte
	agg, err := s.GetAggregate(5, root, func(sigs [][96]byte) ([96]byte, error) {
		calledWith = sigs
		return [96]byte{9}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, len(calledWith))
	require.True(t, agg.SyncCommitteeBits.BitAt(0))
	require.True(t, agg.SyncCommitteeBits.BitAt(SyncCommitteeSubnetBytes*8))
	require.Equal(t, byte(9), agg.SyncCommitteeSignature[0])
}

func TestStore_PruneBefore(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{Slot: 1}))
	require.NoError(t, s.SaveSyncCommitteeContribution(&Contribution{Slot: 10}))
	s.PruneBefore(5)
	conts, _ := s.SyncCommitteeContributions(1)
	require.Equal(t, 0, len(conts))
	conts, _ = s.SyncCommitteeContributions(10)
	require.Equal(t, 1, len(conts))
}
