package kv

import (
	"testing"

	"github.com/prysmaticlabs/go-bitfield"
	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/operations"
	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

func att(slot primitives.Slot, bits byte, sig byte) *blocks.Attestation {
	return &blocks.Attestation{
		Data:            &blocks.AttestationData{Slot: slot},
		AggregationBits: bitfield.Bitlist{bits},
		Signature:       [96]byte{sig},
	}
}

func TestAttCaches_SaveUnaggregatedAttestation_AlreadyKnown(t *testing.T) {
	c := NewAttCaches()
	a := att(1, 0b1001, 1)
	require.Equal(t, operations.NewData, c.SaveUnaggregatedAttestation(a))
	require.Equal(t, operations.AlreadyKnown, c.SaveUnaggregatedAttestation(a))
}

func TestAttCaches_AggregateUnaggregatedAttestations_MergesSameSignature(t *testing.T) {
	c := NewAttCaches()
	c.SaveUnaggregatedAttestations([]*blocks.Attestation{
		att(1, 0b1001, 1),
		att(1, 0b1010, 1),
		att(1, 0b1100, 1),
	})
	require.NoError(t, c.AggregateUnaggregatedAttestations())

	aggs := c.AggregatedAttestationsBySlotIndex(1, 0)
	require.Equal(t, 1, len(aggs))
	require.Equal(t, bitfield.Bitlist{0b1111}, bitfield.Bitlist(aggs[0].AggregationBits))
}

func TestAttCaches_SaveAggregatedAttestation_NotBetterThan(t *testing.T) {
	c := NewAttCaches()
	super := att(1, 0b1111, 1)
	sub := att(1, 0b1001, 1)
	require.Equal(t, operations.NewData, c.SaveAggregatedAttestation(super))
	require.Equal(t, operations.NotBetterThan, c.SaveAggregatedAttestation(sub))
}

func TestAttCaches_DeleteAggregatedAttestation(t *testing.T) {
	c := NewAttCaches()
	a := att(5, 0b1001, 1)
	c.SaveAggregatedAttestation(a)
	require.Equal(t, 1, len(c.AggregatedAttestationsBySlotIndex(5, 0)))
	c.DeleteAggregatedAttestation(a)
	require.Equal(t, 0, len(c.AggregatedAttestationsBySlotIndex(5, 0)))
}

func TestAttCaches_PruneBefore(t *testing.T) {
	c := NewAttCaches()
	c.SaveAggregatedAttestation(att(1, 0b1, 1))
	c.SaveAggregatedAttestation(att(10, 0b1, 1))
	c.PruneBefore(5)
	require.Equal(t, 0, len(c.AggregatedAttestationsBySlotIndex(1, 0)))
	require.Equal(t, 1, len(c.AggregatedAttestationsBySlotIndex(10, 0)))
}
