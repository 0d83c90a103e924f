// Package kv implements the attestation pool storage of spec.md §4.5 (C5):
// slot-and-root-keyed aggregated/unaggregated attestation caches with
// deterministic bitwise aggregation, grounded on the teacher's
// operations/attestations/kv test suite (`NewAttCaches`,
// `AggregatedAttestationsBySlotIndex`, `bitfield.Bitlist` aggregation-bits).
package kv

import (
	"sync"

	"github.com/prysmaticlabs/go-bitfield"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/operations"
	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

type slotIndexKey struct {
	slot  primitives.Slot
	index primitives.CommitteeIndex
}

// AttCaches holds the unaggregated and aggregated attestation pools. Both
// are keyed by (slot, committeeIndex) first, matching
// `AggregatedAttestationsBySlotIndex` in the teacher's test suite.
type AttCaches struct {
	mu sync.RWMutex

	unaggregated map[slotIndexKey][]*blocks.Attestation
	aggregated   map[slotIndexKey][]*blocks.Attestation

	// seen tracks data-root+bits signatures already admitted, to resolve
	// AlreadyKnown vs NewData without rescanning every slot bucket.
	seen map[string]struct{}
}

func NewAttCaches() *AttCaches {
	return &AttCaches{
		unaggregated: make(map[slotIndexKey][]*blocks.Attestation),
		aggregated:   make(map[slotIndexKey][]*blocks.Attestation),
		seen:         make(map[string]struct{}),
	}
}

func key(a *blocks.Attestation) slotIndexKey {
	return slotIndexKey{slot: a.Data.Slot, index: a.Data.CommitteeIndex}
}

func bitsOf(a *blocks.Attestation) bitfield.Bitlist {
	return bitfield.Bitlist(a.AggregationBits)
}

func (c *AttCaches) seenKey(a *blocks.Attestation) string {
	return string(a.Data.BeaconBlockRoot[:]) + string(a.AggregationBits) + string(a.Signature[:])
}

// SaveUnaggregatedAttestation inserts a single-bit attestation, returning
// AlreadyKnown on an exact repeat.
func (c *AttCaches) SaveUnaggregatedAttestation(a *blocks.Attestation) operations.InsertOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveUnaggregatedLocked(a)
}

func (c *AttCaches) saveUnaggregatedLocked(a *blocks.Attestation) operations.InsertOutcome {
	sk := c.seenKey(a)
	if _, ok := c.seen[sk]; ok {
		return operations.AlreadyKnown
	}
	c.seen[sk] = struct{}{}
	k := key(a)
	c.unaggregated[k] = append(c.unaggregated[k], a)
	return operations.NewData
}

func (c *AttCaches) SaveUnaggregatedAttestations(atts []*blocks.Attestation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range atts {
		c.saveUnaggregatedLocked(a)
	}
}

// AggregateUnaggregatedAttestations merges every unaggregated attestation
// sharing (slot, committeeIndex, signature) into one aggregate per distinct
// signer-set-compatible group, via bitwise-OR of aggregation bits, then
// moves the result into the aggregated pool and clears the unaggregated
// bucket.
func (c *AttCaches) AggregateUnaggregatedAttestations() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, atts := range c.unaggregated {
		bySig := make(map[[96]byte][]*blocks.Attestation)
		for _, a := range atts {
			bySig[a.Signature] = append(bySig[a.Signature], a)
		}
		for sig, group := range bySig {
			merged := bitsOf(group[0]).Clone()
			for _, a := range group[1:] {
				merged = merged.Or(bitsOf(a))
			}
			agg := &blocks.Attestation{
				AggregationBits: []byte(merged),
				Data:            group[0].Data,
				Signature:       sig,
			}
			c.insertAggregatedLocked(k, agg)
		}
		delete(c.unaggregated, k)
	}
	return nil
}

// SaveAggregatedAttestation inserts agg, aggregating it into an existing
// entry whose bits it is a superset/subset-compatible with, per the bitwise
// semantics the teacher's TestKV_Aggregated_SaveAggregatedAttestation
// suite exercises; returns NotBetterThan if an existing entry already
// covers agg's bits.
func (c *AttCaches) SaveAggregatedAttestation(agg *blocks.Attestation) operations.InsertOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insertAggregatedLocked(key(agg), agg)
}

func (c *AttCaches) insertAggregatedLocked(k slotIndexKey, agg *blocks.Attestation) operations.InsertOutcome {
	bucket := c.aggregated[k]
	bits := bitsOf(agg)
	for i, existing := range bucket {
		eb := bitsOf(existing)
		if eb.Len() != bits.Len() {
			continue
		}
		if eb.Contains(bits) {
			return operations.NotBetterThan
		}
		if bits.Contains(eb) {
			bucket[i] = agg
			return operations.Aggregated
		}
	}
	c.aggregated[k] = append(bucket, agg)
	return operations.NewData
}

// AggregatedAttestationsBySlotIndex returns every aggregate stored for
// (slot, committeeIndex).
func (c *AttCaches) AggregatedAttestationsBySlotIndex(slot primitives.Slot, index primitives.CommitteeIndex) []*blocks.Attestation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*blocks.Attestation(nil), c.aggregated[slotIndexKey{slot: slot, index: index}]...)
}

// DeleteAggregatedAttestation removes agg from its bucket, used once a
// block including it has been imported (spec.md §4.3 "Delete the processed
// block attestations from attestation pool").
func (c *AttCaches) DeleteAggregatedAttestation(agg *blocks.Attestation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(agg)
	bucket := c.aggregated[k]
	for i, existing := range bucket {
		if string(existing.AggregationBits) == string(agg.AggregationBits) && existing.Signature == agg.Signature {
			c.aggregated[k] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// PruneBefore drops every slot-indexed bucket older than minSlot, per the
// pools' shared "pruned to the last SLOTS_RETAINED head-slots" invariant.
func (c *AttCaches) PruneBefore(minSlot primitives.Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.unaggregated {
		if k.slot < minSlot {
			delete(c.unaggregated, k)
		}
	}
	for k := range c.aggregated {
		if k.slot < minSlot {
			delete(c.aggregated, k)
		}
	}
}
