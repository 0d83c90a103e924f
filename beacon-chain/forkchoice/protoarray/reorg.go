package protoarray

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// Proposer-boost reorg thresholds, per spec.md §4.2's "aggressive reorg"
// guard: a validator may build on its parent instead of an empty-slot head
// only when the would-be-reorged head is weak and was proposed in the slot
// just before the proposal, and never this close to finalization stalling.
// The time within the slot is not checked.
const (
	ReorgHeadWeightThreshold   = 20 // percent
	ReorgParentWeightThreshold = 160
	ReorgMaxEpochsSinceFinalization primitives.Epoch = 2
)

// ShouldOverrideFCU reports whether a proposer building at proposalSlot
// should reorg out headWeight/headRoot in favor of building on parentRoot,
// per spec.md §4.2. All five conditions must hold:
//  1. head was proposed in the previous slot (headLateSlot check already
//     performed by the caller, via headSlot+1 == proposalSlot)
//  2. head's weight is below ReorgHeadWeightThreshold% of the committee
//  3. parent's weight exceeds ReorgParentWeightThreshold
//  4. currentEpoch - finalizedEpoch <= ReorgMaxEpochsSinceFinalization
//  5. the head is not itself the justified checkpoint's block (never
//     reorg out a block that finalization progress depends on)
func ShouldOverrideFCU(
	headSlot, proposalSlot primitives.Slot,
	headWeight, committeeWeight, parentWeight uint64,
	currentEpoch, finalizedEpoch primitives.Epoch,
	headIsJustifiedCheckpoint bool,
) bool {
	if headSlot+1 != proposalSlot {
		return false
	}
	if headIsJustifiedCheckpoint {
		return false
	}
	if currentEpoch < finalizedEpoch || currentEpoch-finalizedEpoch > ReorgMaxEpochsSinceFinalization {
		return false
	}
	if committeeWeight == 0 {
		return false
	}
	headWeightPct := (headWeight * 100) / committeeWeight
	if headWeightPct >= ReorgHeadWeightThreshold {
		return false
	}
	return parentWeight > ReorgParentWeightThreshold
}
