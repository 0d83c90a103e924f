package protoarray

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// ProposerBoostAmount returns the weight bonus the current slot's proposed
// block receives, computed as (committeeWeight * PROPOSER_SCORE_BOOST) / 100
// per spec.md §4.2's proposer-boost rule.
func ProposerBoostAmount(committeeWeight uint64, boostPercentage uint64) uint64 {
	return (committeeWeight * boostPercentage) / 100
}

// UpdateHead recomputes deltas from pending votes, applies them (with
// proposer boost for the current slot's root) and returns the new head,
// per spec.md §4.2 "updateHead".
func (s *Store) UpdateHead(newBalances []uint64, proposerBoostRoot primitives.Root, proposerBoostAmount uint64) (primitives.Root, error) {
	s.mu.Lock()
	curr, next, oldBal, newBal := s.computeVoteSlices(newBalances)
	deltas := ComputeDeltas(len(s.arena.Nodes), curr, next, oldBal, newBal, s.equivocatingIndices)
	s.arena.ApplyScoreChanges(deltas, proposerBoostRoot, proposerBoostAmount)
	finalizedRoot := s.finalizedCheckpoint.Root
	s.mu.Unlock()

	return s.arena.Head(finalizedRoot)
}

// ApplyUnrealizedJustificationAndFinalization lets the caller (blockchain
// import pipeline) push the unrealized-justified/finalized checkpoints
// computed from a block's state, per spec.md §4.2's unrealized-checkpoint
// tracking used to decide early finalization without a full epoch boundary.
func (s *Store) ApplyUnrealizedJustificationAndFinalization(root primitives.Root, justified, finalized Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.arena.IndexOf(root)
	if !ok {
		return newErr(KindUnknownParent, "unknown block for unrealized checkpoint update")
	}
	n := s.arena.Nodes[idx]
	n.UnrealizedJustifiedEpoch = justified.Epoch
	n.UnrealizedJustifiedRoot = justified.Root
	n.UnrealizedFinalizedEpoch = finalized.Epoch
	n.UnrealizedFinalizedRoot = finalized.Root
	s.unrealizedJustifiedCheckpoint = justified
	s.unrealizedFinalizedCheckpoint = finalized
	return nil
}

func (s *Store) Arena() *ProtoArray {
	return s.arena
}
