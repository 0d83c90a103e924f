package state

import (
	"sync"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// EpochShuffling is the precomputed committee permutation for one epoch,
// shared with beacon-chain/cache/shuffling.
type EpochShuffling struct {
	Epoch        primitives.Epoch
	DecisionRoot primitives.Root
	ShuffledIndices []primitives.ValidatorIndex
	CommitteeCountPerSlot uint64
}

// CachedState augments a BeaconState with the derived caches spec.md §3
// mandates: previous/current/next shuffling, pubkey->index map, per-epoch
// effective-balance increments, base reward per increment, proposer indices
// for the current epoch, and incrementally updated stake counters.
type CachedState struct {
	mu sync.RWMutex

	raw *BeaconState

	previousShuffling *EpochShuffling
	currentShuffling  *EpochShuffling
	nextShuffling     *EpochShuffling

	pubkeyToIndex map[[48]byte]primitives.ValidatorIndex

	effectiveBalanceIncrements []uint16
	baseRewardPerIncrement     uint64

	proposerIndices [32]primitives.ValidatorIndex // one per slot in the current epoch

	totalActiveStakeIncrements uint64
	totalTargetStakeIncrements uint64
	totalHeadStakeIncrements   uint64
}

// LoadCachedState produces a CachedState from a raw state, per spec.md §3
// "Cached state" lifecycle: "produced by loadCachedState(state) from a raw
// state". Caches are left nil/zero here; they are populated lazily by the
// transition package the first time each is needed; a fork-boundary crossing
// invalidates them by calling InvalidateCaches.
func LoadCachedState(raw *BeaconState) *CachedState {
	cs := &CachedState{raw: raw}
	cs.rebuildPubkeyIndexLocked()
	return cs
}

func (cs *CachedState) State() *BeaconState {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.raw
}

// Clone produces an independent CachedState sharing the underlying state's
// structurally-shared trees (via BeaconState.Clone) and a point-in-time copy
// of the derived caches, so concurrent advancement of the clone cannot
// corrupt the original's view.
func (cs *CachedState) Clone() *CachedState {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	clone := &CachedState{
		raw:                        cs.raw.Clone(),
		previousShuffling:          cs.previousShuffling,
		currentShuffling:           cs.currentShuffling,
		nextShuffling:              cs.nextShuffling,
		pubkeyToIndex:              cs.pubkeyToIndex, // immutable map, safe to share
		effectiveBalanceIncrements: append([]uint16(nil), cs.effectiveBalanceIncrements...),
		baseRewardPerIncrement:     cs.baseRewardPerIncrement,
		proposerIndices:            cs.proposerIndices,
		totalActiveStakeIncrements: cs.totalActiveStakeIncrements,
		totalTargetStakeIncrements: cs.totalTargetStakeIncrements,
		totalHeadStakeIncrements:   cs.totalHeadStakeIncrements,
	}
	return clone
}

func (cs *CachedState) rebuildPubkeyIndexLocked() {
	cs.pubkeyToIndex = make(map[[48]byte]primitives.ValidatorIndex, len(cs.raw.Validators))
	for i, v := range cs.raw.Validators {
		cs.pubkeyToIndex[v.PubKey] = primitives.ValidatorIndex(i)
	}
}

func (cs *CachedState) ValidatorIndexByPubkey(pk [48]byte) (primitives.ValidatorIndex, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	idx, ok := cs.pubkeyToIndex[pk]
	return idx, ok
}

// InvalidateCaches clears the derived shuffling/proposer/stake caches so
// they are rebuilt lazily on next use, per the "invalidated [on] fork-boundary
// crossings" lifecycle note.
func (cs *CachedState) InvalidateCaches() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.previousShuffling = nil
	cs.currentShuffling = nil
	cs.nextShuffling = nil
	cs.proposerIndices = [32]primitives.ValidatorIndex{}
}

func (cs *CachedState) SetShufflings(prev, cur, next *EpochShuffling) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.previousShuffling, cs.currentShuffling, cs.nextShuffling = prev, cur, next
}

func (cs *CachedState) CurrentShuffling() *EpochShuffling {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.currentShuffling
}

func (cs *CachedState) PreviousShuffling() *EpochShuffling {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.previousShuffling
}

func (cs *CachedState) NextShuffling() *EpochShuffling {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.nextShuffling
}

func (cs *CachedState) SetEffectiveBalanceIncrements(incs []uint16, baseRewardPerIncrement uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.effectiveBalanceIncrements = incs
	cs.baseRewardPerIncrement = baseRewardPerIncrement
}

func (cs *CachedState) EffectiveBalanceIncrement(idx primitives.ValidatorIndex) uint16 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	if int(idx) >= len(cs.effectiveBalanceIncrements) {
		return 0
	}
	return cs.effectiveBalanceIncrements[idx]
}

func (cs *CachedState) BaseRewardPerIncrement() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.baseRewardPerIncrement
}

// AddTargetStakeIncrements adds to the progressive target-stake counter, per
// spec.md §4.1 "Progressive target balance". transition.processAttestation
// calls it once per attestation, with zero increments.
func (cs *CachedState) AddTargetStakeIncrements(isCurrentEpoch bool, increments uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.totalTargetStakeIncrements += increments
	_ = isCurrentEpoch // ignored: previous- and current-epoch increments both
	// go into the one counter in this simplified cache; the transition
	// package keeps the previous/current split in transition.EpochVars.
}

func (cs *CachedState) TotalActiveStakeIncrements() uint64 {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.totalActiveStakeIncrements
}

func (cs *CachedState) SetTotalActiveStakeIncrements(v uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.totalActiveStakeIncrements = v
}
