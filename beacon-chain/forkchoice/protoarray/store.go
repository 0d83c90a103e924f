package protoarray

import (
	"sync"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// Checkpoint mirrors consensus-types/primitives.Checkpoint; re-declared as a
// type alias point for readability inside this package.
type Checkpoint = primitives.Checkpoint

// Store is the checkpoint-aware wrapper around a ProtoArray, per spec.md
// §4.2: current slot, justified/finalized checkpoints plus their balances,
// unrealized justified/finalized tracking, and the equivocating-validator
// set used to zero out slashed voters in computeDeltas.
type Store struct {
	mu sync.RWMutex

	arena *ProtoArray

	currentSlot primitives.Slot

	justifiedCheckpoint Checkpoint
	justifiedBalances   []uint64

	finalizedCheckpoint Checkpoint

	unrealizedJustifiedCheckpoint Checkpoint
	unrealizedFinalizedCheckpoint Checkpoint

	equivocatingIndices map[uint64]bool

	votes       []vote // votes[validatorIndex] = current/next tally entry
	onJustify   []func(Checkpoint)
	onFinalize  []func(Checkpoint)
}

type vote struct {
	currentRoot primitives.Root
	nextRoot    primitives.Root
	nextEpoch   primitives.Epoch
}

func NewStore(justified, finalized Checkpoint) *Store {
	return &Store{
		arena:               New(justified.Epoch, finalized.Epoch),
		justifiedCheckpoint: justified,
		finalizedCheckpoint: finalized,
		equivocatingIndices: make(map[uint64]bool),
	}
}

func (s *Store) JustifiedCheckpoint() Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.justifiedCheckpoint
}

func (s *Store) FinalizedCheckpoint() Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalizedCheckpoint
}

// OnJustified registers a callback fired whenever the justified checkpoint
// advances, per spec.md §4.2's justification/finalization callback hooks.
func (s *Store) OnJustified(fn func(Checkpoint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJustify = append(s.onJustify, fn)
}

func (s *Store) OnFinalized(fn func(Checkpoint)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFinalize = append(s.onFinalize, fn)
}

// SetEquivocating marks a validator index as equivocating (slashed or
// double-voting); computeDeltas zeroes out its contribution from then on.
func (s *Store) SetEquivocating(validatorIndex uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equivocatingIndices[validatorIndex] = true
}

// OnBlock inserts a new proto-block into the arena under onBlock semantics
// of spec.md §4.2: unknown parents and invalid execution statuses are
// rejected before any mutation occurs.
func (s *Store) OnBlock(n *ProtoBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ExecutionStatus == primitives.ExecutionStatusInvalid {
		return newErr(KindInvalidExecutionStatus, "cannot insert a block with invalid execution status")
	}
	if err := s.arena.Insert(n); err != nil {
		return err
	}
	if n.JustifiedEpoch > s.justifiedCheckpoint.Epoch {
		s.advanceJustified(Checkpoint{Epoch: n.JustifiedEpoch, Root: n.Root})
	}
	if n.FinalizedEpoch > s.finalizedCheckpoint.Epoch {
		s.advanceFinalized(Checkpoint{Epoch: n.FinalizedEpoch, Root: n.Root})
	}
	return nil
}

func (s *Store) advanceJustified(c Checkpoint) {
	s.justifiedCheckpoint = c
	s.arena.JustifiedEpoch = c.Epoch
	for _, fn := range s.onJustify {
		fn(c)
	}
}

func (s *Store) advanceFinalized(c Checkpoint) {
	s.finalizedCheckpoint = c
	s.arena.FinalizedEpoch = c.Epoch
	for _, fn := range s.onFinalize {
		fn(c)
	}
	_ = s.arena.Prune(c.Root)
}

// OnAttestation records a validator's LMD vote for root at targetEpoch. The
// vote only takes effect on the following updateHead call, which turns the
// recorded votes into deltas via ComputeDeltas.
func (s *Store) OnAttestation(validatorIndex uint64, root primitives.Root, targetEpoch primitives.Epoch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.equivocatingIndices[validatorIndex] {
		return newErr(KindInvalidAttestation, "equivocating validator vote ignored")
	}
	for uint64(len(s.votes)) <= validatorIndex {
		s.votes = append(s.votes, vote{})
	}
	v := s.votes[validatorIndex]
	if targetEpoch > v.nextEpoch || (v.nextRoot == primitives.Root{}) {
		v.nextRoot = root
		v.nextEpoch = targetEpoch
	}
	s.votes[validatorIndex] = v
	return nil
}

// OnTick advances the store's view of the current slot. No other Store
// method reads it; ShouldOverrideFCU takes its slots as arguments.
func (s *Store) OnTick(slot primitives.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSlot = slot
}

// OnExecutionNewPayloadResult applies the result of a late execution-engine
// verdict to an already-inserted block: INVALID marks it (and is later
// pruned from viable-for-head by isViableForHead), VALID clears any
// optimistic marker.
func (s *Store) OnExecutionNewPayloadResult(root primitives.Root, status primitives.ExecutionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.arena.IndexOf(root)
	if !ok {
		return newErr(KindUnknownParent, "unknown block for execution result")
	}
	s.arena.Nodes[idx].ExecutionStatus = status
	return nil
}

// InvalidateChainBack applies an engine INVALID verdict's latestValidHash
// resolution: walking the arena from root through ParentRoot links, marking
// every node ExecutionStatusInvalid until it reaches the node whose payload
// hash matches latestValidHash (left untouched) or runs out of ancestors.
func (s *Store) InvalidateChainBack(root primitives.Root, latestValidHash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.arena.IndexOf(root)
	if !ok {
		return newErr(KindUnknownParent, "unknown block for execution result")
	}
	for {
		n := s.arena.Nodes[idx]
		if n.ExecutionPayloadHash == latestValidHash {
			break
		}
		n.ExecutionStatus = primitives.ExecutionStatusInvalid
		parentIdx, ok := s.arena.IndexOf(n.ParentRoot)
		if !ok {
			break
		}
		idx = parentIdx
	}
	return nil
}

// computeVoteSlices builds the arena-index-keyed current/next vote vectors
// and balance vectors ComputeDeltas needs, then rolls votes forward
// (current = next) the way spec.md's updateHead does after applying them.
func (s *Store) computeVoteSlices(newBalances []uint64) (curr, next []uint64, oldBal, newBal []uint64) {
	n := len(s.votes)
	curr = make([]uint64, n)
	next = make([]uint64, n)
	oldBal = make([]uint64, n)
	newBal = make([]uint64, n)
	for v := 0; v < n; v++ {
		vv := &s.votes[v]
		if idx, ok := s.arena.IndexOf(vv.currentRoot); ok {
			curr[v] = idx
		} else {
			curr[v] = NoNode
		}
		if idx, ok := s.arena.IndexOf(vv.nextRoot); ok {
			next[v] = idx
		} else {
			next[v] = NoNode
		}
		if v < len(s.justifiedBalances) {
			oldBal[v] = s.justifiedBalances[v]
		}
		if v < len(newBalances) {
			newBal[v] = newBalances[v]
		}
		vv.currentRoot = vv.nextRoot
	}
	s.justifiedBalances = newBalances
	return curr, next, oldBal, newBal
}
