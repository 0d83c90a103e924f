package state

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// RingBuffer implements the copy-on-write rolling array used for
// block-roots/state-roots/randao-mixes, per spec.md §9 "Persistent SSZ
// trees vs. owned vectors": clone() is O(1) (it shares the backing slice
// pointer); the first write after a clone copies the backing array so the
// original owner's view is unaffected.
type RingBuffer struct {
	data  []primitives.Root
	owned bool // true once this instance has its own backing array
}

// NewRingBuffer constructs a fresh, fully-owned ring buffer of the given
// size, for callers building a BeaconState from genesis or test fixtures.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{data: make([]primitives.Root, size), owned: true}
}

func (r *RingBuffer) clone() *RingBuffer {
	return &RingBuffer{data: r.data, owned: false}
}

func (r *RingBuffer) Len() int { return len(r.data) }

func (r *RingBuffer) At(slot primitives.Slot) primitives.Root {
	return r.data[uint64(slot)%uint64(len(r.data))]
}

// Entries returns the ring's current contents in index order, for callers
// that need to summarize or hash the whole buffer rather than one slot.
func (r *RingBuffer) Entries() []primitives.Root {
	return r.data
}

// Set writes root at the ring index for slot, copying the backing array
// first if this instance doesn't yet own it (i.e. it was produced by a
// recent clone()).
func (r *RingBuffer) Set(slot primitives.Slot, root primitives.Root) {
	if !r.owned {
		cp := make([]primitives.Root, len(r.data))
		copy(cp, r.data)
		r.data = cp
		r.owned = true
	}
	r.data[uint64(slot)%uint64(len(r.data))] = root
}
