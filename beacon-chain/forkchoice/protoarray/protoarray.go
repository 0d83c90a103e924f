package protoarray

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// ProtoArray is the append-only arena described in spec.md §3
// "Proto-block (fork-choice node)" and §9 "Fork-choice cycles": a vector of
// nodes plus a blockRoot -> index map. Deletion happens only via Prune,
// which compacts the array in one pass and re-keys every index.
type ProtoArray struct {
	Nodes      []*ProtoBlock
	rootToIndex map[primitives.Root]uint64

	JustifiedEpoch primitives.Epoch
	FinalizedEpoch primitives.Epoch
}

func New(justifiedEpoch, finalizedEpoch primitives.Epoch) *ProtoArray {
	return &ProtoArray{
		rootToIndex:    make(map[primitives.Root]uint64),
		JustifiedEpoch: justifiedEpoch,
		FinalizedEpoch: finalizedEpoch,
	}
}

func (p *ProtoArray) IndexOf(root primitives.Root) (uint64, bool) {
	idx, ok := p.rootToIndex[root]
	return idx, ok
}

func (p *ProtoArray) NodeAt(idx uint64) *ProtoBlock {
	if idx >= uint64(len(p.Nodes)) {
		return nil
	}
	return p.Nodes[idx]
}

// Insert appends a new node and updates its parent's best-child/best-
// descendant links, per spec.md §4.2 "onBlock". The anchor (first node
// inserted into an empty arena) is the only node whose parentIndex is
// NoNode, satisfying the invariant in spec.md §3.
func (p *ProtoArray) Insert(n *ProtoBlock) error {
	if _, exists := p.rootToIndex[n.Root]; exists {
		return nil // idempotent re-insert, matches persistence idempotency
	}
	parentIndex := NoNode
	if len(p.Nodes) > 0 {
		idx, ok := p.rootToIndex[n.ParentRoot]
		if !ok {
			return newErr(KindUnknownParent, "parent block not found in arena")
		}
		parentIndex = idx
	}
	n.parentIndex = parentIndex
	n.bestChildIndex = NoNode
	n.bestDescendantIndex = NoNode

	index := uint64(len(p.Nodes))
	p.Nodes = append(p.Nodes, n)
	p.rootToIndex[n.Root] = index

	if parentIndex != NoNode {
		p.maybeUpdateBestChildAndDescendant(parentIndex, index)
	}
	return nil
}

// ApplyScoreChanges adds deltas (indexed the same as p.Nodes) to each node's
// weight and propagates the change up to the root, then recomputes
// best-child/best-descendant for every node bottom-up, per spec.md §4.2
// "updateHead".
func (p *ProtoArray) ApplyScoreChanges(deltas []int64, proposerBoostRoot primitives.Root, proposerBoostAmount uint64) {
	acc := make([]int64, len(p.Nodes))
	copy(acc, deltas)
	for i := len(p.Nodes) - 1; i >= 0; i-- {
		n := p.Nodes[i]
		d := acc[i]
		if proposerBoostAmount > 0 && n.Root == proposerBoostRoot {
			d += int64(proposerBoostAmount)
		}
		if d < 0 {
			loss := uint64(-d)
			if n.Weight < loss {
				n.Weight = 0
			} else {
				n.Weight -= loss
			}
		} else {
			n.Weight += uint64(d)
		}
		if n.parentIndex != NoNode {
			acc[n.parentIndex] += d
			p.maybeUpdateBestChildAndDescendant(n.parentIndex, uint64(i))
		}
	}
}

// maybeUpdateBestChildAndDescendant re-derives parentIndex's best-child by
// comparing child against the parent's current best child on weight (ties
// broken by root, for determinism), then propagates bestDescendant upward.
func (p *ProtoArray) maybeUpdateBestChildAndDescendant(parentIndex, childIndex uint64) {
	parent := p.Nodes[parentIndex]
	child := p.Nodes[childIndex]

	if parent.bestChildIndex == NoNode {
		parent.bestChildIndex = childIndex
		parent.bestDescendantIndex = p.bestDescendantOf(childIndex)
		return
	}
	if parent.bestChildIndex == childIndex {
		parent.bestDescendantIndex = p.bestDescendantOf(childIndex)
		return
	}
	current := p.Nodes[parent.bestChildIndex]
	if p.isViableForHead(child) && (!p.isViableForHead(current) || child.Weight > current.Weight ||
		(child.Weight == current.Weight && greaterRoot(child.Root, current.Root))) {
		parent.bestChildIndex = childIndex
		parent.bestDescendantIndex = p.bestDescendantOf(childIndex)
	}
}

func greaterRoot(a, b primitives.Root) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

func (p *ProtoArray) bestDescendantOf(index uint64) uint64 {
	n := p.Nodes[index]
	if n.bestChildIndex == NoNode {
		return index
	}
	return p.bestDescendantOf(n.bestChildIndex)
}

// isViableForHead excludes nodes whose execution status is invalid (pruned
// from viable-for-head descendants, per spec.md §3 invariant) and nodes not
// yet justified/finalized-compatible with the array's current checkpoints.
func (p *ProtoArray) isViableForHead(n *ProtoBlock) bool {
	if n.ExecutionStatus == primitives.ExecutionStatusInvalid {
		return false
	}
	justifiedOK := n.JustifiedEpoch == p.JustifiedEpoch || p.JustifiedEpoch == 0
	finalizedOK := n.FinalizedEpoch == p.FinalizedEpoch || p.FinalizedEpoch == 0
	return justifiedOK && finalizedOK
}

// Head walks best-descendant links from the anchor/finalized root, per
// spec.md §4.2 "updateHead": "...walks best-descendant links from the
// finalized root to produce the head."
func (p *ProtoArray) Head(finalizedRoot primitives.Root) (primitives.Root, error) {
	startIndex, ok := p.rootToIndex[finalizedRoot]
	if !ok {
		return primitives.Root{}, newErr(KindUnknownParent, "finalized root not found in arena")
	}
	best := p.bestDescendantOf(startIndex)
	return p.Nodes[best].Root, nil
}

// Prune drops every node with slot < the new finalized block's slot or that
// is not a descendant of it, per spec.md §4.2 "finalization pruning", and
// re-keys all surviving indices in one compaction pass.
func (p *ProtoArray) Prune(newFinalizedRoot primitives.Root) error {
	finalizedIndex, ok := p.rootToIndex[newFinalizedRoot]
	if !ok {
		return newErr(KindFinalizedDescendantMismatch, "new finalized root not found")
	}
	keep := make(map[uint64]bool)
	keep[finalizedIndex] = true
	for i := finalizedIndex + 1; i < uint64(len(p.Nodes)); i++ {
		n := p.Nodes[i]
		if n.parentIndex != NoNode && keep[n.parentIndex] {
			keep[i] = true
		}
	}

	oldToNew := make(map[uint64]uint64, len(keep))
	var newNodes []*ProtoBlock
	newRootToIndex := make(map[primitives.Root]uint64, len(keep))
	for i := finalizedIndex; i < uint64(len(p.Nodes)); i++ {
		if !keep[i] {
			continue
		}
		oldToNew[i] = uint64(len(newNodes))
		newNodes = append(newNodes, p.Nodes[i])
	}
	for i, n := range newNodes {
		if n.parentIndex != NoNode {
			if newIdx, ok := oldToNew[n.parentIndex]; ok {
				n.parentIndex = newIdx
			} else {
				n.parentIndex = NoNode
			}
		}
		if n.bestChildIndex != NoNode {
			if newIdx, ok := oldToNew[n.bestChildIndex]; ok {
				n.bestChildIndex = newIdx
			} else {
				n.bestChildIndex = NoNode
			}
		}
		if n.bestDescendantIndex != NoNode {
			if newIdx, ok := oldToNew[n.bestDescendantIndex]; ok {
				n.bestDescendantIndex = newIdx
			} else {
				n.bestDescendantIndex = uint64(i)
			}
		}
		newRootToIndex[n.Root] = uint64(i)
	}

	p.Nodes = newNodes
	p.rootToIndex = newRootToIndex
	return nil
}

// GetAllAncestorBlocks returns every node from root up to the anchor,
// root-inclusive, nearest-first.
func (p *ProtoArray) GetAllAncestorBlocks(root primitives.Root) ([]*ProtoBlock, error) {
	idx, ok := p.rootToIndex[root]
	if !ok {
		return nil, newErr(KindUnknownParent, "unknown root")
	}
	var out []*ProtoBlock
	for idx != NoNode {
		n := p.Nodes[idx]
		out = append(out, n)
		idx = n.parentIndex
	}
	return out, nil
}

// GetAllNonAncestorBlocks returns every node that is not an ancestor of root
// (including root's descendants on other branches).
func (p *ProtoArray) GetAllNonAncestorBlocks(root primitives.Root) ([]*ProtoBlock, error) {
	ancestors, err := p.GetAllAncestorBlocks(root)
	if err != nil {
		return nil, err
	}
	isAncestor := make(map[primitives.Root]bool, len(ancestors))
	for _, a := range ancestors {
		isAncestor[a.Root] = true
	}
	var out []*ProtoBlock
	for _, n := range p.Nodes {
		if !isAncestor[n.Root] {
			out = append(out, n)
		}
	}
	return out, nil
}

// IterateAncestorBlocks calls fn for every ancestor of root, nearest-first,
// stopping early if fn returns false.
func (p *ProtoArray) IterateAncestorBlocks(root primitives.Root, fn func(*ProtoBlock) bool) error {
	ancestors, err := p.GetAllAncestorBlocks(root)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if !fn(a) {
			break
		}
	}
	return nil
}

// GetCanonicalBlockAtSlot walks back from head along best-descendant/parent
// links to find the canonical block occupying slot.
func (p *ProtoArray) GetCanonicalBlockAtSlot(headRoot primitives.Root, slot primitives.Slot) (*ProtoBlock, error) {
	idx, ok := p.rootToIndex[headRoot]
	if !ok {
		return nil, newErr(KindUnknownParent, "unknown head root")
	}
	for idx != NoNode {
		n := p.Nodes[idx]
		if n.Slot == slot {
			return n, nil
		}
		if n.Slot < slot {
			return nil, nil
		}
		idx = n.parentIndex
	}
	return nil, nil
}
