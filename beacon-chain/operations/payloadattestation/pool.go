// Package payloadattestation implements the gloas-fork payload attestation
// pool of spec.md §4.5 (C5). The teacher repo predates gloas and carries no
// source for this pool; its storage shape and locking discipline are
// grounded on the sibling operations/attestations/kv and
// operations/synccommittee packages, which this package mirrors.
package payloadattestation

import (
	"sort"
	"sync"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/operations"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// key identifies one payload-attestation subject: a candidate payload for a
// given slot and block, keyed additionally by the data root the votes
// attest to.
type key struct {
	slot      primitives.Slot
	blockRoot primitives.Root
	dataRoot  primitives.Root
}

// Message is a single validator's unaggregated payload attestation vote.
type Message struct {
	Slot                   primitives.Slot
	BlockRoot              primitives.Root
	DataRoot               primitives.Root
	ValidatorCommitteeIndex uint64
	Signature              [96]byte
}

// aggregateFast merges single-bit votes keyed by validatorCommitteeIndex
// into a participant bitset, per spec.md §4.5's AggregateFast.
type aggregateFast struct {
	bits          map[uint64]bool
	signatures    map[uint64][96]byte
}

func newAggregateFast() *aggregateFast {
	return &aggregateFast{bits: make(map[uint64]bool), signatures: make(map[uint64][96]byte)}
}

func (a *aggregateFast) insert(m *Message) operations.InsertOutcome {
	if a.bits[m.ValidatorCommitteeIndex] {
		return operations.AlreadyKnown
	}
	a.bits[m.ValidatorCommitteeIndex] = true
	a.signatures[m.ValidatorCommitteeIndex] = m.Signature
	return operations.NewData
}

func (a *aggregateFast) participation() int {
	return len(a.bits)
}

// Pool holds one aggregateFast per (slot, blockRoot, dataRoot).
type Pool struct {
	mu    sync.Mutex
	byKey map[key]*aggregateFast
}

func NewPool() *Pool {
	return &Pool{byKey: make(map[key]*aggregateFast)}
}

// Insert folds m into its (slot, blockRoot, dataRoot) aggregate.
func (p *Pool) Insert(m *Message) operations.InsertOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := key{slot: m.Slot, blockRoot: m.BlockRoot, dataRoot: m.DataRoot}
	agg, ok := p.byKey[k]
	if !ok {
		agg = newAggregateFast()
		p.byKey[k] = agg
	}
	return agg.insert(m)
}

// aggregateView is a read-only snapshot of one subject's aggregate,
// returned in participation order for getPayloadAttestationsForBlock.
type aggregateView struct {
	dataRoot      primitives.Root
	participation int
}

// GetPayloadAttestationsForBlock returns the data roots of up to
// maxAttestations aggregates for (root, slot), ranked by participation
// count descending, per
// spec.md §4.5.
func (p *Pool) GetPayloadAttestationsForBlock(root primitives.Root, slot primitives.Slot, maxAttestations int) []primitives.Root {
	p.mu.Lock()
	defer p.mu.Unlock()

	var views []aggregateView
	for k, agg := range p.byKey {
		if k.slot != slot || k.blockRoot != root {
			continue
		}
		views = append(views, aggregateView{dataRoot: k.dataRoot, participation: agg.participation()})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].participation > views[j].participation })
	if len(views) > maxAttestations {
		views = views[:maxAttestations]
	}
	out := make([]primitives.Root, len(views))
	for i, v := range views {
		out[i] = v.dataRoot
	}
	return out
}

// PruneBefore drops every subject whose slot predates minSlot.
func (p *Pool) PruneBefore(minSlot primitives.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.byKey {
		if k.slot < minSlot {
			delete(p.byKey, k)
		}
	}
}
