// Package executionpayloadbid implements the gloas-fork execution payload
// bid pool of spec.md §4.5 (C5). As with payloadattestation, the teacher
// predates gloas; this package's shape is grounded on the sibling
// operations pools' slot-then-root keying and InsertOutcome conventions.
package executionpayloadbid

import (
	"sync"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/operations"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

type key struct {
	slot       primitives.Slot
	parentRoot primitives.Root
	parentHash primitives.Root
}

// Bid is one builder's execution payload bid for a slot.
type Bid struct {
	Slot       primitives.Slot
	ParentRoot primitives.Root
	ParentHash primitives.Root
	Value      uint64
	Signature  [96]byte
}

// Pool keeps the highest-value bid per (slot, parentRoot, parentHash).
type Pool struct {
	mu    sync.Mutex
	byKey map[key]*Bid
}

func NewPool() *Pool {
	return &Pool{byKey: make(map[key]*Bid)}
}

// Insert admits b, replacing the stored bid only if b.Value is strictly
// greater; a value tie resolves to AlreadyKnown per spec.md §4.5.
func (p *Pool) Insert(b *Bid) operations.InsertOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{slot: b.Slot, parentRoot: b.ParentRoot, parentHash: b.ParentHash}
	existing, ok := p.byKey[k]
	if !ok {
		p.byKey[k] = b
		return operations.NewData
	}
	if b.Value > existing.Value {
		p.byKey[k] = b
		return operations.Aggregated
	}
	if b.Value == existing.Value {
		return operations.AlreadyKnown
	}
	return operations.NotBetterThan
}

// BestBid returns the highest-value bid stored for the key, if any.
func (p *Pool) BestBid(slot primitives.Slot, parentRoot, parentHash primitives.Root) (*Bid, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.byKey[key{slot: slot, parentRoot: parentRoot, parentHash: parentHash}]
	return b, ok
}

// PruneBefore discards every bid whose slot predates minSlot.
func (p *Pool) PruneBefore(minSlot primitives.Slot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.byKey {
		if k.slot < minSlot {
			delete(p.byKey, k)
		}
	}
}
