// Package proposer implements the fee-recipient proposer cache of
// spec.md's scenario S1: tracks each validator's most recently announced
// fee recipient, pruning entries older than a retention window of slots.
// Grounded on the teacher's cache/proposer_indices_test.go idiom (a small
// mutex-guarded map with an epoch-triggered prune), adapted to this
// module's fee-recipient keying.
package proposer

import (
	"sync"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// RetentionSlots bounds how long a fee-recipient entry survives after its
// announcing slot before prune() evicts it.
const RetentionSlots = 2

// FeeRecipient is an Ethereum execution-layer address.
type FeeRecipient [20]byte

type entry struct {
	slot         primitives.Slot
	feeRecipient FeeRecipient
}

// Cache maps validator index to its most recently announced fee recipient.
type Cache struct {
	mu                     sync.RWMutex
	byValidator            map[primitives.ValidatorIndex]entry
	suggestedFeeRecipient  FeeRecipient
}

func New(suggestedFeeRecipient FeeRecipient) *Cache {
	return &Cache{
		byValidator:           make(map[primitives.ValidatorIndex]entry),
		suggestedFeeRecipient: suggestedFeeRecipient,
	}
}

// Add records that validatorIndex announced feeRecipient as of slot.
func (c *Cache) Add(slot primitives.Slot, validatorIndex primitives.ValidatorIndex, feeRecipient FeeRecipient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byValidator[validatorIndex] = entry{slot: slot, feeRecipient: feeRecipient}
}

// Get returns validatorIndex's cached fee recipient, and whether an entry
// exists.
func (c *Cache) Get(validatorIndex primitives.ValidatorIndex) (FeeRecipient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byValidator[validatorIndex]
	if !ok {
		return FeeRecipient{}, false
	}
	return e.feeRecipient, true
}

// GetOrDefault returns validatorIndex's cached fee recipient, or the
// suggested default if none is cached.
func (c *Cache) GetOrDefault(validatorIndex primitives.ValidatorIndex) FeeRecipient {
	if fr, ok := c.Get(validatorIndex); ok {
		return fr
	}
	return c.suggestedFeeRecipient
}

// Prune evicts every entry whose announcing slot predates
// (cutoffSlot - RetentionSlots).
func (c *Cache) Prune(cutoffSlot primitives.Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for idx, e := range c.byValidator {
		if e.slot+RetentionSlots < cutoffSlot {
			delete(c.byValidator, idx)
		}
	}
}
