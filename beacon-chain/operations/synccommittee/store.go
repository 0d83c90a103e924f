// Package synccommittee implements the sync committee contribution pool of
// spec.md §4.5 (C5), grounded on the teacher's
// operations/synccommittee/{contribution,message,prune}_test.go suite:
// a slot-indexed contribution store plus getAggregate, which merges the
// four subnet bitfields at their SYNC_COMMITTEE_SUBNET_BYTES offsets into
// one SyncAggregate.
package synccommittee

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

var errNilContribution = errors.New("nil sync committee contribution")
var errNilMessage = errors.New("nil sync committee message")

// SyncCommitteeSubnetBytes is the byte width of one subnet's slice of the
// 512-bit sync committee aggregate bitfield (512 bits / 4 subnets / 8).
const SyncCommitteeSubnetBytes = 16

// SyncCommitteeSubnetBits is the bit width of one subnet's slice, the unit
// GetAggregate actually places bits in: subcommitteeIndex*SyncCommitteeSubnetBits.
const SyncCommitteeSubnetBits = SyncCommitteeSubnetBytes * 8

// syncCommitteeAggregateBits is the total bit width of the 512-bit
// aggregate bitvector, the upper bound for placed bit offsets.
const syncCommitteeAggregateBits = SyncCommitteeSubnetBits * 4

// Contribution is a single subcommittee's partial aggregate for a slot,
// mirroring the teacher's ethpb.SyncCommitteeContribution shape.
type Contribution struct {
	Slot              primitives.Slot
	BlockRoot         primitives.Root
	SubcommitteeIndex uint64
	AggregationBits   bitfield.Bitlist
	Signature         [96]byte
}

// Message is a single validator's unaggregated sync committee vote.
type Message struct {
	Slot           primitives.Slot
	BlockRoot      primitives.Root
	ValidatorIndex primitives.ValidatorIndex
	Signature      [96]byte
}

// Aggregate is the merged SyncAggregate a block proposer includes,
// concatenating every subcommittee's bits at its subnet offset.
type Aggregate struct {
	SyncCommitteeBits      bitfield.Bitvector512
	SyncCommitteeSignature [96]byte
}

// Store holds both the per-slot contribution cache and the per-slot
// unaggregated message cache.
type Store struct {
	mu            sync.RWMutex
	contributions map[primitives.Slot][]*Contribution
	messages      map[primitives.Slot][]*Message
}

func NewStore() *Store {
	return &Store{
		contributions: make(map[primitives.Slot][]*Contribution),
		messages:      make(map[primitives.Slot][]*Message),
	}
}

func (s *Store) SaveSyncCommitteeContribution(c *Contribution) error {
	if c == nil {
		return errNilContribution
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.contributions[c.Slot] {
		if existing.SubcommitteeIndex == c.SubcommitteeIndex && existing.BlockRoot == c.BlockRoot {
			s.contributions[c.Slot][i] = c
			return nil
		}
	}
	s.contributions[c.Slot] = append(s.contributions[c.Slot], c)
	return nil
}

func (s *Store) SyncCommitteeContributions(slot primitives.Slot) ([]*Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Contribution{}, s.contributions[slot]...), nil
}

func (s *Store) SaveSyncCommitteeMessage(m *Message) error {
	if m == nil {
		return errNilMessage
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[m.Slot] = append(s.messages[m.Slot], m)
	return nil
}

func (s *Store) SyncCommitteeMessages(slot primitives.Slot) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Message{}, s.messages[slot]...), nil
}

// PruneBefore discards slot buckets older than minSlot, matching the
// teacher's PruneExpiredSyncCommittee{Signatures,Contributions} behavior.
func (s *Store) PruneBefore(minSlot primitives.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot := range s.contributions {
		if slot < minSlot {
			delete(s.contributions, slot)
		}
	}
	for slot := range s.messages {
		if slot < minSlot {
			delete(s.messages, slot)
		}
	}
}

// GetAggregate merges every contribution for (slot, blockRoot) into a
// single SyncAggregate: each subcommittee's bits are placed at bit offset
// subcommitteeIndex*SyncCommitteeSubnetBits within the 512-bit bitvector,
// and signatures are combined by an external BLS aggregator. With no
// contributions present it returns the zero-bitvector, infinity-signature
// aggregate per spec.md §4.5.
func (s *Store) GetAggregate(slot primitives.Slot, blockRoot primitives.Root, aggregateSigs func([][96]byte) ([96]byte, error)) (*Aggregate, error) {
	s.mu.RLock()
	conts := append([]*Contribution{}, s.contributions[slot]...)
	s.mu.RUnlock()

	agg := &Aggregate{SyncCommitteeBits: bitfield.NewBitvector512()}
	var sigs [][96]byte
	for _, c := range conts {
		if c.BlockRoot != blockRoot {
			continue
		}
		bitOffset := int(c.SubcommitteeIndex) * SyncCommitteeSubnetBits
		for i := 0; i < len(c.AggregationBits)*8 && i < SyncCommitteeSubnetBits && bitOffset+i < syncCommitteeAggregateBits; i++ {
			if c.AggregationBits[i/8]&(1<<uint(i%8)) != 0 {
				agg.SyncCommitteeBits.SetBitAt(uint64(bitOffset+i), true)
			}
		}
		sigs = append(sigs, c.Signature)
	}

	if len(sigs) == 0 {
		agg.SyncCommitteeSignature = infinitySignature()
		return agg, nil
	}
	combined, err := aggregateSigs(sigs)
	if err != nil {
		return nil, err
	}
	agg.SyncCommitteeSignature = combined
	return agg, nil
}

// infinitySignature is the canonical G2 point-at-infinity BLS signature
// serialization used when no sync committee participants are available.
func infinitySignature() [96]byte {
	var sig [96]byte
	sig[0] = 0xc0
	return sig
}
