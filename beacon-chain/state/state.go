// Package state implements the "BeaconState" and "Cached state" entities of
// spec.md §3. BeaconState holds the raw per-fork fields; CachedState wraps
// it with the derived caches the spec mandates (shuffling, pubkey index,
// balance increments, proposer indices, total stake counters).
package state

import (
	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// Validator is the per-validator registry entry.
type Validator struct {
	PubKey                     [48]byte
	WithdrawalCredentials      [32]byte
	EffectiveBalance           uint64
	Slashed                    bool
	ActivationEligibilityEpoch primitives.Epoch
	ActivationEpoch            primitives.Epoch
	ExitEpoch                  primitives.Epoch
	WithdrawableEpoch          primitives.Epoch
}

func (v *Validator) IsActive(epoch primitives.Epoch) bool {
	return v.ActivationEpoch <= epoch && epoch < v.ExitEpoch
}

// PendingDeposit, PendingPartialWithdrawal, PendingConsolidation back the
// electra+ queues named in spec.md §3.
type PendingDeposit struct {
	PubKey                [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
	Slot                  primitives.Slot
}

type PendingPartialWithdrawal struct {
	ValidatorIndex    primitives.ValidatorIndex
	Amount            uint64
	WithdrawableEpoch primitives.Epoch
}

type PendingConsolidation struct {
	SourceIndex primitives.ValidatorIndex
	TargetIndex primitives.ValidatorIndex
}

// BeaconState holds the raw fields of spec.md §3, arranged the way the
// consensus spec arranges them: ring buffers indexed by slot mod
// HISTORY_LEN, flat validator/balance lists, and fork-gated tail fields.
type BeaconState struct {
	Version params.ForkSeq

	Slot              primitives.Slot
	GenesisTime       uint64
	GenesisValidatorsRoot primitives.Root

	BlockRoots *RingBuffer
	StateRoots *RingBuffer
	RandaoMixes *RingBuffer

	Validators []*Validator
	Balances   []uint64

	JustificationBits                     byte
	PreviousJustifiedCheckpoint            primitives.Checkpoint
	CurrentJustifiedCheckpoint             primitives.Checkpoint
	FinalizedCheckpoint                    primitives.Checkpoint

	PreviousEpochParticipation []byte // altair+
	CurrentEpochParticipation  []byte // altair+
	InactivityScores           []uint64 // altair+

	// Slashings is a ring of length EPOCHS_PER_SLASHINGS_VECTOR, indexed by
	// epoch % len(Slashings), accumulating slashed effective balance so
	// processSlashingsReset can zero out the slot a new epoch reuses.
	Slashings []uint64

	CurrentSyncCommittee []primitives.ValidatorIndex // altair+
	NextSyncCommittee    []primitives.ValidatorIndex // altair+

	LatestExecutionPayloadHeader *ExecutionPayloadHeaderFields // bellatrix+

	NextWithdrawalIndex          uint64           // capella+
	NextWithdrawalValidatorIndex primitives.ValidatorIndex // capella+

	BlobKZGCommitmentsHistory [][48]byte // deneb+ rolling history

	PendingDeposits            []*PendingDeposit            // electra+
	PendingPartialWithdrawals  []*PendingPartialWithdrawal  // electra+
	PendingConsolidations      []*PendingConsolidation      // electra+
	ExitBalanceToConsume       uint64
	EarliestExitEpoch          primitives.Epoch
	ConsolidationBalanceToConsume uint64
	EarliestConsolidationEpoch   primitives.Epoch

	// NextWithdrawalBuilderIndex / builder-payment queue, gloas+.
	NextWithdrawalBuilderIndex primitives.ValidatorIndex
	PendingBuilderPayments     []*PendingBuilderPayment

	// HistoricalSummaries replaces the pre-capella HistoricalRoots vector,
	// one entry appended per SlotsPerHistoricalRoot boundary (capella+).
	HistoricalSummaries []HistoricalSummary
}

// HistoricalSummary is the capella+ replacement for the historical_roots
// entry: separate summary roots for the block-roots and state-roots rings
// over the period that just closed.
type HistoricalSummary struct {
	BlockSummaryRoot primitives.Root
	StateSummaryRoot primitives.Root
}

type ExecutionPayloadHeaderFields struct {
	ParentHash      [32]byte
	BlockHash       [32]byte
	BlockNumber     uint64
	Timestamp       uint64
	WithdrawalsRoot primitives.Root
}

type PendingBuilderPayment struct {
	BuilderIndex primitives.ValidatorIndex
	Amount       uint64
	WithdrawableEpoch primitives.Epoch
}

// Clone returns a new BeaconState whose ring buffers share backing storage
// with the receiver until one of them is mutated (the ring-buffer's
// copy-on-write semantics — see ring_buffer.go). The other slices are copied
// into fresh backing arrays, so Clone is linear in their length.
func (s *BeaconState) Clone() *BeaconState {
	c := *s
	c.BlockRoots = s.BlockRoots.clone()
	c.StateRoots = s.StateRoots.clone()
	c.RandaoMixes = s.RandaoMixes.clone()
	// Validators/Balances/participation are copied into fresh backing
	// arrays, so index writes on one clone do not reach the other. The
	// *Validator pointers themselves are still shared between clones.
	c.Validators = append([]*Validator(nil), s.Validators...)
	c.Balances = append([]uint64(nil), s.Balances...)
	c.PreviousEpochParticipation = append([]byte(nil), s.PreviousEpochParticipation...)
	c.CurrentEpochParticipation = append([]byte(nil), s.CurrentEpochParticipation...)
	c.InactivityScores = append([]uint64(nil), s.InactivityScores...)
	c.Slashings = append([]uint64(nil), s.Slashings...)
	c.CurrentSyncCommittee = append([]primitives.ValidatorIndex(nil), s.CurrentSyncCommittee...)
	c.NextSyncCommittee = append([]primitives.ValidatorIndex(nil), s.NextSyncCommittee...)
	c.HistoricalSummaries = append([]HistoricalSummary(nil), s.HistoricalSummaries...)
	return &c
}
