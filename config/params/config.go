// Package params defines the chain configuration consumed by every other
// package in the module. It is intentionally dependency-free: it sits below
// state, transition, fork choice, and the pools.
package params

import (
	"sync"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// BPOEntry describes a scheduled "Blob Parameters Only" fork: a change to the
// blob schedule that takes effect at an epoch without a new fork version.
type BPOEntry struct {
	Epoch            primitives.Epoch
	MaxBlobsPerBlock uint64
}

// BeaconChainConfig holds every constant the core subsystems read. Values are
// the mainnet defaults; a config is swapped wholesale for other networks, it
// is never mutated field-by-field after load.
type BeaconChainConfig struct {
	// Time.
	SecondsPerSlot uint64
	SlotsPerEpoch  primitives.Slot

	// History.
	SlotsPerHistoricalRoot primitives.Slot
	EpochsPerHistoricalVector primitives.Epoch
	EpochsPerSlashingsVector  primitives.Epoch
	MinSeedLookahead          primitives.Epoch

	// Fork schedule, ordered by ForkSeq ascending.
	ForkVersionSchedule map[ForkSeq]primitives.Epoch
	BPOSchedule         []BPOEntry

	// Fork choice.
	ProposerScoreBoost             uint64 // percent
	ReorgHeadWeightThreshold       uint64 // percent
	ReorgParentWeightThreshold     uint64 // percent
	ReorgMaxEpochsSinceFinalization primitives.Epoch
	IntervalsPerSlot                uint64

	// Withdrawals.
	MaxWithdrawalsPerPayload            uint64
	MaxValidatorsPerWithdrawalsSweep    uint64
	MaxPendingPartialsPerWithdrawalsSweep uint64

	// Pools / queues.
	MaxItemsPerSlot  uint64
	SlotsRetained    primitives.Slot
	SyncCommitteeSubnetCount  uint64
	SyncCommitteeSubnetBytes uint64
	SyncCommitteeSize               uint64
	EpochsPerSyncCommitteePeriod     primitives.Epoch

	// Data availability.
	NumberOfColumns      uint64
	CellsPerExtBlob      uint64
	BytesPerCell         uint64
	BytesPerFieldElement uint64
	FieldElementsPerBlob uint64
	MaxBlobsPerBlock     uint64
	MinEpochsForDataColumnSidecarsRequest primitives.Epoch
	MinEpochsForBlobSidecarsRequest       primitives.Epoch

	// Range sync.
	MaxBatchDownloadAttempts             uint64
	MaxBatchProcessingAttempts           uint64
	MaxBatchExecutionEngineErrorAttempts uint64

	// Shuffling cache.
	MaxShufflingCacheEpochs uint64
	MaxShufflingPromises    uint64

	ZeroHash [32]byte
}

var (
	mu     sync.RWMutex
	active = mainnetConfig()
)

// BeaconConfig returns the process-wide active configuration. It defaults
// to the mainnet configuration; cmd/beacon-core only reads it, and
// OverrideBeaconConfig replaces it, per the "Global state" design note.
func BeaconConfig() *BeaconChainConfig {
	mu.RLock()
	defer mu.RUnlock()
	return active
}

// OverrideBeaconConfig swaps the active config wholesale. Intended for
// process start-up and tests only; it never patches individual fields of a
// config already in use.
func OverrideBeaconConfig(cfg *BeaconChainConfig) {
	mu.Lock()
	defer mu.Unlock()
	active = cfg
}

func mainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SecondsPerSlot:            12,
		SlotsPerEpoch:             32,
		SlotsPerHistoricalRoot:    8192,
		EpochsPerHistoricalVector: 65536,
		EpochsPerSlashingsVector:  8192,
		MinSeedLookahead:          1,

		ForkVersionSchedule: map[ForkSeq]primitives.Epoch{
			Phase0:     0,
			Altair:     74240,
			Bellatrix:  144896,
			Capella:    194048,
			Deneb:      269568,
			Electra:    364032,
			Fulu:       capPlaceholder,
			Gloas:      capPlaceholder,
		},

		ProposerScoreBoost:              40,
		ReorgHeadWeightThreshold:        20,
		ReorgParentWeightThreshold:      160,
		ReorgMaxEpochsSinceFinalization: 2,
		IntervalsPerSlot:                3,

		MaxWithdrawalsPerPayload:              16,
		MaxValidatorsPerWithdrawalsSweep:       16384,
		MaxPendingPartialsPerWithdrawalsSweep:  8,

		MaxItemsPerSlot: 4096,
		SlotsRetained:   34,
		SyncCommitteeSubnetCount: 4,
		SyncCommitteeSubnetBytes: 16,
		SyncCommitteeSize:            512,
		EpochsPerSyncCommitteePeriod: 256,

		NumberOfColumns:      128,
		CellsPerExtBlob:      128,
		BytesPerCell:         2048,
		BytesPerFieldElement: 32,
		FieldElementsPerBlob: 4096,
		MaxBlobsPerBlock:     9,
		MinEpochsForDataColumnSidecarsRequest: 4096,
		MinEpochsForBlobSidecarsRequest:       4096,

		MaxBatchDownloadAttempts:             5,
		MaxBatchProcessingAttempts:           3,
		MaxBatchExecutionEngineErrorAttempts: 3,

		MaxShufflingCacheEpochs: 4,
		MaxShufflingPromises:    64,
	}
}

// capPlaceholder marks forks that have not yet been scheduled on mainnet;
// callers must check ForkSeq against ActiveForkSeq(slot) rather than
// comparing raw epochs for these.
const capPlaceholder = ^primitives.Epoch(0)
