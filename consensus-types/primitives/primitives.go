// Package primitives defines the typed-integer boundary layer shared by
// every other package: Slot, Epoch, ValidatorIndex, CommitteeIndex, and the
// Checkpoint pair. Keeping these as distinct types (rather than raw uint64)
// makes it a compile error to pass a slot where an epoch is expected.
package primitives

import "fmt"

type Slot uint64

type Epoch uint64

type ValidatorIndex uint64

type CommitteeIndex uint64

// Root is a 32-byte SSZ merkle root or block root.
type Root [32]byte

func (r Root) String() string {
	return fmt.Sprintf("0x%x", r[:])
}

// Checkpoint identifies a canonical block at an epoch boundary.
type Checkpoint struct {
	Epoch Epoch
	Root  Root
}

func (c Checkpoint) IsZero() bool {
	return c.Epoch == 0 && c.Root == Root{}
}

// ExecutionStatus tracks optimistic-sync confirmation of a block's payload.
type ExecutionStatus uint8

const (
	ExecutionStatusPreMerge ExecutionStatus = iota
	ExecutionStatusValid
	ExecutionStatusSyncing
	ExecutionStatusInvalid
)

func (s ExecutionStatus) String() string {
	switch s {
	case ExecutionStatusPreMerge:
		return "preMerge"
	case ExecutionStatusValid:
		return "valid"
	case ExecutionStatusSyncing:
		return "syncing"
	case ExecutionStatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// DataAvailabilityStatus tracks whether a block's blob/column sidecars have
// been confirmed available.
type DataAvailabilityStatus uint8

const (
	DataAvailabilityPreData DataAvailabilityStatus = iota
	DataAvailabilityOutOfRange
	DataAvailabilityAvailable
)

func (s DataAvailabilityStatus) String() string {
	switch s {
	case DataAvailabilityPreData:
		return "preData"
	case DataAvailabilityOutOfRange:
		return "outOfRange"
	case DataAvailabilityAvailable:
		return "available"
	default:
		return "unknown"
	}
}

// Add/Sub helpers keep arithmetic free of implicit uint64 conversions at
// call sites; all of them saturate at zero on underflow, matching the
// teacher's shared/primitives conventions used across operations/*_test.go.

func (s Slot) Add(n uint64) Slot { return s + Slot(n) }

func (s Slot) SafeSub(n uint64) Slot {
	if uint64(s) < n {
		return 0
	}
	return s - Slot(n)
}

func (e Epoch) Add(n uint64) Epoch { return e + Epoch(n) }

func (e Epoch) SafeSub(n uint64) Epoch {
	if uint64(e) < n {
		return 0
	}
	return e - Epoch(n)
}
