// Package protoarray implements the fork-choice LMD-GHOST + FFG head
// selection of spec.md §4.2 (C2) over an append-only, index-based arena, per
// the "Fork-choice cycles" design note in spec.md §9: no back-references by
// value, parent/child links are array indices, and pruning rewrites indices
// in one compaction pass.
package protoarray

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// NoNode is the sentinel index meaning "no such node" (nullable
// parent/best-child/best-descendant link), equivalent to Option<u32>::None.
const NoNode = ^uint64(0)

// ProtoBlock is the "Proto-block (fork-choice node)" entity of spec.md §3.
type ProtoBlock struct {
	Slot       primitives.Slot
	Root       primitives.Root
	ParentRoot primitives.Root

	JustifiedEpoch primitives.Epoch
	FinalizedEpoch primitives.Epoch

	UnrealizedJustifiedEpoch primitives.Epoch
	UnrealizedJustifiedRoot  primitives.Root
	UnrealizedFinalizedEpoch primitives.Epoch
	UnrealizedFinalizedRoot  primitives.Root

	ExecutionStatus        primitives.ExecutionStatus
	ExecutionPayloadHash    [32]byte
	ExecutionPayloadNumber  uint64

	DataAvailabilityStatus primitives.DataAvailabilityStatus

	Timeliness bool

	Weight uint64

	parentIndex         uint64
	bestChildIndex       uint64
	bestDescendantIndex  uint64
}
