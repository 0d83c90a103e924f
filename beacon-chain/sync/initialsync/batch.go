// Package initialsync implements the range-sync scheduler of spec.md §4.4
// (C4): the per-batch state machine that backfills historical epochs from
// peers with deterministic retry/penalty behavior. No real batch
// implementation survived retrieval from the teacher (its initial-sync
// package predates proto-array/range-sync and only has a handful of service
// tests), so this is built directly from spec.md's own transition table,
// named to match the teacher's sibling-package conventions.
package initialsync

import (
	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
)

// BatchState enumerates spec.md §4.4's batch state machine:
// AwaitingDownload <-> Downloading -> AwaitingProcessing -> Processing ->
// AwaitingValidation -> Done.
type BatchState uint8

const (
	StateAwaitingDownload BatchState = iota
	StateDownloading
	StateAwaitingProcessing
	StateProcessing
	StateAwaitingValidation
	StateDone
	StateFailed
)

func (s BatchState) String() string {
	switch s {
	case StateAwaitingDownload:
		return "AwaitingDownload"
	case StateDownloading:
		return "Downloading"
	case StateAwaitingProcessing:
		return "AwaitingProcessing"
	case StateProcessing:
		return "Processing"
	case StateAwaitingValidation:
		return "AwaitingValidation"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// BatchErrorKind classifies why a batch permanently failed.
type BatchErrorKind uint8

const (
	ErrKindNone BatchErrorKind = iota
	ErrKindMaxDownloadAttempts
	ErrKindMaxProcessingAttempts
	ErrKindMaxExecutionEngineErrorAttempts
	ErrKindWrongStatus
)

type BatchError struct {
	Kind BatchErrorKind

	// Wanted and Got are populated for ErrKindWrongStatus: the state the
	// transition required and the state the batch was actually in.
	Wanted BatchState
	Got    BatchState
}

func (e *BatchError) Error() string {
	switch e.Kind {
	case ErrKindMaxDownloadAttempts:
		return "MAX_DOWNLOAD_ATTEMPTS"
	case ErrKindMaxProcessingAttempts:
		return "MAX_PROCESSING_ATTEMPTS"
	case ErrKindMaxExecutionEngineErrorAttempts:
		return "MAX_EXECUTION_ENGINE_ERROR_ATTEMPTS"
	case ErrKindWrongStatus:
		return "wrong status: wanted " + e.Wanted.String() + ", got " + e.Got.String()
	default:
		return "unknown batch error"
	}
}

// wrongStatus builds the typed error an illegal transition returns, naming
// the state the caller required and the state the batch was actually in.
func wrongStatus(wanted, got BatchState) error {
	return &BatchError{Kind: ErrKindWrongStatus, Wanted: wanted, Got: got}
}

// PeerID is a loosely-typed peer handle; the concrete libp2p peer.ID lives
// behind the caller since range-sync is scoped to the scheduler here, not
// transport (spec.md §1 Non-goals excludes the wire/gossip layer).
type PeerID string

// Batch drives one [startSlot, startSlot+count) range through the state
// machine. It is not safe for concurrent use; the Scheduler only touches
// its batches while holding its own mutex.
type Batch struct {
	StartSlot primitives_Slot
	Count     uint64

	state BatchState

	downloadAttempts   int
	processingAttempts int
	eeErrorAttempts    int

	goodPeers []PeerID
	blocks    []*blocks.SignedBeaconBlock

	contentHash [32]byte
	peersCredited []PeerID

	// validated is set true only once the *next* batch has also imported
	// at least one valid block, per spec.md §4.4's empty-batch-spoofing
	// defense.
	validated     bool
	nextImportedAny bool
}

type primitives_Slot = uint64

func NewBatch(startSlot uint64, count uint64) *Batch {
	return &Batch{StartSlot: startSlot, Count: count, state: StateAwaitingDownload}
}

func (b *Batch) State() BatchState { return b.state }

// StartDownloading: AwaitingDownload -> Downloading.
func (b *Batch) StartDownloading(peer PeerID) error {
	if b.state != StateAwaitingDownload {
		return wrongStatus(StateAwaitingDownload, b.state)
	}
	b.state = StateDownloading
	return nil
}

// DownloadingSuccess: Downloading -> AwaitingProcessing if all data is
// complete, else back to AwaitingDownload with new sub-requests (the
// sub-request split itself is left to the caller; this records the partial
// result and re-arms for another round).
func (b *Batch) DownloadingSuccess(peer PeerID, blks []*blocks.SignedBeaconBlock, complete bool) error {
	if b.state != StateDownloading {
		return wrongStatus(StateDownloading, b.state)
	}
	b.blocks = append(b.blocks, blks...)
	b.goodPeers = append(b.goodPeers, peer)
	if complete {
		b.state = StateAwaitingProcessing
	} else {
		b.state = StateAwaitingDownload
	}
	return nil
}

// DownloadingError: Downloading -> AwaitingDownload, failing permanently
// past MAX_BATCH_DOWNLOAD_ATTEMPTS.
func (b *Batch) DownloadingError() error {
	if b.state != StateDownloading {
		return wrongStatus(StateDownloading, b.state)
	}
	b.downloadAttempts++
	if b.downloadAttempts > int(params.BeaconConfig().MaxBatchDownloadAttempts) {
		b.state = StateFailed
		return &BatchError{Kind: ErrKindMaxDownloadAttempts}
	}
	b.state = StateAwaitingDownload
	return nil
}

// StartProcessing: AwaitingProcessing -> Processing; snapshots a content
// hash and credits the peers that contributed data.
func (b *Batch) StartProcessing(hash [32]byte) error {
	if b.state != StateAwaitingProcessing {
		return wrongStatus(StateAwaitingProcessing, b.state)
	}
	b.contentHash = hash
	b.peersCredited = append([]PeerID(nil), b.goodPeers...)
	b.state = StateProcessing
	return nil
}

// ProcessingSuccess: Processing -> AwaitingValidation.
func (b *Batch) ProcessingSuccess() error {
	if b.state != StateProcessing {
		return wrongStatus(StateProcessing, b.state)
	}
	b.state = StateAwaitingValidation
	return nil
}

// ProcessingError: Processing -> AwaitingDownload with blocks cleared;
// fails permanently past MAX_BATCH_PROCESSING_ATTEMPTS, or
// MAX_BATCH_EXECUTION_ENGINE_ERROR_ATTEMPTS for execution-engine errors.
func (b *Batch) ProcessingError(isExecutionEngineError bool) error {
	if b.state != StateProcessing {
		return wrongStatus(StateProcessing, b.state)
	}
	if isExecutionEngineError {
		b.eeErrorAttempts++
		if b.eeErrorAttempts > int(params.BeaconConfig().MaxBatchExecutionEngineErrorAttempts) {
			b.state = StateFailed
			return &BatchError{Kind: ErrKindMaxExecutionEngineErrorAttempts}
		}
	} else {
		b.processingAttempts++
		if b.processingAttempts > int(params.BeaconConfig().MaxBatchProcessingAttempts) {
			b.state = StateFailed
			return &BatchError{Kind: ErrKindMaxProcessingAttempts}
		}
	}
	b.blocks = nil
	b.state = StateAwaitingDownload
	return nil
}

// ValidationError: AwaitingValidation -> AwaitingDownload with blocks
// cleared, counted against the processing-attempt budget like
// ProcessingError.
func (b *Batch) ValidationError() error {
	if b.state != StateAwaitingValidation {
		return wrongStatus(StateAwaitingValidation, b.state)
	}
	b.state = StateProcessing
	return b.ProcessingError(false)
}

// ValidationSuccess: AwaitingValidation -> Done. The batch is only marked
// `validated` once nextImportedAny is also true, per spec.md §4.4's
// empty-batch-spoofing defense.
func (b *Batch) ValidationSuccess() error {
	if b.state != StateAwaitingValidation {
		return wrongStatus(StateAwaitingValidation, b.state)
	}
	b.state = StateDone
	if b.nextImportedAny {
		b.validated = true
	}
	return nil
}

// NotifyNextBatchImported lets the scheduler confirm that the
// chronologically-next batch imported at least one valid block, completing
// this batch's validation per spec.md §4.4.
func (b *Batch) NotifyNextBatchImported(importedAny bool) {
	b.nextImportedAny = importedAny
	if b.state == StateDone && importedAny {
		b.validated = true
	}
}

func (b *Batch) Validated() bool { return b.validated }

func (b *Batch) Blocks() []*blocks.SignedBeaconBlock { return b.blocks }
