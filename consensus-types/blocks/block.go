// Package blocks defines the fork-tagged beacon block sum type and the
// sidecar types that travel alongside it, per spec.md §3 and the "Duck
// typing and polymorphism over fork variants" design note: each fork
// contributes its own SSZ shape, modeled here as one struct with a Version
// tag rather than N parallel concrete types, since the core only branches
// on field presence (commitments, payload, etc.), not wire encoding.
package blocks

import (
	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

// BeaconBlockHeader is the slim header every fork carries.
type BeaconBlockHeader struct {
	Slot          primitives.Slot
	ProposerIndex primitives.ValidatorIndex
	ParentRoot    primitives.Root
	StateRoot     primitives.Root
	BodyRoot      primitives.Root
}

// ExecutionPayloadHeader carries the subset of execution-payload fields the
// core reasons about (full opaque payload bytes live in the external
// execution-engine collaborator).
type ExecutionPayloadHeader struct {
	ParentHash    [32]byte
	BlockHash     [32]byte
	BlockNumber   uint64
	Timestamp     uint64
	WithdrawalsRoot primitives.Root
}

// SignedBeaconBlock is the fork-tagged sum type. Only the fields relevant to
// state transition / fork choice / DA are modeled; everything else (sync
// aggregate bits, operations lists) lives in BeaconBlockBody.
type SignedBeaconBlock struct {
	Version    params.ForkSeq
	Header     BeaconBlockHeader
	Body       *BeaconBlockBody
	Signature  [96]byte
	cachedRoot primitives.Root
}

func (b *SignedBeaconBlock) Slot() primitives.Slot { return b.Header.Slot }

func (b *SignedBeaconBlock) Root() primitives.Root {
	// HashTreeRoot is computed outside this module; the core only needs a
	// stable cache key once computed, so this wraps a cached field set by
	// the caller that already performed HTR.
	return b.cachedRoot
}

func (b *SignedBeaconBlock) SetRoot(r primitives.Root) { b.cachedRoot = r }

type BeaconBlockBody struct {
	RandaoReveal          [96]byte
	Graffiti              [32]byte
	ProposerSlashings     []*ProposerSlashing
	AttesterSlashings     []*AttesterSlashing
	Attestations          []*Attestation
	Deposits              []*Deposit
	VoluntaryExits        []*SignedVoluntaryExit
	SyncAggregate         *SyncAggregate // altair+
	ExecutionPayload      *ExecutionPayloadHeader // bellatrix+
	BLSToExecutionChanges []*SignedBLSToExecutionChange // capella+
	BlobKZGCommitments    [][48]byte // deneb+
	Consolidations        []*SignedConsolidation // electra+
}

type ProposerSlashing struct {
	Header1, Header2 *BeaconBlockHeader
}

type AttestationData struct {
	Slot            primitives.Slot
	CommitteeIndex  primitives.CommitteeIndex
	BeaconBlockRoot primitives.Root
	Source          primitives.Checkpoint
	Target          primitives.Checkpoint
}

type Attestation struct {
	AggregationBits []byte
	Data            *AttestationData
	Signature       [96]byte
}

type AttesterSlashing struct {
	Attestation1, Attestation2 *IndexedAttestation
}

type IndexedAttestation struct {
	AttestingIndices []primitives.ValidatorIndex
	Data             *AttestationData
	Signature        [96]byte
}

type Deposit struct {
	Proof [][32]byte
	Data  *DepositData
}

type DepositData struct {
	PubKey                [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
}

type SignedVoluntaryExit struct {
	Epoch          primitives.Epoch
	ValidatorIndex primitives.ValidatorIndex
	Signature      [96]byte
}

type SyncAggregate struct {
	SyncCommitteeBits      []byte
	SyncCommitteeSignature [96]byte
}

type SignedBLSToExecutionChange struct {
	ValidatorIndex     primitives.ValidatorIndex
	FromBLSPubKey      [48]byte
	ToExecutionAddress [20]byte
	Signature          [96]byte
}

type SignedConsolidation struct {
	SourceIndex primitives.ValidatorIndex
	TargetIndex primitives.ValidatorIndex
	Epoch       primitives.Epoch
	Signature   [96]byte
}
