// Package das implements the fork-gated data-availability engine of
// spec.md §4.6 (C6): blob-sidecar KZG batch verification for deneb/electra,
// and data-column sampling/reconstruction for fulu+, behind a single
// AvailabilityStore contract so the import pipeline does not need to know
// which fork's sidecar shape it is checking.
package das

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

var (
	ErrDataUnavailable  = errors.New("data availability check failed")
	ErrDuplicateSidecar = errors.New("duplicate sidecar for slot/index")
	errIndexOutOfBounds = errors.New("sidecar index out of bounds")
	ErrCommitmentMismatch = errors.New("sidecar commitment mismatch with block")
)

// BlobBatchVerifier is the KZG collaborator: batch-verifying a set of
// (blob, commitment, proof) triples and verifying each sidecar's SSZ
// inclusion proof into its block body, per spec.md §4.6.
type BlobBatchVerifier interface {
	VerifyBlobKZGProofBatch(blobs [][]byte, commitments [][48]byte, proofs [][48]byte) (bool, error)
	VerifyInclusionProof(sc *blocks.BlobSidecar) error
}

// AvailabilityStore is the contract the import pipeline uses regardless of
// fork: Persist records sidecars as they arrive, IsDataAvailable returns
// immediately, with nil only when the block's required data is all present
// and verified.
type AvailabilityStore interface {
	Persist(slot primitives.Slot, sidecars ...*blocks.BlobSidecar) error
	IsDataAvailable(ctx context.Context, slot primitives.Slot, blk *blocks.SignedBeaconBlock) error
}

// cacheEntry tracks one block root's sidecars and whether each has passed
// verification, grounded on the teacher's das/cache_test.go shape.
type cacheEntry struct {
	mu       sync.Mutex
	sidecars map[uint64]*blocks.BlobSidecar
	verified map[uint64]bool
}

// LazilyPersistentStore verifies and persists blob sidecars the first time
// IsDataAvailable needs them, per the teacher's das/availability_test.go
// naming (`NewLazilyPersistentStore`, `.Persist`, `.IsDataAvailable`).
type LazilyPersistentStore struct {
	mu      sync.Mutex
	cache   map[primitives.Root]*cacheEntry
	backend BlobBatchVerifier
}

func NewLazilyPersistentStore(backend BlobBatchVerifier) *LazilyPersistentStore {
	return &LazilyPersistentStore{
		cache:   make(map[primitives.Root]*cacheEntry),
		backend: backend,
	}
}

func (s *LazilyPersistentStore) entryFor(root primitives.Root) *cacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache[root]
	if !ok {
		e = &cacheEntry{
			sidecars: make(map[uint64]*blocks.BlobSidecar),
			verified: make(map[uint64]bool),
		}
		s.cache[root] = e
	}
	return e
}

// Persist records sidecars keyed by (blockRoot, index); re-persisting the
// same index is a no-op error (ErrDuplicateSidecar), as
// TestLazilyPersistentStore_IsDataAvailable checks.
func (s *LazilyPersistentStore) Persist(slot primitives.Slot, sidecars ...*blocks.BlobSidecar) error {
	for _, sc := range sidecars {
		if sc.Index >= params.BeaconConfig().MaxBlobsPerBlock {
			return errIndexOutOfBounds
		}
		e := s.entryFor(sc.BlockRoot())
		e.mu.Lock()
		if _, exists := e.sidecars[sc.Index]; exists {
			e.mu.Unlock()
			return ErrDuplicateSidecar
		}
		e.sidecars[sc.Index] = sc
		e.mu.Unlock()
	}
	return nil
}

// IsDataAvailable verifies that every commitment in blk has a matching,
// KZG-verified sidecar, per spec.md §4.6's deneb/electra rule: "count ==
// commitments" plus batch KZG and inclusion-proof verification.
func (s *LazilyPersistentStore) IsDataAvailable(ctx context.Context, slot primitives.Slot, blk *blocks.SignedBeaconBlock) error {
	if blk == nil || blk.Body == nil {
		return ErrDataUnavailable
	}
	want := len(blk.Body.BlobKZGCommitments)
	if want == 0 {
		return nil
	}
	root := blk.Root()
	e := s.entryFor(root)
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.sidecars) < want {
		return ErrDataUnavailable
	}

	var toVerify []*blocks.BlobSidecar
	var blobs [][]byte
	var commitments [][48]byte
	var proofs [][48]byte
	for i := 0; i < want; i++ {
		sc, ok := e.sidecars[uint64(i)]
		if !ok {
			return ErrDataUnavailable
		}
		if sc.KZGCommitment != blk.Body.BlobKZGCommitments[i] {
			return ErrCommitmentMismatch
		}
		if e.verified[uint64(i)] {
			continue
		}
		toVerify = append(toVerify, sc)
		blobs = append(blobs, sc.Blob)
		commitments = append(commitments, sc.KZGCommitment)
		proofs = append(proofs, sc.KZGProof)
	}
	if len(toVerify) > 0 {
		ok, err := s.backend.VerifyBlobKZGProofBatch(blobs, commitments, proofs)
		if err != nil {
			return errors.Wrap(err, "kzg batch verification failed")
		}
		if !ok {
			return ErrDataUnavailable
		}
		for _, sc := range toVerify {
			if err := s.backend.VerifyInclusionProof(sc); err != nil {
				return errors.Wrap(err, "inclusion proof verification failed")
			}
			e.verified[sc.Index] = true
		}
	}
	return nil
}
