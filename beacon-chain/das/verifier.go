package das

import (
	"github.com/pkg/errors"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/das/kzg"
	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
)

// DefaultBatchVerifier is the production BlobBatchVerifier, delegating KZG
// math to das/kzg. Its inclusion-proof check only confirms that a signed
// block header and an inclusion proof are present; the Merkle branch is not
// verified.
type DefaultBatchVerifier struct{}

func (DefaultBatchVerifier) VerifyBlobKZGProofBatch(blobs [][]byte, commitments [][48]byte, proofs [][48]byte) (bool, error) {
	return kzg.VerifyBlobKZGProofBatch(blobs, commitments, proofs)
}

// DefaultColumnReconstructor is the production ColumnReconstructor,
// delegating to das/kzg's wrapper around the trusted-setup cell recovery.
type DefaultColumnReconstructor struct{}

func (DefaultColumnReconstructor) RecoverCellsAndKZGProofs(cellIndices []uint64, cells [][]byte) ([][]byte, [][48]byte, error) {
	return kzg.RecoverCellsAndKZGProofs(cellIndices, cells)
}

func (DefaultBatchVerifier) VerifyInclusionProof(sc *blocks.BlobSidecar) error {
	if sc.SignedBlockHeader == nil {
		return errors.New("sidecar missing signed block header")
	}
	if len(sc.KZGCommitmentInclusionProof) == 0 {
		return errors.New("sidecar missing inclusion proof")
	}
	// The Merkle branch is not checked against the block body root; only
	// the proof's presence is enforced before accepting the sidecar.
	return nil
}
