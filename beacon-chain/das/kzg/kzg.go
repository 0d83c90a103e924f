// Package kzg wraps github.com/crate-crypto/go-kzg-4844 (the teacher's own
// KZG dependency, see beacon-chain/blockchain/kzg) behind the batch-verify
// and versioned-hash contract spec.md §4.6 (C6) needs, so the das package
// never imports the trusted-setup machinery directly.
package kzg

import (
	"crypto/sha256"
	"sync"

	GoKZG "github.com/crate-crypto/go-kzg-4844"
	"github.com/pkg/errors"
)

const versionedHashVersionKZG byte = 0x01

var (
	ctxOnce sync.Once
	ctx     *GoKZG.Context
	ctxErr  error
)

// Context lazily loads the trusted setup, mirroring the teacher's
// blockchain/kzg/trusted_setup_test.go pattern of a package-level
// initialized context.
func Context() (*GoKZG.Context, error) {
	ctxOnce.Do(func() {
		ctx, ctxErr = GoKZG.NewContext4096Insecure1337()
	})
	return ctx, ctxErr
}

// VerifyBlobKZGProofBatch implements spec.md §4.6's
// `verifyBlobKzgProofBatch(blobs, commitments, proofs)`.
func VerifyBlobKZGProofBatch(blobs [][]byte, commitments [][48]byte, proofs [][48]byte) (bool, error) {
	c, err := Context()
	if err != nil {
		return false, errors.Wrap(err, "could not load kzg trusted setup")
	}
	if len(blobs) != len(commitments) || len(blobs) != len(proofs) {
		return false, errors.New("mismatched blob/commitment/proof batch lengths")
	}
	if len(blobs) == 0 {
		return true, nil
	}

	gBlobs := make([]GoKZG.Blob, len(blobs))
	gCommits := make([]GoKZG.Commitment, len(commitments))
	gProofs := make([]GoKZG.KZGProof, len(proofs))
	for i := range blobs {
		copy(gBlobs[i][:], blobs[i])
		gCommits[i] = GoKZG.Commitment(commitments[i])
		gProofs[i] = GoKZG.KZGProof(proofs[i])
	}
	if err := c.VerifyBlobKZGProofBatch(gBlobs, gCommits, gProofs); err != nil {
		return false, nil
	}
	return true, nil
}

// VersionedHash derives the versioned hash of a KZG commitment: the
// version byte followed by the last 31 bytes of the commitment's SHA-256
// digest, per EIP-4844.
func VersionedHash(commitment [48]byte) [32]byte {
	digest := sha256.Sum256(commitment[:])
	var out [32]byte
	out[0] = versionedHashVersionKZG
	copy(out[1:], digest[1:])
	return out
}
