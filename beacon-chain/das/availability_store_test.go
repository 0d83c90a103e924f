package das

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

type stubBatchVerifier struct {
	verifyOK bool
}

func (s *stubBatchVerifier) VerifyBlobKZGProofBatch(blobs [][]byte, commitments [][48]byte, proofs [][48]byte) (bool, error) {
	return s.verifyOK, nil
}

func (s *stubBatchVerifier) VerifyInclusionProof(sc *blocks.BlobSidecar) error {
	return nil
}

func header(slot primitives.Slot) *blocks.SignedBeaconBlockHeader {
	return &blocks.SignedBeaconBlockHeader{Header: blocks.BeaconBlockHeader{Slot: slot, BodyRoot: primitives.Root{byte(slot)}}}
}

func TestLazilyPersistentStore_IsDataAvailable(t *testing.T) {
	v := &stubBatchVerifier{verifyOK: true}
	as := NewLazilyPersistentStore(v)

	commitment := [48]byte{1, 2, 3}
	blk := &blocks.SignedBeaconBlock{
		Header: blocks.BeaconBlockHeader{Slot: 5},
		Body:   &blocks.BeaconBlockBody{BlobKZGCommitments: [][48]byte{commitment}},
	}

	require.ErrorIs(t, as.IsDataAvailable(context.Background(), 5, blk), ErrDataUnavailable)

	sc := &blocks.BlobSidecar{
		Index:             0,
		Blob:              make([]byte, 32),
		KZGCommitment:     commitment,
		SignedBlockHeader: header(5),
	}
	blk.SetRoot(sc.BlockRoot())
	require.NoError(t, as.Persist(5, sc))
	require.NoError(t, as.IsDataAvailable(context.Background(), 5, blk))

	require.ErrorIs(t, as.Persist(5, sc), ErrDuplicateSidecar)
}

type stubReconstructor struct{}

func (stubReconstructor) RecoverCellsAndKZGProofs(cellIndices []uint64, cells [][]byte) ([][]byte, [][48]byte, error) {
	out := make([][]byte, 128)
	for i := range out {
		out[i] = []byte{byte(i)}
	}
	return out, make([][48]byte, 128), nil
}

func TestColumnAvailabilityStore_RecoveryThreshold(t *testing.T) {
	sampled := []uint64{100, 101, 102, 103}
	cas := NewColumnAvailabilityStore(stubReconstructor{}, sampled)

	root := primitives.Root{9}
	hdr := header(10)

	// Below NUMBER_OF_COLUMNS/2 (64 of 128): unavailable, no recovery attempted.
	for i := uint64(0); i < 10; i++ {
		require.NoError(t, cas.PersistColumns(root, &blocks.DataColumnSidecar{
			Index: i, Column: [][]byte{{byte(i)}}, SignedBlockHeader: hdr,
		}))
	}
	require.ErrorIs(t, cas.IsDataAvailable(context.Background(), root), ErrDataUnavailable)

	// At/above threshold: recovery fills the sampled set.
	for i := uint64(10); i < 64; i++ {
		require.NoError(t, cas.PersistColumns(root, &blocks.DataColumnSidecar{
			Index: i, Column: [][]byte{{byte(i)}}, SignedBlockHeader: hdr,
		}))
	}
	require.NoError(t, cas.IsDataAvailable(context.Background(), root))
}
