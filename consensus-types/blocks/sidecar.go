package blocks

import "github.com/prysmaticlabs/beacon-core/consensus-types/primitives"

// BlobSidecar mirrors spec.md §3 "Sidecars / Blob sidecar": a single blob,
// its KZG commitment/proof, and an inclusion proof specific to that
// commitment's position in the block body.
type BlobSidecar struct {
	Index                       uint64
	Blob                        []byte // BYTES_PER_FIELD_ELEMENT * FIELD_ELEMENTS_PER_BLOB
	KZGCommitment                [48]byte
	KZGProof                      [48]byte
	SignedBlockHeader             *SignedBeaconBlockHeader
	KZGCommitmentInclusionProof   [][32]byte
}

// DataColumnSidecar mirrors spec.md §3 "Sidecars / Data-column sidecar": all
// columns sharing a block share one inclusion proof over the full
// commitments list, unlike blob sidecars.
type DataColumnSidecar struct {
	Index                        uint64
	Column                       [][]byte // cells, one per blob row
	KZGCommitments               [][48]byte
	KZGProofs                    [][48]byte
	SignedBlockHeader            *SignedBeaconBlockHeader
	KZGCommitmentsInclusionProof [][32]byte
}

type SignedBeaconBlockHeader struct {
	Header    BeaconBlockHeader
	Signature [96]byte
}

// BlockRoot returns the block root this sidecar is attached to, used as the
// secondary dimension of every slot-indexed cache/pool key.
func (b *BlobSidecar) BlockRoot() primitives.Root {
	return rootOfHeader(&b.SignedBlockHeader.Header)
}

func (d *DataColumnSidecar) BlockRoot() primitives.Root {
	return rootOfHeader(&d.SignedBlockHeader.Header)
}

// rootOfHeader is a placeholder for the external SSZ collaborator's
// HashTreeRoot(header); it returns the header's BodyRoot field, so
// BlockRoot is the body root, not the header's hash tree root.
func rootOfHeader(h *BeaconBlockHeader) primitives.Root {
	return h.BodyRoot
}
