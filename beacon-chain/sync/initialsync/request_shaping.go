package initialsync

import "github.com/prysmaticlabs/beacon-core/config/params"

// BlocksRequest is a by-range blocks request: [startSlot, startSlot+count).
type BlocksRequest struct {
	StartSlot uint64
	Count     uint64
}

// BlobsRequest mirrors BlocksRequest for deneb/electra blob sidecars.
type BlobsRequest struct {
	StartSlot uint64
	Count     uint64
}

// ColumnsRequest additionally filters to a peer's custody set, per spec.md
// §4.4: "a peer receives a filtered column subset equal to
// `requestedColumns ∩ peer.custodyColumns`".
type ColumnsRequest struct {
	StartSlot uint64
	Count     uint64
	Columns   []uint64
}

// DownloadByRangeRequests is the per-fork request bundle a batch computes
// before starting a download, per spec.md §4.4.
type DownloadByRangeRequests struct {
	Blocks  BlocksRequest
	Blobs   *BlobsRequest
	Columns *ColumnsRequest
}

// IsDAOutOfRange reports whether startSlot's blob/column data has aged out
// of the data-availability retention window for fork.
func IsDAOutOfRange(fork params.ForkSeq, startSlot uint64, currentEpoch uint64) bool {
	cfg := params.BeaconConfig()
	startEpoch := startSlot / cfg.SlotsPerEpoch
	window := uint64(cfg.MinEpochsForBlobSidecarsRequest)
	if currentEpoch < window {
		return false
	}
	return startEpoch+window < currentEpoch
}

// BuildDownloadByRangeRequests computes the request bundle for a batch
// spanning [startSlot, startSlot+count), gated on fork and the DA window,
// and (for fulu) filtered to the requesting peer's custody columns.
func BuildDownloadByRangeRequests(fork params.ForkSeq, startSlot, count, currentEpoch uint64, requestedColumns, peerCustodyColumns []uint64) DownloadByRangeRequests {
	req := DownloadByRangeRequests{Blocks: BlocksRequest{StartSlot: startSlot, Count: count}}

	if fork < params.Deneb {
		return req
	}
	if IsDAOutOfRange(fork, startSlot, currentEpoch) {
		return req
	}

	if fork < params.Fulu {
		req.Blobs = &BlobsRequest{StartSlot: startSlot, Count: count}
		return req
	}

	custody := make(map[uint64]struct{}, len(peerCustodyColumns))
	for _, c := range peerCustodyColumns {
		custody[c] = struct{}{}
	}
	var filtered []uint64
	for _, c := range requestedColumns {
		if _, ok := custody[c]; ok {
			filtered = append(filtered, c)
		}
	}
	req.Columns = &ColumnsRequest{StartSlot: startSlot, Count: count, Columns: filtered}
	return req
}
