// Package blockinput implements the "Block input" entity of spec.md §3: a
// block plus its promised-or-received blob/column sidecars, with readiness
// predicates and a wake-up primitive so the import pipeline can block on
// "all data present" without polling.
package blockinput

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/prysmaticlabs/beacon-core/consensus-types/blocks"
)

// Kind distinguishes the shape of the data a block input carries, per the
// fork gating in spec.md §3.
type Kind uint8

const (
	KindPreData Kind = iota // fork < deneb
	KindBlobs                // deneb, electra
	KindColumns              // fulu+
	KindAvailable            // fully resolved
)

// ErrAborted is returned by WaitFor* when the supplied context is canceled
// before data completes; callers must not treat it as a data-unavailability
// error (spec.md §7, "Aborted ... propagated up unchanged").
var ErrAborted = errors.New("aborted")

// BlockInput tracks one block's data-availability completeness.
type BlockInput struct {
	mu sync.Mutex

	kind  Kind
	block *blocks.SignedBeaconBlock

	// blobs/columns are sparse, keyed by sidecar index.
	blobs   map[uint64]*blocks.BlobSidecar
	columns map[uint64]*blocks.DataColumnSidecar

	expectedCommitments int // from the block's BlobKZGCommitments length
	requiredColumns     map[uint64]struct{}

	waiters []chan struct{}
}

// New constructs a BlockInput for the given fork kind and required column
// set. The expected commitment count is taken from the block's
// BlobKZGCommitments when SetBlock is called; until then HasAllData reports
// false for KindBlobs.
func New(kind Kind, requiredColumns []uint64) *BlockInput {
	bi := &BlockInput{
		kind:    kind,
		blobs:   make(map[uint64]*blocks.BlobSidecar),
		columns: make(map[uint64]*blocks.DataColumnSidecar),
	}
	if len(requiredColumns) > 0 {
		bi.requiredColumns = make(map[uint64]struct{}, len(requiredColumns))
		for _, c := range requiredColumns {
			bi.requiredColumns[c] = struct{}{}
		}
	}
	return bi
}

func (b *BlockInput) SetBlock(blk *blocks.SignedBeaconBlock) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.block = blk
	if blk != nil && blk.Body != nil {
		b.expectedCommitments = len(blk.Body.BlobKZGCommitments)
	}
	b.wakeLocked()
}

func (b *BlockInput) AddBlob(s *blocks.BlobSidecar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blobs[s.Index] = s
	b.wakeLocked()
}

func (b *BlockInput) AddColumn(s *blocks.DataColumnSidecar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.columns[s.Index] = s
	b.wakeLocked()
}

func (b *BlockInput) HasBlock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block != nil
}

func (b *BlockInput) HasBlob(index uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.blobs[index]
	return ok
}

// HasAllData reports whether every sidecar the attached block requires has
// been received. For KindBlobs it is false until the block has arrived,
// since the block fixes the blob count; for KindColumns it depends only on
// the required column set.
func (b *BlockInput) HasAllData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasAllDataLocked()
}

func (b *BlockInput) hasAllDataLocked() bool {
	switch b.kind {
	case KindPreData, KindAvailable:
		return true
	case KindBlobs:
		if b.block == nil {
			return false
		}
		return len(b.blobs) >= b.expectedCommitments
	case KindColumns:
		for idx := range b.requiredColumns {
			if _, ok := b.columns[idx]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (b *BlockInput) HasBlockAndAllData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block != nil && b.hasAllDataLocked()
}

// Missing returns the sidecar indices still outstanding, used by the
// range-sync scheduler to shape follow-up by-range requests.
func (b *BlockInput) Missing() []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	var missing []uint64
	switch b.kind {
	case KindBlobs:
		for i := 0; i < b.expectedCommitments; i++ {
			if _, ok := b.blobs[uint64(i)]; !ok {
				missing = append(missing, uint64(i))
			}
		}
	case KindColumns:
		for idx := range b.requiredColumns {
			if _, ok := b.columns[idx]; !ok {
				missing = append(missing, idx)
			}
		}
	}
	return missing
}

func (b *BlockInput) Block() *blocks.SignedBeaconBlock {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.block
}

// WaitForAllData blocks until HasAllData() or ctx is done.
func (b *BlockInput) WaitForAllData(ctx context.Context) error {
	return b.wait(ctx, b.HasAllData)
}

// WaitForBlockAndAllData blocks until HasBlockAndAllData() or ctx is done.
func (b *BlockInput) WaitForBlockAndAllData(ctx context.Context) error {
	return b.wait(ctx, b.HasBlockAndAllData)
}

func (b *BlockInput) wait(ctx context.Context, ready func() bool) error {
	for {
		if ready() {
			return nil
		}
		ch := b.subscribe()
		select {
		case <-ch:
			continue
		case <-ctx.Done():
			return errors.Wrap(ErrAborted, ctx.Err().Error())
		}
	}
}

func (b *BlockInput) subscribe() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.waiters = append(b.waiters, ch)
	return ch
}

// wakeLocked must be called with b.mu held; it closes and clears every
// pending waiter channel.
func (b *BlockInput) wakeLocked() {
	for _, ch := range b.waiters {
		close(ch)
	}
	b.waiters = nil
}
