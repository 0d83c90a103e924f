// Package blockchain implements the block-import pipeline of spec.md §4.3
// (C3): the life-cycle service that drives incoming BlockInputs through
// sanity, consensus, execution, and data-availability verification before
// applying them to fork choice and persisting them.
package blockchain

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/prysmaticlabs/beacon-core/beacon-chain/blockchain/blockinput"
	proposercache "github.com/prysmaticlabs/beacon-core/beacon-chain/cache/proposer"
	shufflingcache "github.com/prysmaticlabs/beacon-core/beacon-chain/cache/shuffling"
	"github.com/prysmaticlabs/beacon-core/beacon-chain/execution"
	"github.com/prysmaticlabs/beacon-core/beacon-chain/forkchoice/protoarray"
	"github.com/prysmaticlabs/beacon-core/beacon-chain/state"
	"github.com/prysmaticlabs/beacon-core/config/params"
	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

var log = logrus.WithField("prefix", "blockchain")

// Notifier is the set of event callbacks fired on crossing block/epoch
// boundaries, per spec.md §4.3 "Notifications".
type Notifier interface {
	OnBlock(root primitives.Root)
	OnLightClientOptimisticUpdate()
	OnLightClientFinalityUpdate()
	OnFinalizedCheckpoint(c primitives.Checkpoint)
}

// StateByRoot resolves a block's parent (pre-)state; the service depends on
// an abstraction here rather than a concrete store so state-gen strategies
// can vary (hot/cold split, in-memory only, etc), matching the teacher's
// `stateGen` collaborator shape.
type StateByRoot interface {
	StateByRoot(ctx context.Context, root primitives.Root) (*state.CachedState, error)
	SaveState(ctx context.Context, root primitives.Root, s *state.CachedState) error
}

// BlockArchive persists every imported block with its sidecar data (OnBlock
// saves each block at the Persisted stage), keyed slot:root per
// spec.md §5 "Persisted state layout".
type BlockArchive interface {
	SaveBlock(ctx context.Context, root primitives.Root, input *blockinput.BlockInput) error
}

// Config bundles the Service's collaborators, mirroring the teacher's
// Config-struct-per-service convention.
type Config struct {
	StateGen     StateByRoot
	BlockArchive BlockArchive
	Engine       execution.EngineCaller
	Notifier     Notifier
}

// Service drives blocks through the import pipeline and owns the
// fork-choice Store, matching the teacher's ChainService responsibilities
// generalized to the spec's richer multi-stage pipeline.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg *Config

	forkChoiceStore *protoarray.Store

	justifiedCheckpt primitives.Checkpoint
	finalizedCheckpt primitives.Checkpoint

	// seenBlockRoots guards against reprocessing the same root within its
	// TTL, the same pattern the teacher uses for attestation dedup in
	// operations/attestations/kv.
	seenBlockRoots *cache.Cache

	// checkpointStateCache is an LRU for (epoch, root) -> CachedState
	// lookups, grounded on the teacher's checkpoint_info_cache_test.go LRU
	// shape. New constructs it; no Service method reads or writes it.
	checkpointStateCache *lru.Cache

	// shufflingCache backs ShufflingForEpoch. proposerCache backs
	// SuggestedFeeRecipient, which OnBlock consults when notifying the
	// execution engine.
	shufflingCache *shufflingcache.Cache
	proposerCache  *proposercache.Cache

	mu sync.Mutex
}

func New(ctx context.Context, cfg *Config) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	ckptCache, err := lru.New(128)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "could not initialize checkpoint state cache")
	}
	shufflingCache, err := shufflingcache.New()
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, "could not initialize shuffling cache")
	}
	slotDuration := time.Duration(params.BeaconConfig().SecondsPerSlot) * time.Second
	return &Service{
		ctx:                  ctx,
		cancel:               cancel,
		cfg:                  cfg,
		forkChoiceStore:      protoarray.NewStore(primitives.Checkpoint{}, primitives.Checkpoint{}),
		seenBlockRoots:       cache.New(6*slotDuration, 2*slotDuration),
		checkpointStateCache: ckptCache,
		shufflingCache:       shufflingCache,
		proposerCache:        proposercache.New(proposercache.FeeRecipient{}),
	}, nil
}

// ShufflingForEpoch resolves the committee shuffling for (epoch,
// decisionRoot), computing and caching it on a miss. compute is supplied by
// the caller since deriving a shuffling requires the full active-validator
// set from the relevant state, which this package does not itself hold.
func (s *Service) ShufflingForEpoch(ctx context.Context, epoch primitives.Epoch, decisionRoot primitives.Root, compute func(context.Context) (*shufflingcache.EpochShuffling, error)) (*shufflingcache.EpochShuffling, error) {
	return s.shufflingCache.GetOrCompute(ctx, epoch, decisionRoot, compute)
}

// SuggestedFeeRecipient returns the fee recipient a proposer registered for
// validatorIndex, or the cache's configured default absent a registration.
func (s *Service) SuggestedFeeRecipient(validatorIndex primitives.ValidatorIndex) proposercache.FeeRecipient {
	return s.proposerCache.GetOrDefault(validatorIndex)
}

func (s *Service) Stop() error {
	defer s.cancel()
	log.Info("Stopping block import service")
	return nil
}
