// Package shuffling implements the committee shuffling cache of spec.md
// §4.7 (C7): a promise-based, single-flight memoization of EpochShuffling
// keyed by (epoch, decisionRoot), LRU-pruned to maxShufflingCacheEpochs.
// Grounded on the teacher's beacon-chain/cache committee/checkpoint-state
// cache test suite (hashicorp/golang-lru-backed, context-aware accessors)
// and golang.org/x/sync/singleflight for promise coalescing.
package shuffling

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

var (
	shufflingCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shuffling_cache_hit_total",
		Help: "The number of times a shuffling cache lookup resolved to a stored value.",
	})
	shufflingCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shuffling_cache_miss_total",
		Help: "The number of times a shuffling cache lookup found no resolved entry.",
	})
)

// ErrNoShufflingFound is raised by GetOrThrow when no resolved entry exists
// for the key; a pending (unresolved) entry also yields it.
var ErrNoShufflingFound = errors.New("no shuffling found")

// ErrMaxPromisesExceeded is returned by InsertPromise once the cache
// already holds MaxPromises unresolved entries.
var ErrMaxPromisesExceeded = errors.New("max outstanding shuffling promises exceeded")

// MaxPromises bounds outstanding unresolved promises, guarding against
// unbounded concurrent shuffling computation fan-out.
const MaxPromises = 32

// MaxShufflingCacheEpochs is the default LRU size, per spec.md §4.7.
const MaxShufflingCacheEpochs = 4

type key struct {
	epoch        primitives.Epoch
	decisionRoot primitives.Root
}

// EpochShuffling is the computed committee shuffling for an epoch, opaque
// to this cache beyond its storage.
type EpochShuffling struct {
	Epoch           primitives.Epoch
	ShuffledIndices []primitives.ValidatorIndex
	CommitteeCount  uint64
}

type entry struct {
	shuffling *EpochShuffling // nil while a promise is outstanding
}

// Cache memoizes EpochShuffling by (epoch, decisionRoot), coalescing
// concurrent computations for the same key via singleflight so only one
// caller actually computes a shuffling while others await its result.
type Cache struct {
	mu      sync.Mutex
	lru     *lru.Cache
	group   singleflight.Group
	pending int
}

func New() (*Cache, error) {
	l, err := lru.New(MaxShufflingCacheEpochs)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// InsertPromise reserves key's slot in the cache without a resolved value,
// so concurrent lookups can await resolution instead of each issuing a
// redundant computation. Returns ErrMaxPromisesExceeded once MaxPromises
// promises are outstanding.
func (c *Cache) InsertPromise(epoch primitives.Epoch, decisionRoot primitives.Root) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending >= MaxPromises {
		return ErrMaxPromisesExceeded
	}
	k := key{epoch: epoch, decisionRoot: decisionRoot}
	if _, ok := c.lru.Get(k); ok {
		return nil
	}
	c.pending++
	c.lru.Add(k, &entry{})
	return nil
}

// Set resolves the promise for (epoch, decisionRoot), storing s and
// decrementing the pending-promise count.
func (c *Cache) Set(epoch primitives.Epoch, decisionRoot primitives.Root, s *EpochShuffling) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key{epoch: epoch, decisionRoot: decisionRoot}
	if v, ok := c.lru.Get(k); ok {
		if e := v.(*entry); e.shuffling == nil {
			c.pending--
		}
	} else {
		c.lru.Add(k, &entry{})
	}
	c.lru.Add(k, &entry{shuffling: s})
}

// Get returns the resolved shuffling for (epoch, decisionRoot), or
// (nil, false) if absent or still pending.
func (c *Cache) Get(epoch primitives.Epoch, decisionRoot primitives.Root) (*EpochShuffling, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key{epoch: epoch, decisionRoot: decisionRoot})
	if !ok {
		shufflingCacheMiss.Inc()
		return nil, false
	}
	e := v.(*entry)
	if e.shuffling == nil {
		shufflingCacheMiss.Inc()
		return nil, false
	}
	shufflingCacheHit.Inc()
	return e.shuffling, true
}

// GetOrThrow returns the resolved shuffling or ErrNoShufflingFound.
func (c *Cache) GetOrThrow(epoch primitives.Epoch, decisionRoot primitives.Root) (*EpochShuffling, error) {
	s, ok := c.Get(epoch, decisionRoot)
	if !ok {
		return nil, ErrNoShufflingFound
	}
	return s, nil
}

// GetOrCompute coalesces concurrent computations for the same
// (epoch, decisionRoot) key via singleflight: the first caller runs
// compute and populates the cache; concurrent callers block on its result
// instead of recomputing.
func (c *Cache) GetOrCompute(ctx context.Context, epoch primitives.Epoch, decisionRoot primitives.Root, compute func(context.Context) (*EpochShuffling, error)) (*EpochShuffling, error) {
	if s, ok := c.Get(epoch, decisionRoot); ok {
		return s, nil
	}
	var epochBytes [8]byte
	binary.LittleEndian.PutUint64(epochBytes[:], uint64(epoch))
	sk := string(decisionRoot[:]) + string(epochBytes[:])
	v, err, _ := c.group.Do(sk, func() (interface{}, error) {
		if s, ok := c.Get(epoch, decisionRoot); ok {
			return s, nil
		}
		_ = c.InsertPromise(epoch, decisionRoot)
		s, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(epoch, decisionRoot, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*EpochShuffling), nil
}
