package transition

import (
	"encoding/binary"
	"crypto/sha256"

	"github.com/prysmaticlabs/beacon-core/consensus-types/primitives"
)

const shuffleRoundCount = 90

// ComputeShuffledIndex is deterministic for fixed (vc, seed): the swap-or-not
// shuffle from the consensus spec, used by proposer selection and committee
// computation. Grounded on spec.md §4.1 "Shuffling".
func ComputeShuffledIndex(index, indexCount uint64, seed [32]byte, shuffleRoundCountOverride ...int) uint64 {
	rounds := shuffleRoundCount
	if len(shuffleRoundCountOverride) > 0 {
		rounds = shuffleRoundCountOverride[0]
	}
	if indexCount <= 1 {
		return index
	}
	for round := 0; round < rounds; round++ {
		pivot := pivotForRound(seed, byte(round), indexCount)
		flip := (pivot + indexCount - index) % indexCount
		position := index
		if flip > position {
			position = flip
		}
		source := hashRoundSource(seed, byte(round), position/256)
		byteV := source[(position%256)/8]
		bitV := (byteV >> (position % 8)) & 1
		if bitV == 1 {
			index = flip
		}
	}
	return index
}

func pivotForRound(seed [32]byte, round byte, indexCount uint64) uint64 {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte{round})
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8]) % indexCount
}

func hashRoundSource(seed [32]byte, round byte, position uint64) [32]byte {
	h := sha256.New()
	h.Write(seed[:])
	h.Write([]byte{round})
	var posBuf [4]byte
	binary.LittleEndian.PutUint32(posBuf[:], uint32(position))
	h.Write(posBuf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ShuffledIndexFn is a closure produced by GetComputeShuffledIndexFn,
// amortizing the per-round hashing cost across a whole permutation.
type ShuffledIndexFn func(index uint64) uint64

// GetComputeShuffledIndexFn precomputes the full permutation array for
// (indexCount, seed) once and returns a closure over it, per spec.md §4.1:
// "a precomputation ... produces a closure that returns a whole permutation
// array for amortized cost."
func GetComputeShuffledIndexFn(indexCount uint64, seed [32]byte) ShuffledIndexFn {
	permuted := make([]uint64, indexCount)
	for i := range permuted {
		permuted[i] = uint64(i)
	}
	for round := 0; round < shuffleRoundCount; round++ {
		pivot := pivotForRound(seed, byte(round), indexCount)
		flipped := make([]uint64, indexCount)
		for i := uint64(0); i < indexCount; i++ {
			flip := (pivot + indexCount - i) % indexCount
			pos := i
			if flip > pos {
				pos = flip
			}
			source := hashRoundSource(seed, byte(round), pos/256)
			byteV := source[(pos%256)/8]
			bitV := (byteV >> (pos % 8)) & 1
			if bitV == 1 {
				flipped[i] = flip
			} else {
				flipped[i] = i
			}
		}
		next := make([]uint64, indexCount)
		for i, p := range permuted {
			next[i] = flipped[p]
		}
		permuted = next
	}
	return func(index uint64) uint64 { return permuted[index] }
}

// SeedForEpoch derives the per-epoch RANDAO seed used for proposer/committee
// shuffling, sourced from RANDAO at epoch - MIN_SEED_LOOKAHEAD per spec.md
// §4.1 "Deterministic order for proposer selection".
func SeedForEpoch(domainType [4]byte, epoch primitives.Epoch, randaoMix primitives.Root) [32]byte {
	h := sha256.New()
	h.Write(domainType[:])
	var epochBuf [8]byte
	binary.LittleEndian.PutUint64(epochBuf[:], uint64(epoch))
	h.Write(epochBuf[:])
	h.Write(randaoMix[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
