package protoarray

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeDeltas_AllVotesFromNull(t *testing.T) {
	validatorCount := 16
	balances := make([]uint64, validatorCount)
	voteNext := make([]uint64, validatorCount)
	voteCurrent := make([]uint64, validatorCount)
	for i := range balances {
		balances[i] = 42
		voteNext[i] = 0
		voteCurrent[i] = NoNode
	}

	deltas := ComputeDeltas(3, voteCurrent, voteNext, balances, balances, nil)
	require.Len(t, deltas, 3)
	require.Equal(t, int64(42*16), deltas[0])
	require.Equal(t, int64(0), deltas[1])
	require.Equal(t, int64(0), deltas[2])
}

func TestComputeDeltas_AllVotesMove(t *testing.T) {
	validatorCount := 16
	balances := make([]uint64, validatorCount)
	voteCurrent := make([]uint64, validatorCount)
	voteNext := make([]uint64, validatorCount)
	for i := range balances {
		balances[i] = 42
		voteCurrent[i] = 0
		voteNext[i] = 1
	}

	deltas := ComputeDeltas(3, voteCurrent, voteNext, balances, balances, nil)
	require.Equal(t, int64(-42*16), deltas[0])
	require.Equal(t, int64(42*16), deltas[1])
	require.Equal(t, int64(0), deltas[2])
}

func TestComputeDeltas_EquivocatingVoterContributesZero(t *testing.T) {
	balances := []uint64{100}
	voteCurrent := []uint64{NoNode}
	voteNext := []uint64{0}
	equivocating := map[uint64]bool{0: true}

	deltas := ComputeDeltas(1, voteCurrent, voteNext, balances, balances, equivocating)
	require.Equal(t, int64(0), deltas[0])
}
