package protoarray

// ComputeDeltas implements spec.md §4.2's `computeDeltas(indices,
// voteCurrentIndices, voteNextIndices, oldBalances, newBalances,
// equivocatingIndices)`: for each validator, if its vote moved or its
// balance changed, subtract its old (effective-balance-increment) weight
// from the node it used to vote for and add its new weight to the node it
// now votes for, leaving equivocating validators contributing zero.
//
// voteCurrentIndices[v]/voteNextIndices[v] are arena indices or NoNode.
// indicesLen is the arena length the returned delta slice is sized to.
func ComputeDeltas(
	indicesLen int,
	voteCurrentIndices []uint64,
	voteNextIndices []uint64,
	oldBalances []uint64,
	newBalances []uint64,
	equivocating map[uint64]bool, // validator index -> equivocating
) []int64 {
	deltas := make([]int64, indicesLen)

	n := len(voteNextIndices)
	for v := 0; v < n; v++ {
		oldBalance := uint64(0)
		if v < len(oldBalances) {
			oldBalance = oldBalances[v]
		}
		newBalance := uint64(0)
		if v < len(newBalances) && !equivocating[uint64(v)] {
			newBalance = newBalances[v]
		}

		curIdx := NoNode
		if v < len(voteCurrentIndices) {
			curIdx = voteCurrentIndices[v]
		}
		nextIdx := voteNextIndices[v]

		if curIdx == nextIdx && oldBalance == newBalance {
			continue
		}
		if curIdx != NoNode && int(curIdx) < indicesLen {
			deltas[curIdx] -= int64(oldBalance)
		}
		if nextIdx != NoNode && int(nextIdx) < indicesLen {
			deltas[nextIdx] += int64(newBalance)
		}
	}
	return deltas
}
