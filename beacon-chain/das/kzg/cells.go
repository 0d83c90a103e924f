package kzg

import (
	GoKZG "github.com/crate-crypto/go-kzg-4844"
	"github.com/pkg/errors"
)

// RecoverCellsAndKZGProofs implements spec.md §4.6's
// `recoverCellsAndKzgProofs(cellIndices, cells)`: given a partial,
// ascending-sorted set of cell indices and their cell bytes for one blob
// row, returns the full NUMBER_OF_COLUMNS set of cells and proofs.
func RecoverCellsAndKZGProofs(cellIndices []uint64, cells [][]byte) ([][]byte, [][48]byte, error) {
	c, err := Context()
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not load kzg trusted setup")
	}
	gIndices := make([]uint64, len(cellIndices))
	copy(gIndices, cellIndices)
	gCells := make([]*GoKZG.Cell, len(cells))
	for i, cell := range cells {
		var gc GoKZG.Cell
		copy(gc[:], cell)
		gCells[i] = &gc
	}

	recovered, err := c.RecoverCellsAndKZGProofs(gIndices, gCells)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cell recovery failed")
	}

	outCells := make([][]byte, len(recovered.Cells))
	outProofs := make([][48]byte, len(recovered.Proofs))
	for i, cell := range recovered.Cells {
		outCells[i] = append([]byte(nil), cell[:]...)
	}
	for i, p := range recovered.Proofs {
		outProofs[i] = [48]byte(p)
	}
	return outCells, outProofs, nil
}
