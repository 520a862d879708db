package domain

import "fmt"

// fovsPerDwell is the number of fields of view IASI records per scan position.
const fovsPerDwell = 4

// InterleaveIndex returns, for every cell of the (2*rows, cols/2) output grid
// in row-major order, the flat index of the input sample it takes.
//
// Even output rows hold FOVs 3 and 0 of each dwell, odd rows FOVs 2 and 1.
// cols must be a positive multiple of 4.
func InterleaveIndex(rows, cols int) ([]int, error) {
	if rows <= 0 || cols <= 0 || cols%fovsPerDwell != 0 {
		return nil, fmt.Errorf("%w: swath shape %dx%d is not a whole number of dwells", ErrFormat, rows, cols)
	}

	outCols := cols / 2
	dwellsPerLine := cols / fovsPerDwell
	idx := make([]int, rows*cols)

	for r := 0; r < rows; r++ {
		upper := idx[(2*r)*outCols : (2*r+1)*outCols]
		lower := idx[(2*r+1)*outCols : (2*r+2)*outCols]
		for c := 0; c < outCols; c++ {
			base := fovsPerDwell * (r*dwellsPerLine + c/2)
			if c%2 == 0 {
				upper[c] = base + 3
				lower[c] = base + 2
			} else {
				upper[c] = base
				lower[c] = base + 1
			}
		}
	}
	return idx, nil
}

// Reindex2D applies idx to a (rows, cols) array.
func Reindex2D(data []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, src := range idx {
		out[i] = data[src]
	}
	return out
}

// ReindexProfile applies idx to a (rows, cols, levels) array and returns it
// level-major, so every level is a contiguous output grid.
func ReindexProfile(data []float64, idx []int, levels int) []float64 {
	n := len(idx)
	out := make([]float64, n*levels)
	for l := 0; l < levels; l++ {
		plane := out[l*n : (l+1)*n]
		for i, src := range idx {
			plane[i] = data[src*levels+l]
		}
	}
	return out
}
