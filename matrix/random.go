package matrix

const (
	lcgA = uint32(1664525)
	lcgC = uint32(1013904223)

	// cells are drawn from [0, maxValue)
	maxValue = 100
)

// Random returns a deterministic rows x cols matrix. Each row restarts the
// generator from seed+row, so any row can be reproduced on its own.
func Random(rows, cols int, seed int64) Matrix {
	data := make([]int64, rows*cols)
	for i := 0; i < rows; i++ {
		s := uint32(seed) + uint32(i)
		for j := 0; j < cols; j++ {
			s = lcgA*s + lcgC
			data[i*cols+j] = int64(s % maxValue)
		}
	}
	return Matrix{rows: rows, cols: cols, data: data}
}
