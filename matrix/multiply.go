package matrix

import "fmt"

// Multiply returns x*y. x may be a whole matrix or a row block; the same
// kernel serves the sequential baseline and every rank.
func Multiply(x, y Matrix) (Matrix, error) {
	if x.cols != y.rows {
		return Matrix{}, fmt.Errorf("%w: %dx%d * %dx%d", ErrDimension, x.rows, x.cols, y.rows, y.cols)
	}
	rows, inner, cols := x.rows, x.cols, y.cols
	result := make([]int64, rows*cols)

	for i := 0; i < rows; i++ {
		xi := x.data[i*inner : (i+1)*inner]
		for j := 0; j < cols; j++ {
			var sum int64
			for k := 0; k < inner; k++ {
				sum += xi[k] * y.data[k*cols+j]
			}
			result[i*cols+j] = sum
		}
	}
	return Matrix{rows: rows, cols: cols, data: result}, nil
}
