// Package matrix holds the dense integer matrix shared by every rank,
// together with the product kernel used for both the sequential baseline
// and each rank's row block.
package matrix

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrShape is returned when backing storage does not match the declared shape
	ErrShape = errors.New("matrix: shape does not match storage")
	// ErrDimension is returned when two matrices cannot be multiplied
	ErrDimension = errors.New("matrix: inner dimensions disagree")
)

// Matrix is a dense row-major grid of integers. A Matrix is never modified
// after construction; operations that change cells return a new value.
type Matrix struct {
	rows, cols int
	data       []int64
}

// New copies data into a rows x cols matrix.
func New(rows, cols int, data []int64) (Matrix, error) {
	if rows < 0 || cols < 0 || (cols != 0 && rows > math.MaxInt/cols) || len(data) != rows*cols {
		return Matrix{}, fmt.Errorf("%w: %dx%d with %d cells", ErrShape, rows, cols, len(data))
	}
	d := make([]int64, len(data))
	copy(d, data)
	return Matrix{rows: rows, cols: cols, data: d}, nil
}

// Zero returns a rows x cols matrix of zeros.
func Zero(rows, cols int) Matrix {
	return Matrix{rows: rows, cols: cols, data: make([]int64, rows*cols)}
}

// FromRows builds a matrix from a slice of equally sized rows.
func FromRows(rows [][]int64) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	cols := len(rows[0])
	data := make([]int64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return Matrix{}, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return Matrix{rows: len(rows), cols: cols, data: data}, nil
}

func (m Matrix) Rows() int { return m.rows }
func (m Matrix) Cols() int { return m.cols }

func (m Matrix) At(i, j int) int64 {
	return m.data[i*m.cols+j]
}

// Row returns a copy of row i.
func (m Matrix) Row(i int) []int64 {
	r := make([]int64, m.cols)
	copy(r, m.data[i*m.cols:(i+1)*m.cols])
	return r
}

// Data returns a copy of the backing storage.
func (m Matrix) Data() []int64 {
	d := make([]int64, len(m.data))
	copy(d, m.data)
	return d
}

// RowBlock returns rows [start, end) as a new matrix.
func (m Matrix) RowBlock(start, end int) (Matrix, error) {
	if start < 0 || end > m.rows || start > end {
		return Matrix{}, fmt.Errorf("%w: rows [%d, %d) of %d", ErrShape, start, end, m.rows)
	}
	return New(end-start, m.cols, m.data[start*m.cols:end*m.cols])
}

// WithCell returns a copy of m with cell (i, j) set to v.
func (m Matrix) WithCell(i, j int, v int64) Matrix {
	c := Matrix{rows: m.rows, cols: m.cols, data: m.Data()}
	c.data[i*m.cols+j] = v
	return c
}

// Stack concatenates blocks vertically in argument order.
func Stack(blocks ...Matrix) (Matrix, error) {
	if len(blocks) == 0 {
		return Matrix{}, nil
	}
	cols := blocks[0].cols
	rows := 0
	for _, b := range blocks {
		if b.cols != cols {
			return Matrix{}, fmt.Errorf("%w: block with %d columns, want %d", ErrShape, b.cols, cols)
		}
		rows += b.rows
	}
	data := make([]int64, 0, rows*cols)
	for _, b := range blocks {
		data = append(data, b.data...)
	}
	return Matrix{rows: rows, cols: cols, data: data}, nil
}

// Equal reports whether a and b have the same shape and cells.
func Equal(a, b Matrix) bool {
	_, _, ok := FirstMismatch(a, b)
	return ok
}

// FirstMismatch scans in row-major order and returns the first cell that
// differs. ok is true when the matrices are equal. A shape mismatch is
// reported at (-1, -1).
func FirstMismatch(a, b Matrix) (row, col int, ok bool) {
	if a.rows != b.rows || a.cols != b.cols {
		return -1, -1, false
	}
	for i, v := range a.data {
		if b.data[i] != v {
			return i / a.cols, i % a.cols, false
		}
	}
	return 0, 0, true
}

// String renders one row per line, used by the matrix dump.
func (m Matrix) String() string {
	var sb strings.Builder
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if j > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", m.At(i, j))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
