package matrix

import "fmt"

const headerLen = 2

// Encode flattens m into a message payload: rows, cols, then the cells.
func (m Matrix) Encode() []int64 {
	buf := make([]int64, headerLen+len(m.data))
	buf[0], buf[1] = int64(m.rows), int64(m.cols)
	copy(buf[headerLen:], m.data)
	return buf
}

// Decode is the inverse of Encode.
func Decode(buf []int64) (Matrix, error) {
	if len(buf) < headerLen {
		return Matrix{}, fmt.Errorf("%w: payload of %d values has no header", ErrShape, len(buf))
	}
	rows, cols := int(buf[0]), int(buf[1])
	if int64(rows) != buf[0] || int64(cols) != buf[1] {
		return Matrix{}, fmt.Errorf("%w: shape %dx%d does not fit in int", ErrShape, buf[0], buf[1])
	}
	return New(rows, cols, buf[headerLen:])
}
