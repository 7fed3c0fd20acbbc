package engine

import (
	"distributed-matmul/matrix"
	"distributed-matmul/shared"
)

// Verify compares a distributed result with the sequential reference cell
// by cell. Integer products need no tolerance.
func Verify(variant string, reference, got matrix.Matrix) (shared.StatusCode, error) {
	row, col, ok := matrix.FirstMismatch(reference, got)
	if ok {
		return shared.StatusContinue, nil
	}
	e := CorrectnessError{Variant: variant, Row: row, Col: col}
	if row >= 0 {
		e.Want, e.Got = reference.At(row, col), got.At(row, col)
	}
	return shared.StatusAbort, e
}
