package engine

import (
	"fmt"

	"distributed-matmul/comm"
	"distributed-matmul/matrix"
	"distributed-matmul/shared"
)

// Distribute sends every worker its row block of a followed by a full copy
// of b, in rank order, and returns the coordinator's own block of a.
// B is never partitioned: every output row needs all of its columns.
func Distribute(c comm.Comm, a, b matrix.Matrix) (matrix.Matrix, error) {
	p := c.Size()
	full := b.Encode()
	for _, part := range Partitions(a.Rows(), p) {
		if part.Rank == shared.CoordinatorRank {
			continue
		}
		blk, err := a.RowBlock(part.Start, part.End)
		if err != nil {
			return matrix.Matrix{}, err
		}
		if err := c.Send(part.Rank, shared.TagBlockA, blk.Encode()); err != nil {
			return matrix.Matrix{}, fmt.Errorf("distribute block to rank %d: %w", part.Rank, err)
		}
		if err := c.Send(part.Rank, shared.TagMatrixB, full); err != nil {
			return matrix.Matrix{}, fmt.Errorf("distribute B to rank %d: %w", part.Rank, err)
		}
	}
	own := BlockFor(shared.CoordinatorRank, a.Rows(), p)
	return a.RowBlock(own.Start, own.End)
}

// ReceiveInputs is the worker side of Distribute.
func ReceiveInputs(c comm.Comm) (block, b matrix.Matrix, err error) {
	raw, err := c.Recv(shared.CoordinatorRank, shared.TagBlockA)
	if err != nil {
		return block, b, fmt.Errorf("receive block: %w", err)
	}
	if block, err = matrix.Decode(raw); err != nil {
		return block, b, err
	}
	raw, err = c.Recv(shared.CoordinatorRank, shared.TagMatrixB)
	if err != nil {
		return block, b, fmt.Errorf("receive B: %w", err)
	}
	b, err = matrix.Decode(raw)
	return block, b, err
}

// ComputeBlock is the local kernel every rank runs on its block.
func ComputeBlock(block, b matrix.Matrix) (matrix.Matrix, error) {
	return matrix.Multiply(block, b)
}
