package engine

import (
	"fmt"

	"distributed-matmul/comm"
	"distributed-matmul/matrix"
	"distributed-matmul/shared"
)

// Gather receives every worker's partial product and stacks all blocks in
// rank order, so rank k's rows land at [k*rows/p, (k+1)*rows/p) no matter
// which block arrived first. The result exists only once every block is in.
func Gather(c comm.Comm, own matrix.Matrix, rows int) (matrix.Matrix, error) {
	p := c.Size()
	blocks := make([]matrix.Matrix, p)
	for _, part := range Partitions(rows, p) {
		if part.Rank == shared.CoordinatorRank {
			blocks[part.Rank] = own
			continue
		}
		raw, err := c.Recv(part.Rank, shared.TagPartial)
		if err != nil {
			return matrix.Matrix{}, fmt.Errorf("gather from rank %d: %w", part.Rank, err)
		}
		blk, err := matrix.Decode(raw)
		if err != nil {
			return matrix.Matrix{}, fmt.Errorf("gather from rank %d: %w", part.Rank, err)
		}
		if blk.Rows() != part.Len() || blk.Cols() != own.Cols() {
			return matrix.Matrix{}, fmt.Errorf("rank %d sent a %dx%d block, want %dx%d",
				part.Rank, blk.Rows(), blk.Cols(), part.Len(), own.Cols())
		}
		blocks[part.Rank] = blk
	}
	return matrix.Stack(blocks...)
}

// SendPartial returns a worker's partial product to the coordinator.
func SendPartial(c comm.Comm, partial matrix.Matrix) error {
	if err := c.Send(shared.CoordinatorRank, shared.TagPartial, partial.Encode()); err != nil {
		return fmt.Errorf("send partial product: %w", err)
	}
	return nil
}
