//go:build mpi

package comm

import (
	mpi "github.com/sbromberger/gompi"
)

// MPIComm runs over MPI_COMM_WORLD. Rank and size come from the MPI
// launcher, so peers and listen addresses are ignored.
type MPIComm struct {
	world *mpi.Communicator
}

// NewMPI initialises MPI; Close finalises it.
func NewMPI() (Comm, error) {
	mpi.Start(false)
	return &MPIComm{world: mpi.NewCommunicator(nil)}, nil
}

func (c *MPIComm) Rank() int { return c.world.Rank() }
func (c *MPIComm) Size() int { return c.world.Size() }

func (c *MPIComm) Send(dest, tag int, payload []int64) error {
	if err := checkRank(dest, c.Size()); err != nil {
		return err
	}
	c.world.SendInt64s(payload, dest, tag)
	return nil
}

func (c *MPIComm) Recv(src, tag int) ([]int64, error) {
	if err := checkRank(src, c.Size()); err != nil {
		return nil, err
	}
	vals, _ := c.world.RecvInt64s(src, tag)
	return vals, nil
}

func (c *MPIComm) Close() error {
	mpi.Stop()
	return nil
}
